// Package chunk splits long text into token windows small enough for the
// summarization model.
package chunk

import (
	"context"
	"fmt"
)

// DefaultMaxTokens matches the summarization model's input window.
const DefaultMaxTokens = 512

// Tokenizer converts between text and model token ids.
type Tokenizer interface {
	Encode(ctx context.Context, text string) ([]int, error)
	// Decode drops special tokens (BOS, EOS, padding).
	Decode(ctx context.Context, ids []int) (string, error)
}

// Chunker cuts text into contiguous, non-overlapping windows of at most
// MaxTokens tokens.
type Chunker struct {
	tok       Tokenizer
	maxTokens int
}

// New returns a Chunker. maxTokens <= 0 selects DefaultMaxTokens.
func New(tok Tokenizer, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{tok: tok, maxTokens: maxTokens}
}

// MaxTokens is the window size in tokens.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Split tokenizes text and decodes each window back to a string. The last
// window may be shorter. Text that yields no tokens yields no chunks.
func (c *Chunker) Split(ctx context.Context, text string) ([]string, error) {
	ids, err := c.tok.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("chunk: tokenizing: %w", err)
	}

	chunks := make([]string, 0, (len(ids)+c.maxTokens-1)/c.maxTokens)
	for start := 0; start < len(ids); start += c.maxTokens {
		end := min(start+c.maxTokens, len(ids))
		s, err := c.tok.Decode(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("chunk: decoding window %d: %w", start/c.maxTokens, err)
		}
		chunks = append(chunks, s)
	}
	return chunks, nil
}
