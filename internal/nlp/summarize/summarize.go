// Package summarize produces abstractive summaries with length limits tiered
// by the input's word count.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/doc-insight/internal/nlp/chunk"
)

// MinWords is the shortest input that is sent to the model.
const MinWords = 40

// TooShortMessage is returned verbatim, without a model call, when the input
// has fewer than MinWords words.
const TooShortMessage = "The text is too short for summarization. Please enter at least 40 words."

// Params are the generation settings passed to the model.
type Params struct {
	MaxLength     int  `json:"max_length"`
	MinLength     int  `json:"min_length"`
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
}

// Generator runs a summarization model.
type Generator interface {
	Summarize(ctx context.Context, text string, p Params) (string, error)
}

// Summarizer applies the length tiers around a Generator.
type Summarizer struct {
	gen     Generator
	chunker *chunk.Chunker
}

// New returns a Summarizer. chunker may be nil when SummarizeLong is not
// used.
func New(gen Generator, chunker *chunk.Chunker) *Summarizer {
	return &Summarizer{gen: gen, chunker: chunker}
}

// ParamsFor returns the generation settings for a text of wordCount words.
// ok is false below MinWords.
func ParamsFor(wordCount int) (p Params, ok bool) {
	p = Params{NumBeams: 4, EarlyStopping: true}
	switch {
	case wordCount < MinWords:
		return Params{}, false
	case wordCount <= 60:
		p.MaxLength, p.MinLength = 30, 20
	case wordCount <= 100:
		p.MaxLength, p.MinLength = 50, 30
	case wordCount <= 200:
		p.MaxLength, p.MinLength = 100, 50
	default:
		p.MaxLength, p.MinLength = 150, 100
	}
	return p, true
}

// Summarize returns the model summary of text with surrounding whitespace
// removed, or TooShortMessage.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	p, ok := ParamsFor(len(strings.Fields(text)))
	if !ok {
		return TooShortMessage, nil
	}

	out, err := s.gen.Summarize(ctx, text, p)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SummarizeLong splits text into token windows, summarizes each with the
// regular tiers and joins the results with a space. A window with fewer than
// MinWords words is folded into its neighbour, so the guidance message only
// comes back when the whole text is too short.
func (s *Summarizer) SummarizeLong(ctx context.Context, text string) (string, error) {
	if s.chunker == nil {
		return s.Summarize(ctx, text)
	}

	chunks, err := s.chunker.Split(ctx, text)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	windows := mergeShort(chunks)
	if len(windows) <= 1 {
		return s.Summarize(ctx, text)
	}

	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		sum, err := s.Summarize(ctx, w)
		if err != nil {
			return "", err
		}
		parts = append(parts, sum)
	}
	return strings.Join(parts, " "), nil
}

// mergeShort carries short windows forward into the next one. A short tail is
// appended to the last full window.
func mergeShort(chunks []string) []string {
	windows := make([]string, 0, len(chunks))
	carry := ""
	for _, c := range chunks {
		if carry != "" {
			c = carry + " " + c
			carry = ""
		}
		if len(strings.Fields(c)) < MinWords {
			carry = c
			continue
		}
		windows = append(windows, c)
	}
	if carry != "" {
		if n := len(windows); n > 0 {
			windows[n-1] += " " + carry
		} else {
			windows = append(windows, carry)
		}
	}
	return windows
}
