package inference

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sakif/doc-insight/internal/nlp/keywords"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint. It serves
// sentence-transformers models behind vLLM, TEI or the sidecar as well as
// OpenAI itself.
type Embedder struct {
	client *openai.Client
	model  string
}

var _ keywords.Embedder = (*Embedder)(nil)

// NewEmbedder returns an Embedder for baseURL (including the /v1 suffix).
func NewEmbedder(baseURL, apiKey, model string) *Embedder {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &Embedder{client: openai.NewClientWithConfig(cfg), model: model}
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("inference: embeddings: %w", err)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("inference: missing embedding for input %d", i)
		}
	}
	return vecs, nil
}
