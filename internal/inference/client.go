// Package inference talks to the model-serving sidecar and the embeddings
// endpoint. Each client satisfies one of the model interfaces declared by
// the nlp packages.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/doc-insight/internal/nlp/chunk"
	"github.com/sakif/doc-insight/internal/nlp/sentiment"
	"github.com/sakif/doc-insight/internal/nlp/summarize"
)

// Client calls a sidecar that serves Hugging Face pipelines at
// POST /models/{model} plus /tokenize and /detokenize for the summarization
// tokenizer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client for the sidecar at baseURL. token is sent as a
// bearer token when non-empty.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Summarizer binds the client to a summarization model.
func (c *Client) Summarizer(model string) *SummarizationModel {
	return &SummarizationModel{c: c, model: model}
}

// Classifier binds the client to a text classification model.
func (c *Client) Classifier(model string) *ClassificationModel {
	return &ClassificationModel{c: c, model: model}
}

// Tokenizer returns the sidecar's tokenizer endpoints.
func (c *Client) Tokenizer() *Tokenizer {
	return &Tokenizer{c: c}
}

// SummarizationModel implements summarize.Generator.
type SummarizationModel struct {
	c     *Client
	model string
}

var _ summarize.Generator = (*SummarizationModel)(nil)

type pipelineRequest struct {
	Inputs     string `json:"inputs"`
	Parameters any    `json:"parameters,omitempty"`
}

// Summarize returns the first generated summary.
func (m *SummarizationModel) Summarize(ctx context.Context, text string, p summarize.Params) (string, error) {
	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := m.c.post(ctx, modelPath(m.model), pipelineRequest{Inputs: text, Parameters: p}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("inference: %s returned no summary", m.model)
	}
	return out[0].SummaryText, nil
}

// ClassificationModel implements sentiment.Classifier.
type ClassificationModel struct {
	c     *Client
	model string
}

var _ sentiment.Classifier = (*ClassificationModel)(nil)

// Classify returns the model's predictions. The pipeline answers either a
// flat list or a list per input; both are accepted.
func (m *ClassificationModel) Classify(ctx context.Context, text string) ([]sentiment.Prediction, error) {
	var raw json.RawMessage
	if err := m.c.post(ctx, modelPath(m.model), pipelineRequest{Inputs: text}, &raw); err != nil {
		return nil, err
	}

	var flat []sentiment.Prediction
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var nested [][]sentiment.Prediction
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("inference: decoding %s predictions: %w", m.model, err)
	}
	if len(nested) == 0 {
		return nil, nil
	}
	return nested[0], nil
}

// Tokenizer implements chunk.Tokenizer.
type Tokenizer struct {
	c *Client
}

var _ chunk.Tokenizer = (*Tokenizer)(nil)

// Encode returns the token ids of text without truncation.
func (t *Tokenizer) Encode(ctx context.Context, text string) ([]int, error) {
	var out struct {
		IDs []int `json:"ids"`
	}
	if err := t.c.post(ctx, "/tokenize", map[string]string{"inputs": text}, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

// Decode turns ids back into text, skipping special tokens.
func (t *Tokenizer) Decode(ctx context.Context, ids []int) (string, error) {
	req := struct {
		IDs               []int `json:"ids"`
		SkipSpecialTokens bool  `json:"skip_special_tokens"`
	}{IDs: ids, SkipSpecialTokens: true}

	var out struct {
		Text string `json:"text"`
	}
	if err := t.c.post(ctx, "/detokenize", req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// StatusError is returned for non-2xx sidecar responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference: HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// post sends body as JSON and decodes a JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("inference: marshal request: %w", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference: POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("inference: empty response from %s", endpoint)
		}
		return fmt.Errorf("inference: decode response from %s: %w", endpoint, err)
	}
	return nil
}

// modelPath escapes each segment so ids like "org/name" keep their slash.
func modelPath(model string) string {
	parts := strings.Split(model, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/models/" + strings.Join(parts, "/")
}
