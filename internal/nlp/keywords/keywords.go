// Package keywords ranks 1- and 2-word keyphrases by how close their
// embeddings are to the embedding of the whole document.
package keywords

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/sakif/doc-insight/internal/nlp/stopwords"
)

// DefaultTopN is the number of phrases returned.
const DefaultTopN = 5

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor selects keyphrases with an Embedder.
type Extractor struct {
	emb  Embedder
	topN int
}

// New returns an Extractor returning up to DefaultTopN phrases.
func New(emb Embedder) *Extractor {
	return &Extractor{emb: emb, topN: DefaultTopN}
}

// Word tokens: runs of two or more letters, digits, marks or underscores.
var tokenRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Candidates returns the unique 1- and 2-grams of text after lowercasing and
// removing stop words, sorted.
func Candidates(text string) []string {
	var tokens []string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if !stopwords.Sklearn.Contains(tok) {
			tokens = append(tokens, tok)
		}
	}

	seen := make(map[string]struct{}, 2*len(tokens))
	for i, tok := range tokens {
		seen[tok] = struct{}{}
		if i+1 < len(tokens) {
			seen[tok+" "+tokens[i+1]] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Extract returns the top phrases, most similar first. A text without
// candidates returns an empty list and makes no embedding call.
func (e *Extractor) Extract(ctx context.Context, text string) ([]string, error) {
	cands := Candidates(text)
	if len(cands) == 0 {
		return []string{}, nil
	}

	vecs, err := e.emb.Embed(ctx, append([]string{text}, cands...))
	if err != nil {
		return nil, fmt.Errorf("keywords: embedding: %w", err)
	}
	if len(vecs) != len(cands)+1 {
		return nil, fmt.Errorf("keywords: embedder returned %d vectors for %d inputs", len(vecs), len(cands)+1)
	}

	doc := vecs[0]
	scores := make([]float64, len(cands))
	for i := range cands {
		scores[i] = cosine(doc, vecs[i+1])
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	n := min(e.topN, len(order))
	out := make([]string, n)
	for i := range n {
		out[i] = cands[order[i]]
	}
	return out, nil
}

// cosine is the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	x, y := widen(a), widen(b)
	na, nb := floats.Norm(x, 2), floats.Norm(y, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(x, y) / (na * nb)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
