// Package topics labels a single document with LDA topics.
//
// Every request fits a fresh model on the one document it is given, so the
// "topics" are groups of the document's most characteristic terms. The fit
// is online variational Bayes with one document per update.
package topics

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sakif/doc-insight/internal/nlp/stopwords"
)

const (
	passes         = 15
	iterations     = 50
	gammaThreshold = 0.001
	wordsPerTopic  = 6
)

// Modeler fits per-document topic models. It is safe for concurrent use.
type Modeler struct {
	seed uint64
}

// New returns a Modeler whose fits are reproducible for a given seed.
func New(seed int64) *Modeler {
	return &Modeler{seed: uint64(seed)}
}

// NumTopics picks the topic count from the number of non-stop-word tokens.
func NumTopics(tokenCount int) int {
	switch {
	case tokenCount <= 200:
		return 1
	case tokenCount <= 500:
		return 2
	default:
		return 3
	}
}

// Tokens lowercases text, splits on whitespace and drops stop words.
// Punctuation stays attached to its word.
func Tokens(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if !stopwords.NLTK.Contains(w) {
			out = append(out, w)
		}
	}
	return out
}

// Topics returns one label per topic, each the topic's top terms joined
// with ", ". A document with no usable tokens has no topics.
func (m *Modeler) Topics(ctx context.Context, text string) ([]string, error) {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return []string{}, nil
	}

	vocab, counts := bagOfWords(tokens)
	k := NumTopics(len(tokens))

	lambda, err := m.fit(ctx, counts, k)
	if err != nil {
		return nil, err
	}

	labels := make([]string, k)
	for t := range k {
		labels[t] = strings.Join(topTerms(lambda[t], vocab, wordsPerTopic), ", ")
	}
	return labels, nil
}

// bagOfWords builds a dictionary with ids in sorted token order and the
// count of each id.
func bagOfWords(tokens []string) ([]string, []float64) {
	freq := make(map[string]int)
	for _, t := range tokens {
		freq[t]++
	}
	vocab := make([]string, 0, len(freq))
	for w := range freq {
		vocab = append(vocab, w)
	}
	sort.Strings(vocab)

	counts := make([]float64, len(vocab))
	for i, w := range vocab {
		counts[i] = float64(freq[w])
	}
	return vocab, counts
}

// fit returns the variational topic-term parameters lambda (k × V).
func (m *Modeler) fit(ctx context.Context, counts []float64, k int) ([][]float64, error) {
	// Gamma(100, 1/100) initialisation for lambda and gamma.
	prior := distuv.Gamma{Alpha: 100, Beta: 100, Src: rand.NewPCG(m.seed, m.seed)}
	v := len(counts)
	alpha := 1 / float64(k)
	eta := 1 / float64(k)

	lambda := make([][]float64, k)
	for t := range lambda {
		lambda[t] = make([]float64, v)
		for w := range lambda[t] {
			lambda[t][w] = prior.Rand()
		}
	}

	expElogbeta := make([][]float64, k)
	for t := range expElogbeta {
		expElogbeta[t] = make([]float64, v)
	}

	for pass := range passes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("topics: %w", err)
		}

		for t := range k {
			dirichletExpectation(lambda[t], expElogbeta[t])
		}

		sstats := estep(prior, counts, expElogbeta, alpha)

		rho := math.Pow(1+float64(pass), -0.5)
		for t := range k {
			for w := range v {
				lambda[t][w] = (1-rho)*lambda[t][w] + rho*(eta+sstats[t][w])
			}
		}
	}
	return lambda, nil
}

// estep infers the document's topic proportions and returns the expected
// sufficient statistics for lambda.
func estep(prior distuv.Gamma, counts []float64, expElogbeta [][]float64, alpha float64) [][]float64 {
	k := len(expElogbeta)
	v := len(counts)

	gamma := make([]float64, k)
	for t := range gamma {
		gamma[t] = prior.Rand()
	}
	expElogtheta := make([]float64, k)
	dirichletExpectation(gamma, expElogtheta)

	phinorm := make([]float64, v)
	computePhinorm := func() {
		for w := range v {
			s := 1e-100
			for t := range k {
				s += expElogtheta[t] * expElogbeta[t][w]
			}
			phinorm[w] = s
		}
	}
	computePhinorm()

	last := make([]float64, k)
	for range iterations {
		copy(last, gamma)
		for t := range k {
			s := 0.0
			for w := range v {
				s += counts[w] / phinorm[w] * expElogbeta[t][w]
			}
			gamma[t] = alpha + expElogtheta[t]*s
		}
		dirichletExpectation(gamma, expElogtheta)
		computePhinorm()

		change := 0.0
		for t := range k {
			change += math.Abs(gamma[t] - last[t])
		}
		if change/float64(k) < gammaThreshold {
			break
		}
	}

	sstats := make([][]float64, k)
	for t := range k {
		sstats[t] = make([]float64, v)
		for w := range v {
			sstats[t][w] = expElogtheta[t] * counts[w] / phinorm[w] * expElogbeta[t][w]
		}
	}
	return sstats
}

// dirichletExpectation writes exp(E[log x]) for x ~ Dir(params) into dst.
func dirichletExpectation(params, dst []float64) {
	psiSum := mathext.Digamma(floats.Sum(params))
	for i, p := range params {
		dst[i] = math.Exp(mathext.Digamma(p) - psiSum)
	}
}

// topTerms returns the n highest-weight terms of one topic. Equal weights
// fall back to dictionary order.
func topTerms(weights []float64, vocab []string, n int) []string {
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] > weights[idx[b]]
	})

	n = min(n, len(idx))
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		if _, dup := seen[vocab[i]]; dup {
			continue
		}
		seen[vocab[i]] = struct{}{}
		out = append(out, vocab[i])
	}
	return out
}
