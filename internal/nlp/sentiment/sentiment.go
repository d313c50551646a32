// Package sentiment scores the overall polarity of a text.
package sentiment

import (
	"context"
	"errors"
	"fmt"
)

// Prediction is one label the classifier considered.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier runs a text classification model.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Prediction, error)
}

// ErrNoPrediction is returned when the classifier answers with no labels.
var ErrNoPrediction = errors.New("sentiment: classifier returned no predictions")

// Result is the most confident prediction.
type Result struct {
	Label string
	Score float64
}

// String renders the result as "LABEL (0.99)".
func (r Result) String() string {
	return fmt.Sprintf("%s (%.2f)", r.Label, r.Score)
}

// Analyzer wraps a Classifier.
type Analyzer struct {
	clf Classifier
}

// New returns an Analyzer.
func New(clf Classifier) *Analyzer {
	return &Analyzer{clf: clf}
}

// Analyze returns the classifier's highest-scoring label.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	preds, err := a.clf.Classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("sentiment: %w", err)
	}
	if len(preds) == 0 {
		return Result{}, ErrNoPrediction
	}

	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return Result{Label: best.Label, Score: best.Score}, nil
}
