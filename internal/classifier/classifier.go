// Package classifier loads and runs the binary job-listing fraud model.
//
// A Classifier is a pure function over an ordered batch of texts: Predict
// returns one label in {0,1} per text and PredictProba one [genuine, fraudulent]
// probability pair per text, aligned by position.
package classifier

import (
	"context"
	"fmt"
	"math"
)

// Labels of the two classes.
const (
	LabelGenuine    = 0
	LabelFraudulent = 1
)

// Classifier is implemented by every model backend.
type Classifier interface {
	Predict(ctx context.Context, texts []string) ([]int, error)
	PredictProba(ctx context.Context, texts []string) ([][2]float64, error)
}

// Describer is an optional extension reporting model metadata.
type Describer interface {
	Describe() Info
}

// Pinger is an optional extension used by Holder.Load to verify a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Info is human-readable model metadata.
type Info struct {
	Backend string            `json:"backend"`
	Name    string            `json:"name,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Result is the aligned output of one Score call.
type Result struct {
	Labels        []int
	Probabilities []float64
}

// Score runs both Predict and PredictProba, checks the outputs against the
// contract and keeps only the positive-class probability.
func Score(ctx context.Context, c Classifier, texts []string) (*Result, error) {
	labels, err := c.Predict(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	pairs, err := c.PredictProba(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("predict_proba: %w", err)
	}
	if len(labels) != len(texts) {
		return nil, &OutputError{Op: "predict", Reason: fmt.Sprintf("got %d labels for %d texts", len(labels), len(texts))}
	}
	if len(pairs) != len(texts) {
		return nil, &OutputError{Op: "predict_proba", Reason: fmt.Sprintf("got %d probabilities for %d texts", len(pairs), len(texts))}
	}
	res := &Result{Labels: labels, Probabilities: make([]float64, len(pairs))}
	for i, l := range labels {
		if l != LabelGenuine && l != LabelFraudulent {
			return nil, &OutputError{Op: "predict", Reason: fmt.Sprintf("label %d at position %d", l, i)}
		}
	}
	for i, p := range pairs {
		v := p[1]
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, &OutputError{Op: "predict_proba", Reason: fmt.Sprintf("probability %v at position %d", v, i)}
		}
		res.Probabilities[i] = v
	}
	return res, nil
}
