// Package nli wraps the external natural-language-inference classifier.
package nli

import "context"

// PairScores holds the class probabilities for one premise/hypothesis pair.
// The three values sum to 1.
type PairScores struct {
	Entailment    float64 `json:"entailment"`
	Contradiction float64 `json:"contradiction"`
	Neutral       float64 `json:"neutral"`
}

// Pair is one premise/hypothesis input. The evidence snippet is the premise,
// the claim is the hypothesis.
type Pair struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

// Classifier is the external NLI collaborator. A batch call returns one
// PairScores per input pair, in order.
type Classifier interface {
	ClassifyPairs(ctx context.Context, pairs []Pair) ([]PairScores, error)
}
