package model

import (
	"sort"
	"time"
)

// CandidateLabel is one label scored within a single classification request.
type CandidateLabel struct {
	Text        string        `json:"text"`
	Tokens      TokenSequence `json:"-"`
	Score       float32       `json:"score"`       // raw cosine similarity
	Probability float64       `json:"probability"` // scaled softmax over all candidates
	Unknown     bool          `json:"unknown,omitempty"`
}

// ClassificationResult is the outcome of scoring one image against a label set.
// Labels keep the caller's input order.
type ClassificationResult struct {
	ID      string           `json:"id"`
	Source  string           `json:"source,omitempty"`
	Labels  []CandidateLabel `json:"labels"`
	Best    int              `json:"best"`
	Elapsed time.Duration    `json:"elapsed_ns"`
}

// BestLabel returns the highest-probability candidate, or the zero value when
// there is none.
func (r ClassificationResult) BestLabel() CandidateLabel {
	if r.Best < 0 || r.Best >= len(r.Labels) {
		return CandidateLabel{}
	}
	return r.Labels[r.Best]
}

// Ranked returns the candidates sorted by descending probability. Equal
// probabilities keep input order.
func (r ClassificationResult) Ranked() []CandidateLabel {
	out := make([]CandidateLabel, len(r.Labels))
	copy(out, r.Labels)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}
