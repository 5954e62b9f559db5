package zeroshot

import (
	"time"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Label is one scored candidate label.
type Label struct {
	Text        string  `json:"text"`
	Score       float32 `json:"score"`       // cosine similarity in [-1, 1]
	Probability float64 `json:"probability"` // share of the softmax over all candidates
	Unknown     bool    `json:"unknown,omitempty"`
}

// Result is the classification of one image.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Result struct {
	ID      string        `json:"id"`
	Source  string        `json:"source,omitempty"`
	Labels  []Label       `json:"labels"` // in the caller's order
	Best    Label         `json:"best"`
	Elapsed time.Duration `json:"elapsed_ns"`

	ranked []Label
}

// Ranked returns the labels by descending probability.
func (r Result) Ranked() []Label {
	return append([]Label(nil), r.ranked...)
}

func resultFromModel(cr model.ClassificationResult) Result {
	toLabel := func(c model.CandidateLabel) Label {
		return Label{Text: c.Text, Score: c.Score, Probability: c.Probability, Unknown: c.Unknown}
	}
	r := Result{
		ID:      cr.ID,
		Source:  cr.Source,
		Labels:  make([]Label, len(cr.Labels)),
		Best:    toLabel(cr.BestLabel()),
		Elapsed: cr.Elapsed,
	}
	for i, c := range cr.Labels {
		r.Labels[i] = toLabel(c)
	}
	for _, c := range cr.Ranked() {
		r.ranked = append(r.ranked, toLabel(c))
	}
	return r
}
