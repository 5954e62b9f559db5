package model

import "testing"

func TestRankedKeepsInputOrderOnTies(t *testing.T) {
	r := ClassificationResult{
		Labels: []CandidateLabel{
			{Text: "a", Probability: 0.2},
			{Text: "b", Probability: 0.4},
			{Text: "c", Probability: 0.4},
		},
		Best: 1,
	}
	ranked := r.Ranked()
	want := []string{"b", "c", "a"}
	for i, w := range want {
		if ranked[i].Text != w {
			t.Fatalf("ranked[%d] = %q, want %q", i, ranked[i].Text, w)
		}
	}
	if r.Labels[0].Text != "a" {
		t.Error("Ranked must not reorder the result's own labels")
	}
	if got := r.BestLabel().Text; got != "b" {
		t.Errorf("BestLabel() = %q, want b", got)
	}
}

func TestBestLabelOutOfRange(t *testing.T) {
	r := ClassificationResult{Best: -1}
	if got := r.BestLabel(); got.Text != "" {
		t.Errorf("BestLabel() = %+v, want zero value", got)
	}
}

func TestEmbeddingIsZero(t *testing.T) {
	if !make(Embedding, 4).IsZero() {
		t.Error("zero embedding reported non-zero")
	}
	if (Embedding{0, 0.1}).IsZero() {
		t.Error("non-zero embedding reported zero")
	}
}
