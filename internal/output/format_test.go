package output

import (
	"testing"

	"github.com/crimson-sun/zeroshot/internal/model"
)

func baseResult() model.ClassificationResult {
	return model.ClassificationResult{
		ID:     "req-1",
		Source: "cat.jpg",
		Labels: []model.CandidateLabel{
			{Text: "a photo of a dog", Score: 0.21, Probability: 0.05},
			{Text: "a photo of a cat", Score: 0.28, Probability: 0.94},
			{Text: "a photo of a car", Score: 0.12, Probability: 0.01},
		},
		Best: 1,
	}
}

func TestFormatResultMinimal(t *testing.T) {
	r := FormatResult(baseResult(), Minimal)

	if len(r.Labels) != 1 {
		t.Fatalf("got %d labels, want 1", len(r.Labels))
	}
	if r.Best != 0 || r.BestLabel().Text != "a photo of a cat" {
		t.Errorf("best = %d (%q)", r.Best, r.BestLabel().Text)
	}
	if r.ID != "req-1" || r.Source != "cat.jpg" {
		t.Error("identity fields should be preserved")
	}
}

func TestFormatResultStandardPreservesAll(t *testing.T) {
	orig := baseResult()
	r := FormatResult(orig, Standard)
	if len(r.Labels) != 3 || r.Best != 1 {
		t.Errorf("Standard changed the result: %+v", r)
	}
}

func TestFormatResultMinimalDoesNotMutate(t *testing.T) {
	orig := baseResult()
	_ = FormatResult(orig, Minimal)
	if len(orig.Labels) != 3 || orig.Best != 1 {
		t.Error("FormatResult mutated its input")
	}
}

func TestFormatResultMinimalWithoutBest(t *testing.T) {
	r := FormatResult(model.ClassificationResult{Best: -1}, Minimal)
	if len(r.Labels) != 0 || r.Best != -1 {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in      string
		want    Verbosity
		wantErr bool
	}{
		{"", Standard, false},
		{"standard", Standard, false},
		{"MINIMAL", Minimal, false},
		{"full", Standard, true},
	}
	for _, tt := range tests {
		got, err := ParseVerbosity(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVerbosity(%q) = %v, %v", tt.in, got, err)
		}
	}
}
