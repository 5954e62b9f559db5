package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Verbosity controls how much of a result is emitted.
type Verbosity int

const (
	// Minimal keeps only the best candidate.
	Minimal Verbosity = iota
	// Standard keeps every candidate in input order.
	Standard
)

// ParseVerbosity resolves "minimal" or "standard". Empty selects Standard.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return Standard, nil
	case "minimal":
		return Minimal, nil
	default:
		return Standard, fmt.Errorf("output: unknown verbosity %q", s)
	}
}

// FormatResult returns a copy of the result trimmed according to verbosity.
// At Minimal the label list is reduced to the best candidate and Best is
// rewritten to 0.
func FormatResult(r model.ClassificationResult, v Verbosity) model.ClassificationResult {
	if v == Minimal && r.Best >= 0 && r.Best < len(r.Labels) {
		r.Labels = []model.CandidateLabel{r.Labels[r.Best]}
		r.Best = 0
	}
	return r
}
