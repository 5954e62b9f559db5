// Package tokencodec maps label text to fixed-length token sequences by
// closed-vocabulary lookup. It does not tokenize arbitrary text.
package tokencodec

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Lookuper resolves label text to a token sequence.
type Lookuper interface {
	// Lookup returns the sequence for text, or the all-pad sequence when text
	// is not recognized.
	Lookup(text string) model.TokenSequence
	// LookupKnown is Lookup plus whether text was recognized.
	LookupKnown(text string) (model.TokenSequence, bool)
}

// Codec performs vocabulary lookup.
type Codec struct {
	vocab *Vocabulary
}

// New creates a Codec over an immutable vocabulary.
func New(v *Vocabulary) *Codec {
	return &Codec{vocab: v}
}

// Lookup normalizes text and returns its token sequence. Unknown text yields
// the degenerate all-pad sequence; callers can detect it with IsDegenerate.
func (c *Codec) Lookup(text string) model.TokenSequence {
	seq, ok := c.LookupKnown(text)
	if !ok {
		slog.Debug("label not in vocabulary", "label", text)
	}
	return seq
}

// LookupKnown returns the token sequence and whether text was recognized.
func (c *Codec) LookupKnown(text string) (model.TokenSequence, bool) {
	if c == nil || c.vocab == nil {
		return model.TokenSequence{}, false
	}
	return c.vocab.get(Normalize(text))
}

// Normalize trims surrounding whitespace, case-folds, and composes text to
// NFC so that lookups are insensitive to case and Unicode representation.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	text = cases.Fold().String(text)
	return norm.NFC.String(text)
}
