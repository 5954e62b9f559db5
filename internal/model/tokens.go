package model

import "fmt"

// ContextLength is the fixed number of token positions in a TokenSequence.
const ContextLength = 77

// Reserved token ids.
const (
	PadID   int64 = 0
	BeginID int64 = 49406
	EndID   int64 = 49407
)

// TokenSequence is a fixed-length token id buffer:
// BeginID, real tokens, EndID, then PadID to the end.
// The all-pad sequence is the degenerate value returned for unknown text.
type TokenSequence [ContextLength]int64

// IsDegenerate reports whether every position holds PadID.
func (s TokenSequence) IsDegenerate() bool {
	for _, id := range s {
		if id != PadID {
			return false
		}
	}
	return true
}

// Len returns the number of non-pad positions, markers included.
func (s TokenSequence) Len() int {
	n := 0
	for _, id := range s {
		if id == PadID {
			break
		}
		n++
	}
	return n
}

// AttentionMask returns 1 for every non-pad id and 0 for pad positions.
func (s TokenSequence) AttentionMask() [ContextLength]int64 {
	var mask [ContextLength]int64
	for i, id := range s {
		if id != PadID {
			mask[i] = 1
		}
	}
	return mask
}

// Validate checks the marker layout. The degenerate sequence is valid.
func (s TokenSequence) Validate() error {
	if s.IsDegenerate() {
		return nil
	}
	if s[0] != BeginID {
		return fmt.Errorf("token sequence: position 0 is %d, want begin marker %d", s[0], BeginID)
	}
	n := s.Len()
	if n < 2 || s[n-1] != EndID {
		return fmt.Errorf("token sequence: end marker %d must follow the last real token", EndID)
	}
	for i := 1; i < n-1; i++ {
		if s[i] == BeginID || s[i] == EndID {
			return fmt.Errorf("token sequence: marker %d at position %d", s[i], i)
		}
		if s[i] < 0 {
			return fmt.Errorf("token sequence: negative id %d at position %d", s[i], i)
		}
	}
	for i := n; i < ContextLength; i++ {
		if s[i] != PadID {
			return fmt.Errorf("token sequence: non-pad id %d at position %d after end marker", s[i], i)
		}
	}
	return nil
}

// NewTokenSequence wraps ids (begin and end markers included) and pads them to
// ContextLength.
func NewTokenSequence(ids []int64) (TokenSequence, error) {
	var s TokenSequence
	if len(ids) > ContextLength {
		return s, fmt.Errorf("token sequence: %d ids exceed context length %d", len(ids), ContextLength)
	}
	copy(s[:], ids)
	if err := s.Validate(); err != nil {
		return TokenSequence{}, err
	}
	return s, nil
}
