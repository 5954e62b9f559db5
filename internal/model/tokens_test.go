package model

import "testing"

func TestNewTokenSequencePads(t *testing.T) {
	seq, err := NewTokenSequence([]int64{BeginID, 320, 1125, EndID})
	if err != nil {
		t.Fatalf("NewTokenSequence() error: %v", err)
	}
	if seq.Len() != 4 {
		t.Errorf("Len() = %d, want 4", seq.Len())
	}
	for i := 4; i < ContextLength; i++ {
		if seq[i] != PadID {
			t.Fatalf("seq[%d] = %d, want pad", i, seq[i])
		}
	}
}

func TestTokenSequenceValidate(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int64
		wantErr bool
	}{
		{"markers only", []int64{BeginID, EndID}, false},
		{"label", []int64{BeginID, 320, 2368, EndID}, false},
		{"degenerate", nil, false},
		{"no begin", []int64{320, EndID}, true},
		{"no end", []int64{BeginID, 320}, true},
		{"begin only", []int64{BeginID}, true},
		{"inner begin", []int64{BeginID, BeginID, EndID}, true},
		{"negative id", []int64{BeginID, -4, EndID}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s TokenSequence
			copy(s[:], tt.ids)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenSequenceTrailingGarbage(t *testing.T) {
	var s TokenSequence
	copy(s[:], []int64{BeginID, 320, EndID})
	s[10] = 55
	if err := s.Validate(); err == nil {
		t.Error("expected error for id after padding started")
	}
}

func TestAttentionMask(t *testing.T) {
	var s TokenSequence
	copy(s[:], []int64{BeginID, 320, 1125, EndID})
	mask := s.AttentionMask()
	var ones int
	for i, m := range mask {
		if m == 1 {
			ones++
			if i >= 4 {
				t.Errorf("mask[%d] = 1 on a pad position", i)
			}
		}
	}
	if ones != 4 {
		t.Errorf("mask has %d ones, want 4", ones)
	}

	var degenerate TokenSequence
	for i, m := range degenerate.AttentionMask() {
		if m != 0 {
			t.Fatalf("degenerate mask[%d] = %d, want 0", i, m)
		}
	}
}
