package tokencodec

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/crimson-sun/zeroshot/internal/model"
)

//go:embed default_vocab.yaml
var defaultVocabYAML []byte

// Vocabulary maps normalized label text to its token sequence. It is built
// once and never mutated, so a single instance can be shared by every request.
type Vocabulary struct {
	entries map[string]model.TokenSequence
}

// Entry is one label/token pair as stored in a vocabulary file.
type Entry struct {
	Text   string  `yaml:"text"`
	Tokens []int64 `yaml:"tokens"`
}

type vocabFile struct {
	Labels []Entry `yaml:"labels"`
}

// NewVocabulary validates entries and builds an immutable Vocabulary. Token
// lists may omit trailing padding; they are padded to model.ContextLength.
// Two entries that normalize to the same text are rejected.
func NewVocabulary(entries []Entry) (*Vocabulary, error) {
	m := make(map[string]model.TokenSequence, len(entries))
	for i, e := range entries {
		key := Normalize(e.Text)
		if key == "" {
			return nil, fmt.Errorf("vocab: entry %d has empty text", i)
		}
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("vocab: duplicate label %q", key)
		}
		seq, err := model.NewTokenSequence(e.Tokens)
		if err != nil {
			return nil, fmt.Errorf("vocab: label %q: %w", e.Text, err)
		}
		if seq.IsDegenerate() {
			return nil, fmt.Errorf("vocab: label %q has no tokens", e.Text)
		}
		m[key] = seq
	}
	return &Vocabulary{entries: m}, nil
}

// ParseVocabulary decodes a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var f vocabFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("vocab: parse: %w", err)
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("vocab: no labels defined")
	}
	return NewVocabulary(f.Labels)
}

// LoadVocabulary reads a YAML vocabulary file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	v, err := ParseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return v, nil
}

// DefaultVocabulary returns the built-in vocabulary: "a photo of a cat",
// "a photo of a dog" and "a photo of a car".
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabYAML)
	if err != nil {
		panic(fmt.Sprintf("tokencodec: embedded vocabulary is invalid: %v", err))
	}
	return v
}

// Labels returns the normalized label texts in sorted order.
func (v *Vocabulary) Labels() []string {
	labels := make([]string, 0, len(v.entries))
	for k := range v.entries {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// Size returns the number of labels.
func (v *Vocabulary) Size() int {
	return len(v.entries)
}

func (v *Vocabulary) get(key string) (model.TokenSequence, bool) {
	seq, ok := v.entries[key]
	return seq, ok
}
