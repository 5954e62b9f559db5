package engine

import (
	"fmt"
	"image"
	"sort"

	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/engine/preprocess"
	"github.com/crimson-sun/zeroshot/internal/engine/vecmath"
	"github.com/crimson-sun/zeroshot/internal/model"
)

// Calibration is the similarity between an image embedded under one
// normalization convention and a reference embedding of the same image.
type Calibration struct {
	Normalization preprocess.Normalization
	Similarity    float32
}

// Calibrate embeds img once per normalization (all built-in conventions when
// none are given) and compares each embedding to reference, an embedding of
// the same image produced by the upstream reference pipeline. Results are
// sorted by descending similarity, so the first entry is the convention that
// best reproduces the reference.
func Calibrate(enc *encoder.ImageEncoder, img image.Image, reference []float32, norms ...preprocess.Normalization) ([]Calibration, error) {
	if len(reference) != model.EmbeddingDim {
		return nil, fmt.Errorf("engine: reference embedding has %d values, want %d", len(reference), model.EmbeddingDim)
	}
	if enc == nil {
		return nil, &encoder.ConfigurationError{Encoder: "image", Reason: "not loaded"}
	}
	if len(norms) == 0 {
		norms = preprocess.Normalizations()
	}

	ref := make([]float32, len(reference))
	copy(ref, reference)
	vecmath.Normalize(ref)

	results := make([]Calibration, 0, len(norms))
	for _, n := range norms {
		tensor, err := preprocess.New(n).Process(img)
		if err != nil {
			return nil, err
		}
		emb, err := enc.Encode(tensor)
		if err != nil {
			return nil, fmt.Errorf("engine: calibrate %s: %w", n.Name, err)
		}
		results = append(results, Calibration{
			Normalization: n,
			Similarity:    vecmath.Dot(vecmath.Normalize(emb), ref),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}
