// Package vecmath holds the vector operations used to compare embeddings.
package vecmath

import "math"

// Normalize L2-normalizes v in place and returns it. A zero-magnitude vector
// is returned unchanged, so an all-zero embedding stays all-zero instead of
// becoming NaN.
func Normalize(v []float32) []float32 {
	mag := Norm(v)
	if mag == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
	return v
}

// Norm returns the Euclidean norm of v, accumulated in float64.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of a and b. When both are L2-normalized this is
// their cosine similarity in [-1, 1]. Vectors of different length score 0.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// Cosine returns the cosine similarity of two vectors that are not assumed to
// be normalized. Either vector being zero yields 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (na * nb))
}
