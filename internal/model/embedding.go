package model

// Embedding dimensions shared by both encoders.
const (
	EmbeddingDim = 512
	ImageSize    = 224
)

// Embedding is a vector in the shared image/text space. After normalization
// its Euclidean norm is 1, or 0 when the source vector was all-zero.
type Embedding []float32

// IsZero reports whether every component is zero.
func (e Embedding) IsZero() bool {
	for _, v := range e {
		if v != 0 {
			return false
		}
	}
	return true
}
