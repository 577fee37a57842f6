// Package embedding maps text to dense vectors.
package embedding

import (
	"errors"
	"math"
)

// DefaultDimensions is the output width of allenai-specter.
const DefaultDimensions = 768

// ErrDimensionMismatch is returned when a model produces vectors of an unexpected width.
var ErrDimensionMismatch = errors.New("unexpected embedding dimensions")

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // e.g. 768 dimensions for allenai-specter
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Normalize scales v to unit L2 length in place, so inner product equals
// cosine similarity. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// Vectors extracts the raw vectors from a batch of embeddings.
func Vectors(embs []Embedding) [][]float32 {
	out := make([][]float32, len(embs))
	for i, e := range embs {
		out[i] = e.Vector
	}
	return out
}
