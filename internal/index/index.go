// Package index provides inner-product similarity indexes over journal embeddings.
//
// Row ids are positions: the i-th vector added corresponds to the i-th
// journal of the catalog the index was built from.
package index

import (
	"context"
	"errors"
	"io"
)

// Errors returned by index operations.
var (
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrIndexNotFound      = errors.New("index file not found")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrStale              = errors.New("index was built from a different catalog")
)

// Hit is a search result: a row id and its inner-product score.
type Hit struct {
	Score float32 `json:"score"`
	ID    int     `json:"id"`
}

// Index stores vectors and answers nearest-neighbour queries by inner product.
type Index interface {
	// Add appends vectors; their ids continue from Count().
	Add(ctx context.Context, vectors [][]float32) error

	// Search returns up to k hits ordered by descending score.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Count returns the number of indexed vectors.
	Count() int

	// Dimensions returns the vector width.
	Dimensions() int
}

// Publisher is implemented by indexes that must be made visible once
// fully built.
type Publisher interface {
	Publish(ctx context.Context) error
}

// Close releases idx if it holds external resources.
func Close(idx Index) error {
	if c, ok := idx.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
