package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FlatIP is an exact, in-memory inner-product index.
// Vectors are stored row-major in a single slice.
type FlatIP struct {
	dims int

	mu   sync.RWMutex
	data []float32
}

// NewFlatIP creates an empty index of the given width.
func NewFlatIP(dims int) *FlatIP {
	return &FlatIP{dims: dims}
}

// Add appends vectors to the index.
func (f *FlatIP) Add(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), f.dims)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search scores every row against query and returns the top k.
// Equal scores keep ascending row order.
func (f *FlatIP) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), f.dims)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.count()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}
	if k > n {
		k = n
	}

	hits := make([]Hit, n)
	for row := 0; row < n; row++ {
		vec := f.data[row*f.dims : (row+1)*f.dims]
		var dot float32
		for i, q := range query {
			dot += q * vec[i]
		}
		hits[row] = Hit{Score: dot, ID: row}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits[:k], nil
}

// Count returns the number of rows.
func (f *FlatIP) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count()
}

func (f *FlatIP) count() int {
	if f.dims == 0 {
		return 0
	}
	return len(f.data) / f.dims
}

// Dimensions returns the vector width.
func (f *FlatIP) Dimensions() int {
	return f.dims
}
