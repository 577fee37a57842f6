package index

import (
	"context"
	"errors"
	"testing"
)

func TestFlatIP_Search(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIP(3)
	err := idx.Add(ctx, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.6, 0.8, 0},
		{0, 0, 1},
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name    string
		query   []float32
		k       int
		wantIDs []int
	}{
		{"top one", []float32{1, 0, 0}, 1, []int{0}},
		{"ordered by score", []float32{0, 1, 0}, 3, []int{1, 2, 0}},
		{"k larger than count", []float32{0, 0, 1}, 10, []int{3, 0, 1, 2}},
		{"k zero", []float32{1, 0, 0}, 0, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(ctx, tt.query, tt.k)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(hits) != len(tt.wantIDs) {
				t.Fatalf("len(hits) = %d, want %d", len(hits), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if hits[i].ID != id {
					t.Errorf("hits[%d].ID = %d, want %d", i, hits[i].ID, id)
				}
			}
			for i := 1; i < len(hits); i++ {
				if hits[i].Score > hits[i-1].Score {
					t.Errorf("scores not descending at %d: %v > %v", i, hits[i].Score, hits[i-1].Score)
				}
			}
		})
	}
}

func TestFlatIP_TiesKeepRowOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIP(2)
	idx.Add(ctx, [][]float32{{1, 0}, {1, 0}, {1, 0}})

	hits, _ := idx.Search(ctx, []float32{1, 0}, 3)
	for i, h := range hits {
		if h.ID != i {
			t.Errorf("hits[%d].ID = %d, want %d", i, h.ID, i)
		}
	}
}

func TestFlatIP_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIP(3)

	if err := idx.Add(ctx, [][]float32{{1, 0, 0}, {1, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add() error = %v, want ErrDimensionMismatch", err)
	}
	if idx.Count() != 0 {
		t.Errorf("Count() = %d after rejected Add, want 0", idx.Count())
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestFlatIP_Empty(t *testing.T) {
	idx := NewFlatIP(768)
	if idx.Count() != 0 {
		t.Errorf("Count() = %d, want 0", idx.Count())
	}
	if idx.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", idx.Dimensions())
	}
	hits, err := idx.Search(context.Background(), make([]float32, 768), 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("Search() on empty = %v, %v; want empty, nil", hits, err)
	}
}

// row returns a copy of the vector stored at id.
func (f *FlatIP) row(id int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if id < 0 || id >= f.count() {
		return nil, false
	}
	out := make([]float32, f.dims)
	copy(out, f.data[id*f.dims:(id+1)*f.dims])
	return out, true
}
