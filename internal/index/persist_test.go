package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "index.gob")
	idx := NewFlatIP(2)
	idx.Add(context.Background(), [][]float32{{1, 0}, {0, 1}})

	if err := Save(path, idx, "specter", "fp1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, snap, err := Load(path, "specter", "fp1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Count() != 2 || loaded.Dimensions() != 2 {
		t.Errorf("loaded Count=%d Dimensions=%d, want 2 and 2", loaded.Count(), loaded.Dimensions())
	}
	if snap.ModelName != "specter" || snap.CreatedAt.IsZero() {
		t.Errorf("snapshot metadata = %+v", snap)
	}
	row, _ := loaded.row(1)
	if row[1] != 1 {
		t.Errorf("Row(1) = %v, want [0 1]", row)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.gob")

	if _, _, err := Load(path, "", ""); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Load() missing = %v, want ErrIndexNotFound", err)
	}

	idx := NewFlatIP(1)
	idx.Add(context.Background(), [][]float32{{1}})
	if err := Save(path, idx, "m", "fp"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		name      string
		model, fp string
		wantErr   error
	}{
		{"other catalog", "m", "other", ErrStale},
		{"other model", "other", "fp", ErrStale},
		{"no expectations", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(path, tt.model, tt.fp)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
