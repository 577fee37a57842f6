package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CurrentSnapshotVersion is the on-disk format version.
// Increment this when making breaking changes to Snapshot.
const CurrentSnapshotVersion = 1

// Snapshot is the persisted form of a FlatIP index.
type Snapshot struct {
	Version     int
	ModelName   string
	Dimensions  int
	Fingerprint string // identifies the catalog the rows correspond to
	CreatedAt   time.Time
	Data        []float32
}

// Save writes idx to path using GOB encoding, via a temp file and rename.
func Save(path string, idx *FlatIP, modelName, fingerprint string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	snap := Snapshot{
		Version:     CurrentSnapshotVersion,
		ModelName:   modelName,
		Dimensions:  idx.dims,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
		Data:        idx.data,
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Load reads a snapshot and checks that it matches the expected catalog
// fingerprint and model. An empty expectation skips that check.
func Load(path, modelName, fingerprint string) (*FlatIP, *Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrIndexNotFound
		}
		return nil, nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, nil, fmt.Errorf("decoding index: %w", err)
	}
	if snap.Version != CurrentSnapshotVersion {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, snap.Version, CurrentSnapshotVersion)
	}
	if fingerprint != "" && snap.Fingerprint != fingerprint {
		return nil, nil, ErrStale
	}
	if modelName != "" && snap.ModelName != modelName {
		return nil, nil, fmt.Errorf("%w: built with %s, want %s", ErrStale, snap.ModelName, modelName)
	}
	if snap.Dimensions <= 0 || len(snap.Data)%snap.Dimensions != 0 {
		return nil, nil, fmt.Errorf("decoding index: %d values do not fill rows of %d", len(snap.Data), snap.Dimensions)
	}

	idx := &FlatIP{dims: snap.Dimensions, data: snap.Data}
	snap.Data = nil
	return idx, &snap, nil
}
