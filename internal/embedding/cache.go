package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

var embeddingsBucket = []byte("embeddings")

// CachedProvider memoizes another provider's vectors in a bbolt file,
// keyed by a hash of the model name and text.
type CachedProvider struct {
	inner Provider
	db    *bolt.DB
}

// NewCachedProvider opens (or creates) the cache file at path.
// The caller must Close the returned provider.
func NewCachedProvider(inner Provider, path string) (*CachedProvider, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(embeddingsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}
	return &CachedProvider{inner: inner, db: db}, nil
}

// Close releases the cache file.
func (c *CachedProvider) Close() error {
	return c.db.Close()
}

// Embed returns a cached vector or computes and stores a new one.
func (c *CachedProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return embs[0], nil
}

// EmbedBatch serves hits from the cache and embeds only the misses, in one call.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	keys := make([][]byte, len(texts))
	var missIdx []int
	var missTexts []string

	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(embeddingsBucket)
		for i, text := range texts {
			keys[i] = cacheKey(c.inner.ModelName(), text)
			if v := b.Get(keys[i]); v != nil {
				if vec, ok := decodeVector(v, c.inner.Dimensions()); ok {
					out[i] = Embedding{Vector: vec}
					continue
				}
			}
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading embedding cache: %w", err)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(embeddingsBucket)
		for j, i := range missIdx {
			out[i] = fresh[j]
			if err := b.Put(keys[i], encodeVector(fresh[j].Vector)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing embedding cache: %w", err)
	}
	return out, nil
}

// ModelName returns the wrapped provider's model name.
func (c *CachedProvider) ModelName() string {
	return c.inner.ModelName()
}

// Dimensions returns the wrapped provider's dimensions.
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// Len returns the number of cached vectors.
func (c *CachedProvider) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(embeddingsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func cacheKey(model, text string) []byte {
	sum := blake2b.Sum256([]byte(model + "\x00" + text))
	return sum[:]
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// decodeVector copies v out of the bbolt page, which is only valid inside the transaction.
func decodeVector(v []byte, dims int) ([]float32, bool) {
	if len(v) != 4*dims {
		return nil, false
	}
	out := make([]float32, dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(v[4*i:]))
	}
	return out, true
}
