package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/matsen/journalrec/internal/config"
	"github.com/matsen/journalrec/internal/embedding"
	"github.com/matsen/journalrec/internal/index"
	"github.com/matsen/journalrec/internal/logger"
	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/openalex"
	"github.com/matsen/journalrec/internal/storage"
	"github.com/matsen/journalrec/internal/topics"
)

// closers collects resources opened while wiring, some of them lazily.
type closers struct {
	mu  sync.Mutex
	fns []func() error
}

func (c *closers) add(fn func() error) {
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

func (c *closers) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.fns = nil
	return errors.Join(errs...)
}

// FromConfig wires a Session from cfg. Optional services that cannot be
// reached (catalog database, Redis) are logged and skipped. The returned
// function releases everything the session opened.
func FromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger, extra ...Option) (*Session, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	res := &closers{}

	opts := []Option{
		WithLogger(log),
		WithFetcher(NewFetcher(cfg.OpenAlex)),
		WithEmbedder(newEmbedderFunc(cfg.Embedding, log, res)),
		WithTopics(newExtractor(cfg.Topics), cfg.Topics.TopK),
		WithTTL(cfg.OpenAlex.TTL),
		WithFetchLimits(cfg.OpenAlex.PerPage, cfg.OpenAlex.MaxPages),
		WithBuildOptions(cfg.Embedding.BatchSize, cfg.Embedding.Concurrency),
	}

	switch cfg.Index.Backend {
	case "qdrant":
		opts = append(opts, WithIndexFactory(qdrantFactory(cfg.Index)))
	default:
		opts = append(opts, WithIndexFactory(index.FlatFactory))
		if cfg.Index.Path != "" {
			opts = append(opts, WithIndexPath(cfg.Index.Path))
		}
	}

	if path := cfg.Storage.CatalogDB; path != "" {
		db, err := OpenCatalogDB(path)
		if err != nil {
			log.Warn("catalog database unavailable, continuing without it", "path", path, "error", err)
		} else {
			res.add(db.Close)
			opts = append(opts, WithStore(db))
		}
	}

	src := metrics.Source(metrics.NewRandomSource(nil))
	if cfg.Metrics.RedisURL != "" {
		cached, err := metrics.NewCachedSource(src, cfg.Metrics.RedisURL, cfg.Metrics.TTL, metrics.WithCacheLogger(log))
		if err == nil {
			err = cached.Ping(ctx)
			if err != nil {
				cached.Close()
			}
		}
		if err != nil {
			log.Warn("metrics cache unavailable, continuing without it", "redis_url", cfg.Metrics.RedisURL, "error", err)
		} else {
			res.add(cached.Close)
			src = cached
		}
	}
	opts = append(opts, WithMetrics(src))

	s := New(append(opts, extra...)...)
	cleanup := func() error {
		err := s.Close()
		return errors.Join(err, res.closeAll())
	}
	return s, cleanup, nil
}

// NewFetcher builds an OpenAlex client from configuration.
func NewFetcher(cfg config.OpenAlexConfig) *openalex.Client {
	var opts []openalex.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, openalex.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Mailto != "" {
		opts = append(opts, openalex.WithMailto(cfg.Mailto))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, openalex.WithTimeout(cfg.Timeout))
	}
	return openalex.NewClient(opts...)
}

// newEmbedderFunc selects the configured provider and, unless it fell
// back to random vectors, wraps it in the on-disk embedding cache.
func newEmbedderFunc(cfg config.EmbeddingConfig, log *logger.Logger, res *closers) EmbedderFunc {
	return func(ctx context.Context) (embedding.Provider, error) {
		p, warn := embedding.Select(ctx, embedding.SelectOptions{
			Provider:   cfg.Provider,
			BaseURL:    cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
		if p == nil || cfg.CachePath == "" || embedding.IsFallback(p) {
			return p, warn
		}

		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0755); err != nil {
			log.Warn("embedding cache unavailable", "path", cfg.CachePath, "error", err)
			return p, warn
		}
		cached, err := embedding.NewCachedProvider(p, cfg.CachePath)
		if err != nil {
			log.Warn("embedding cache unavailable", "path", cfg.CachePath, "error", err)
			return p, warn
		}
		res.add(cached.Close)
		return cached, warn
	}
}

func newExtractor(cfg config.TopicsConfig) *topics.Extractor {
	if cfg.SpacyURL == "" {
		return topics.NewExtractor(nil)
	}
	return topics.NewExtractor(topics.NewDisplaCyChunker(cfg.SpacyURL))
}

// qdrantFactory builds every generation into its own collection, so point
// ids match catalog rows, and publishes it under the configured collection
// name as an alias. The collection is dropped when its generation retires.
func qdrantFactory(cfg config.IndexConfig) index.Factory {
	return func(ctx context.Context, dims int) (index.Index, error) {
		alias := cfg.Collection
		if alias == "" {
			alias = index.DefaultCollection
		}
		q, err := index.OpenQdrant(ctx, index.QdrantConfig{
			Host:        cfg.QdrantHost,
			Port:        cfg.QdrantPort,
			Collection:  qdrantGenerationName(alias),
			Dimensions:  dims,
			Reset:       true,
			Alias:       alias,
			DropOnClose: true,
		})
		if err != nil {
			return nil, fmt.Errorf("opening qdrant index: %w", err)
		}
		return q, nil
	}
}

func qdrantGenerationName(alias string) string {
	return alias + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// OpenCatalogDB opens the sqlite catalog cache, creating its directory.
func OpenCatalogDB(path string) (*storage.DB, error) {
	if path != storage.MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}
	return storage.OpenDB(path)
}
