package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matsen/journalrec/internal/embedding"
	"github.com/matsen/journalrec/internal/journal"
)

// DefaultBatchSize is the number of journal texts embedded per provider call.
const DefaultBatchSize = 32

// ProgressReporter receives progress updates during index building.
type ProgressReporter interface {
	// OnProgress is called with the number of journals embedded so far.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// Factory creates an empty index of the given width.
type Factory func(ctx context.Context, dims int) (Index, error)

// FlatFactory creates in-memory FlatIP indexes.
func FlatFactory(ctx context.Context, dims int) (Index, error) {
	return NewFlatIP(dims), nil
}

// BuildStats contains statistics from index building.
type BuildStats struct {
	Journals   int           `json:"journals"`
	Batches    int           `json:"batches"`
	Dimensions int           `json:"dimensions"`
	Model      string        `json:"model"`
	Duration   time.Duration `json:"duration"`
}

// Builder embeds journal descriptions into an Index.
type Builder struct {
	provider    embedding.Provider
	factory     Factory
	batchSize   int
	concurrency int
	progress    ProgressReporter
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBatchSize sets how many texts are embedded per provider call.
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be embedded at once.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithFactory sets the index implementation to build into.
func WithFactory(f Factory) BuilderOption {
	return func(b *Builder) {
		b.factory = f
	}
}

// WithProgress sets the progress reporter.
func WithProgress(r ProgressReporter) BuilderOption {
	return func(b *Builder) {
		b.progress = r
	}
}

// NewBuilder creates a new index builder.
func NewBuilder(provider embedding.Provider, opts ...BuilderOption) *Builder {
	b := &Builder{
		provider:    provider,
		factory:     FlatFactory,
		batchSize:   DefaultBatchSize,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every journal's IndexText and returns an index whose row i
// is journals[i]. An empty journal list yields an empty index of the
// provider's width. On any embedding failure no index is returned, so a
// caller never sees rows that disagree with the journal order.
func (b *Builder) Build(ctx context.Context, journals []journal.Journal) (Index, *BuildStats, error) {
	start := time.Now()
	dims := b.provider.Dimensions()
	stats := &BuildStats{Dimensions: dims, Model: b.provider.ModelName()}

	idx, err := b.factory(ctx, dims)
	if err != nil {
		return nil, nil, fmt.Errorf("creating index: %w", err)
	}
	if len(journals) == 0 {
		if err := publish(ctx, idx); err != nil {
			return nil, nil, err
		}
		stats.Duration = time.Since(start)
		return idx, stats, nil
	}

	texts := make([]string, len(journals))
	for i, j := range journals {
		texts[i] = j.IndexText()
	}

	total := len(texts)
	numBatches := (total + b.batchSize - 1) / b.batchSize
	batches := make([][][]float32, numBatches)

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for n := 0; n < numBatches; n++ {
		lo := n * b.batchSize
		hi := min(lo+b.batchSize, total)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			embs, err := b.provider.EmbedBatch(gctx, texts[lo:hi])
			if err != nil {
				return fmt.Errorf("embedding journals %d-%d: %w", lo, hi-1, err)
			}
			if len(embs) != hi-lo {
				return fmt.Errorf("embedding journals %d-%d: got %d vectors", lo, hi-1, len(embs))
			}

			for i, e := range embs {
				if e.Dimensions() != dims {
					return fmt.Errorf("%w: journal %d has %d dimensions, want %d", ErrDimensionMismatch, lo+i, e.Dimensions(), dims)
				}
				embedding.Normalize(e.Vector)
			}
			vecs := embedding.Vectors(embs)
			batches[n] = vecs

			if b.progress != nil {
				mu.Lock()
				done += len(vecs)
				b.progress.OnProgress(done, total)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		Close(idx)
		return nil, nil, err
	}

	for _, vecs := range batches {
		if err := idx.Add(ctx, vecs); err != nil {
			Close(idx)
			return nil, nil, fmt.Errorf("adding vectors: %w", err)
		}
	}

	if err := publish(ctx, idx); err != nil {
		return nil, nil, err
	}

	stats.Journals = idx.Count()
	stats.Batches = numBatches
	stats.Duration = time.Since(start)
	return idx, stats, nil
}

// publish makes idx visible if it is a Publisher, closing it on failure.
func publish(ctx context.Context, idx Index) error {
	p, ok := idx.(Publisher)
	if !ok {
		return nil
	}
	if err := p.Publish(ctx); err != nil {
		Close(idx)
		return fmt.Errorf("publishing index: %w", err)
	}
	return nil
}
