// Package pipeline runs a recommendation end to end: it owns the shared
// catalog and index, applies metric filters, and reports every empty-data
// condition as its own status instead of an error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matsen/journalrec/internal/embedding"
	"github.com/matsen/journalrec/internal/index"
	"github.com/matsen/journalrec/internal/journal"
	"github.com/matsen/journalrec/internal/logger"
	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/openalex"
	"github.com/matsen/journalrec/internal/storage"
	"github.com/matsen/journalrec/internal/topics"
	"github.com/matsen/journalrec/internal/tracing"
)

// DefaultTTL is how long a catalog generation is served before it is rebuilt.
const DefaultTTL = time.Hour

// Fetcher supplies the journal catalog.
type Fetcher interface {
	FetchJournals(ctx context.Context, perPage, maxPages int) *openalex.FetchResult
}

// CatalogStore persists catalog snapshots between runs.
type CatalogStore interface {
	SaveCatalog(journals []journal.Journal, fetchedAt time.Time) error
	LoadCatalog(now time.Time, maxAge time.Duration) ([]journal.Journal, time.Time, error)
}

// EmbedderFunc constructs the embedding provider. A non-nil provider
// returned with a non-nil error is usable but degraded.
type EmbedderFunc func(ctx context.Context) (embedding.Provider, error)

// generation is one consistent catalog, the provider that embedded it and
// the index built from it. None is mutated after construction. The session
// holds one reference and every request holds another; the index is closed
// when the last reference is released.
type generation struct {
	catalog   *journal.Catalog
	index     index.Index
	stats     *index.BuildStats
	provider  embedding.Provider
	embedWarn error
	warnings  []string
	builtAt   time.Time

	refs atomic.Int64
	log  *logger.Logger
}

// acquire takes a reference, failing if the generation is already retired.
func (g *generation) acquire() bool {
	for {
		n := g.refs.Load()
		if n <= 0 {
			return false
		}
		if g.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (g *generation) release() {
	if g.refs.Add(-1) != 0 || g.index == nil {
		return
	}
	if err := index.Close(g.index); err != nil {
		g.log.Warn("closing retired index", "error", err)
	}
}

// Session holds the process-wide catalog, embedder and index. It is safe
// for concurrent use; readers always see a single generation, so index
// rows line up with catalog rows.
type Session struct {
	fetcher     Fetcher
	store       CatalogStore
	newEmbedder EmbedderFunc
	factory     index.Factory
	indexPath   string
	extractor   *topics.Extractor
	metrics     metrics.Source
	progress    index.ProgressReporter
	log         *logger.Logger
	now         func() time.Time

	ttl         time.Duration
	perPage     int
	maxPages    int
	batchSize   int
	concurrency int
	topicsTopK  int

	embedMu   sync.Mutex
	embedder  embedding.Provider
	embedWarn error

	buildMu sync.Mutex
	current atomic.Pointer[generation]
}

// Option configures a Session.
type Option func(*Session)

// WithFetcher sets the catalog source.
func WithFetcher(f Fetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

// WithStore persists fetched catalogs and reuses fresh snapshots.
func WithStore(st CatalogStore) Option {
	return func(s *Session) { s.store = st }
}

// WithEmbedder sets how the embedding provider is constructed.
func WithEmbedder(fn EmbedderFunc) Option {
	return func(s *Session) { s.newEmbedder = fn }
}

// WithIndexFactory sets the index backend.
func WithIndexFactory(f index.Factory) Option {
	return func(s *Session) { s.factory = f }
}

// WithIndexPath saves flat indexes to path and reuses them when the
// catalog fingerprint and model match.
func WithIndexPath(path string) Option {
	return func(s *Session) { s.indexPath = path }
}

// WithTopics sets the key-phrase extractor.
func WithTopics(e *topics.Extractor, topK int) Option {
	return func(s *Session) {
		s.extractor = e
		if topK > 0 {
			s.topicsTopK = topK
		}
	}
}

// WithMetrics sets the metrics source.
func WithMetrics(src metrics.Source) Option {
	return func(s *Session) { s.metrics = src }
}

// WithProgress reports index build progress.
func WithProgress(r index.ProgressReporter) Option {
	return func(s *Session) { s.progress = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTTL sets catalog freshness. Zero never expires.
func WithTTL(d time.Duration) Option {
	return func(s *Session) { s.ttl = d }
}

// WithFetchLimits sets the page size and page count for catalog fetches.
func WithFetchLimits(perPage, maxPages int) Option {
	return func(s *Session) {
		s.perPage = perPage
		s.maxPages = maxPages
	}
}

// WithBuildOptions sets the embedding batch size and parallelism.
func WithBuildOptions(batchSize, concurrency int) Option {
	return func(s *Session) {
		s.batchSize = batchSize
		s.concurrency = concurrency
	}
}

// WithClock overrides time.Now (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session. Nothing is fetched or built until first use.
func New(opts ...Option) *Session {
	s := &Session{
		newEmbedder: func(context.Context) (embedding.Provider, error) {
			return embedding.NewRandomProvider(embedding.DefaultDimensions, nil), nil
		},
		factory:     index.FlatFactory,
		extractor:   topics.NewExtractor(nil),
		metrics:     metrics.NewRandomSource(nil),
		log:         logger.Nop(),
		now:         time.Now,
		ttl:         DefaultTTL,
		perPage:     openalex.DefaultPerPage,
		maxPages:    openalex.DefaultMaxPages,
		batchSize:   index.DefaultBatchSize,
		concurrency: 1,
		topicsTopK:  topics.DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embedder returns the shared embedding provider, constructing it on first
// call. The error is a degradation warning (such as a random fallback),
// never a reason to stop.
func (s *Session) Embedder(ctx context.Context) (embedding.Provider, error) {
	return s.selectEmbedder(ctx, false)
}

// selectEmbedder constructs the provider if none is selected yet or, with
// retry, if the last selection fell back to random vectors. Probing is
// detached from ctx so a cancelled request cannot force a fallback.
func (s *Session) selectEmbedder(ctx context.Context, retry bool) (embedding.Provider, error) {
	s.embedMu.Lock()
	defer s.embedMu.Unlock()
	if s.embedder != nil && !(retry && embedding.IsFallback(s.embedder)) {
		return s.embedder, s.embedWarn
	}

	p, err := s.newEmbedder(context.WithoutCancel(ctx))
	if p == nil {
		p = embedding.NewRandomProvider(embedding.DefaultDimensions, nil)
		if err == nil {
			err = embedding.ErrFallback
		} else {
			err = fmt.Errorf("%w: %v", embedding.ErrFallback, err)
		}
	}
	if err != nil {
		s.log.Warn("embedding provider degraded", "model", p.ModelName(), "error", err)
	} else if s.embedder != nil {
		s.log.Info("embedding provider recovered", "model", p.ModelName())
	}
	s.embedder, s.embedWarn = p, err
	return p, err
}

// Journals returns the current catalog and any warnings from loading it.
func (s *Session) Journals(ctx context.Context) (*journal.Catalog, []string, error) {
	g, err := s.state(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer g.release()
	return g.catalog, g.warnings, nil
}

// Index returns the index aligned with the current catalog. It may be nil
// when the build failed, and is closed once a rebuild retires it.
func (s *Session) Index(ctx context.Context) (index.Index, error) {
	g, err := s.state(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()
	return g.index, nil
}

// Domains returns the current catalog's sorted top-level domains.
func (s *Session) Domains(ctx context.Context) ([]string, []string, error) {
	cat, warnings, err := s.Journals(ctx)
	if err != nil {
		return nil, nil, err
	}
	domains := cat.Domains()
	if domains == nil {
		domains = []string{}
	}
	return domains, warnings, nil
}

// Topics extracts key phrases from text.
func (s *Session) Topics(ctx context.Context, text string, topK int) topics.Result {
	if topK <= 0 {
		topK = s.topicsTopK
	}
	res := s.extractor.Extract(ctx, text, topK)
	if res.Warning != nil {
		s.log.Warn("topic extraction fell back to bigrams", "error", res.Warning)
	}
	return res
}

// Info summarizes a generation.
type Info struct {
	Ready     bool          `json:"ready"`
	Journals  int           `json:"journals"`
	Indexed   int           `json:"indexed"`
	Domains   int           `json:"domains"`
	Model     string        `json:"model,omitempty"`
	FetchedAt time.Time     `json:"fetched_at,omitempty"`
	BuiltAt   time.Time     `json:"built_at,omitempty"`
	Duration  time.Duration `json:"build_duration,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
}

func (g *generation) info() *Info {
	in := &Info{
		Ready:     true,
		Journals:  g.catalog.Len(),
		Domains:   len(g.catalog.Domains()),
		FetchedAt: g.catalog.FetchedAt(),
		BuiltAt:   g.builtAt,
		Warnings:  g.warnings,
	}
	if g.index != nil {
		in.Indexed = g.index.Count()
	}
	if g.stats != nil {
		in.Model = g.stats.Model
		in.Duration = g.stats.Duration
	}
	return in
}

// Info describes the current generation without building one.
func (s *Session) Info() Info {
	g := s.acquireCurrent()
	if g == nil {
		return Info{}
	}
	defer g.release()
	return *g.info()
}

// Rebuild refetches the catalog, retries a fallen-back embedding provider,
// rebuilds the index, and swaps them in atomically. In-flight requests
// finish against the previous generation, which is closed after the last
// of them.
func (s *Session) Rebuild(ctx context.Context) (*Info, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	g, err := s.build(ctx, true)
	if err != nil {
		return nil, err
	}
	s.swap(g)
	return g.info(), nil
}

// Close releases the session's reference to the current generation.
func (s *Session) Close() error {
	if g := s.current.Swap(nil); g != nil {
		g.release()
	}
	return nil
}

func (s *Session) expired(g *generation) bool {
	return s.ttl > 0 && s.now().Sub(g.builtAt) > s.ttl
}

// acquireCurrent returns the live generation with a reference held, or nil.
func (s *Session) acquireCurrent() *generation {
	for {
		g := s.current.Load()
		if g == nil {
			return nil
		}
		if g.acquire() {
			return g
		}
	}
}

// state returns the live generation with a reference the caller must
// release, building one on first use or after the TTL has passed.
func (s *Session) state(ctx context.Context) (*generation, error) {
	if g := s.acquireCurrent(); g != nil {
		if !s.expired(g) {
			return g, nil
		}
		g.release()
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if g := s.acquireCurrent(); g != nil {
		if !s.expired(g) {
			return g, nil
		}
		g.release()
	}

	g, err := s.build(ctx, false)
	if err != nil {
		return nil, err
	}
	g.acquire()
	s.swap(g)
	return g, nil
}

// swap publishes g, which must carry the session's reference, and drops
// the session's reference to the previous generation.
func (s *Session) swap(g *generation) {
	if old := s.current.Swap(g); old != nil {
		old.release()
	}
}

// build loads a catalog and indexes it. Failures degrade into warnings;
// only cancellation is returned as an error.
func (s *Session) build(ctx context.Context, refresh bool) (*generation, error) {
	ctx, span := tracing.Start(ctx, "pipeline.build")
	defer span.End()

	g := &generation{builtAt: s.now(), log: s.log}
	g.refs.Store(1)
	journals, fetchedAt, warnings := s.loadJournals(ctx, refresh)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.catalog = journal.NewCatalog(journals, fetchedAt)
	g.warnings = warnings

	provider, embedWarn := s.selectEmbedder(ctx, true)
	g.provider, g.embedWarn = provider, embedWarn
	idx, stats, err := s.loadOrBuildIndex(ctx, g.catalog, provider)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn("index build failed", "journals", g.catalog.Len(), "error", err)
		g.warnings = append(g.warnings, fmt.Sprintf("Index build failed: %v", err))
	}
	g.index, g.stats = idx, stats

	s.log.Info("catalog generation ready",
		"journals", g.catalog.Len(),
		"domains", len(g.catalog.Domains()),
		"model", provider.ModelName(),
		"warnings", len(g.warnings),
	)
	return g, nil
}

// loadJournals prefers a fresh stored snapshot, then the fetcher, then a
// stale snapshot. It never fails; problems come back as warnings.
func (s *Session) loadJournals(ctx context.Context, refresh bool) ([]journal.Journal, time.Time, []string) {
	now := s.now()
	var warnings []string

	if s.store != nil && !refresh {
		journals, at, err := s.store.LoadCatalog(now, s.ttl)
		switch {
		case err == nil && len(journals) > 0:
			s.log.Info("loaded catalog snapshot", "journals", len(journals), "fetched_at", at)
			return journals, at, nil
		case err != nil && !errors.Is(err, storage.ErrNoCatalog) && !errors.Is(err, storage.ErrCatalogExpired):
			s.log.Warn("reading catalog snapshot", "error", err)
		}
	}

	if s.fetcher == nil {
		warnings = append(warnings, ErrNoFetcher.Error())
		return nil, now, warnings
	}

	res := s.fetcher.FetchJournals(ctx, s.perPage, s.maxPages)
	if res.Warning != nil {
		s.log.Warn("journal fetch incomplete", "journals", len(res.Journals), "pages", res.Pages, "error", res.Warning)
		warnings = append(warnings, fetchWarning(res.Warning))
	}
	if res.Dropped > 0 {
		s.log.Debug("dropped journal records without a name", "count", res.Dropped)
	}

	if len(res.Journals) > 0 {
		if s.store != nil && res.Warning == nil {
			if err := s.store.SaveCatalog(res.Journals, now); err != nil {
				s.log.Warn("saving catalog snapshot", "error", err)
			}
		}
		return res.Journals, now, warnings
	}

	if s.store != nil {
		journals, at, err := s.store.LoadCatalog(now, 0)
		if err == nil && len(journals) > 0 {
			warnings = append(warnings, fmt.Sprintf("Using cached journal catalog from %s.", at.Format(time.RFC3339)))
			return journals, at, warnings
		}
	}
	return nil, now, warnings
}

// loadOrBuildIndex reuses a saved flat index when it matches the catalog
// and model, and otherwise embeds the catalog.
func (s *Session) loadOrBuildIndex(ctx context.Context, cat *journal.Catalog, provider embedding.Provider) (index.Index, *index.BuildStats, error) {
	persist := s.indexPath != "" && !embedding.IsFallback(provider)
	fp := journal.Fingerprint(cat.Journals())

	if persist && cat.Len() > 0 {
		flat, _, err := index.Load(s.indexPath, provider.ModelName(), fp)
		if err == nil {
			s.log.Info("loaded index snapshot", "path", s.indexPath, "vectors", flat.Count())
			return flat, &index.BuildStats{
				Journals:   flat.Count(),
				Dimensions: flat.Dimensions(),
				Model:      provider.ModelName(),
			}, nil
		}
		if !errors.Is(err, index.ErrIndexNotFound) {
			s.log.Info("index snapshot not reusable, rebuilding", "error", err)
		}
	}

	b := index.NewBuilder(provider,
		index.WithBatchSize(s.batchSize),
		index.WithConcurrency(s.concurrency),
		index.WithFactory(s.factory),
		index.WithProgress(s.progress),
	)
	idx, stats, err := b.Build(ctx, cat.Journals())
	if err != nil {
		return nil, nil, err
	}

	if flat, ok := idx.(*index.FlatIP); ok && persist && cat.Len() > 0 {
		if err := index.Save(s.indexPath, flat, provider.ModelName(), fp); err != nil {
			s.log.Warn("saving index snapshot", "path", s.indexPath, "error", err)
		}
	}
	return idx, stats, nil
}

// fetchWarning describes an incomplete catalog fetch for display.
func fetchWarning(err error) string {
	switch {
	case openalex.IsRateLimited(err):
		return "OpenAlex rate limit reached; the journal catalog is incomplete. Try again later."
	case openalex.IsNetworkError(err):
		return fmt.Sprintf("Could not reach OpenAlex; the journal catalog is incomplete: %v", err)
	case openalex.StatusCode(err) != 0:
		return fmt.Sprintf("OpenAlex returned HTTP %d; the journal catalog is incomplete.", openalex.StatusCode(err))
	default:
		return fmt.Sprintf("Could not fetch all journals from OpenAlex: %v", err)
	}
}
