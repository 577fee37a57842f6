// Package metrics supplies bibliometric attributes used to filter recommendations.
//
// The default RandomSource fabricates values for demonstration; they carry
// no information about the journal. A real lookup can replace it through
// the Source interface.
package metrics

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// IndexingCatalog lists the indexing services a journal may be reported in.
var IndexingCatalog = []string{"Scopus", "Web of Science", "UGC CARE", "Google Scholar"}

// Metrics describes a journal's (synthetic) standing.
type Metrics struct {
	ImpactFactor   float64  `json:"impact_factor"`
	AcceptanceRate string   `json:"acceptance_rate"`
	Indexing       []string `json:"indexing"`
}

// Source looks up metrics by ISSN.
type Source interface {
	Lookup(ctx context.Context, issn string) (Metrics, error)
}

// tier is one quality band of the random generator.
type tier struct {
	name                   string
	upTo                   float64 // draw threshold (exclusive)
	minIndexed, maxIndexed int
	minImpact, maxImpact   float64
	minAccept, maxAccept   float64
}

// tiers are checked in order; the last one catches every remaining draw.
var tiers = []tier{
	{"high", 0.3, 3, 4, 3, 10, 10, 25},
	{"medium", 0.6, 2, 3, 1.5, 3, 25, 40},
	{"low", 1.0, 1, 2, 0.5, 1.5, 40, 60},
}

// RandomSource draws a quality tier per call and fabricates metrics within
// that tier's ranges. Repeated lookups for one ISSN give different values.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates a generator. A nil rng is seeded from the clock.
func NewRandomSource(rng *rand.Rand) *RandomSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSource{rng: rng}
}

// Lookup ignores issn and returns freshly drawn metrics.
func (s *RandomSource) Lookup(ctx context.Context, issn string) (Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw := s.rng.Float64()
	t := tiers[len(tiers)-1]
	for _, candidate := range tiers {
		if draw < candidate.upTo {
			t = candidate
			break
		}
	}

	count := t.minIndexed + s.rng.Intn(t.maxIndexed-t.minIndexed+1)
	impact := s.uniform(t.minImpact, t.maxImpact)
	accept := s.uniform(t.minAccept, t.maxAccept)

	return Metrics{
		ImpactFactor:   round(impact, 2),
		AcceptanceRate: fmt.Sprintf("%.1f%%", round(accept, 1)),
		Indexing:       s.sample(IndexingCatalog, count),
	}, nil
}

func (s *RandomSource) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// sample picks n distinct entries from opts in random order.
func (s *RandomSource) sample(opts []string, n int) []string {
	perm := s.rng.Perm(len(opts))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = opts[perm[i]]
	}
	return out
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// HasAll reports whether m is indexed in every one of required.
func (m Metrics) HasAll(required []string) bool {
	have := make(map[string]struct{}, len(m.Indexing))
	for _, s := range m.Indexing {
		have[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}
