package pipeline

import (
	"context"
	"fmt"

	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/recommend"
)

// Filter bounds for metric-based filtering.
const (
	ImpactFloor      = 0.0
	ImpactCeiling    = 20.0
	DefaultImpactMax = 10.0
	MinCount         = 1
	MaxCount         = 10
	DefaultCount     = 3
	DefaultTopK      = 10
)

// Recommendation is a candidate annotated with metrics and its display rank.
type Recommendation struct {
	Rank int `json:"rank"`
	recommend.Candidate
	Metrics metrics.Metrics `json:"metrics"`
}

// Filter keeps candidates whose metrics satisfy the user's constraints.
type Filter struct {
	ImpactMin float64
	ImpactMax float64
	Indexing  []string
	Count     int
}

// Apply walks candidates in order, looks up each one's metrics, and keeps
// those with an impact factor inside [ImpactMin, ImpactMax] that are listed
// in every required indexing service. It stops once Count are kept. A
// failed lookup skips that candidate and is reported as a warning.
func (f Filter) Apply(ctx context.Context, candidates []recommend.Candidate, src metrics.Source) ([]Recommendation, []string) {
	out := []Recommendation{}
	var warnings []string
	if f.Count <= 0 {
		return out, nil
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			warnings = append(warnings, fmt.Sprintf("filtering stopped: %v", err))
			break
		}
		m, err := src.Lookup(ctx, c.ISSN)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("metrics unavailable for %s: %v", c.Title, err))
			continue
		}
		if m.ImpactFactor < f.ImpactMin || m.ImpactFactor > f.ImpactMax {
			continue
		}
		if !m.HasAll(f.Indexing) {
			continue
		}
		out = append(out, Recommendation{Rank: len(out) + 1, Candidate: c, Metrics: m})
		if len(out) == f.Count {
			break
		}
	}
	return out, warnings
}
