// Package recommend ranks catalog journals against a manuscript query.
package recommend

import (
	"context"
	"fmt"

	"github.com/matsen/journalrec/internal/embedding"
	"github.com/matsen/journalrec/internal/index"
	"github.com/matsen/journalrec/internal/journal"
)

// OverFetch is how many neighbours are retrieved per requested candidate,
// leaving room for domain filtering.
const OverFetch = 3

// Candidate is a journal proposed for a manuscript.
type Candidate struct {
	Title        string   `json:"title"`
	Abbreviation string   `json:"abbreviation"`
	Publisher    string   `json:"publisher"`
	ISSN         string   `json:"issn"`
	URL          string   `json:"url"`
	Domains      []string `json:"domains"`
	Score        float32  `json:"score"`
}

// NewCandidate assembles a candidate from a journal and its similarity score.
func NewCandidate(j journal.Journal, score float32) Candidate {
	return Candidate{
		Title:        j.DisplayName,
		Abbreviation: j.AbbreviatedTitle,
		Publisher:    j.Publisher(),
		ISSN:         j.ISSN(),
		URL:          j.URL(),
		Domains:      j.Domains(),
		Score:        score,
	}
}

// Recommend embeds query, searches idx for k*3 neighbours, and returns up
// to k candidates in descending score order. Hits whose id falls outside
// journals are skipped. When domains is non-empty, only journals sharing
// at least one top-level domain with it are kept.
//
// An empty journal list or index yields an empty result and no error.
func Recommend(ctx context.Context, query string, journals []journal.Journal, idx index.Index,
	provider embedding.Provider, domains []string, k int) ([]Candidate, error) {

	if len(journals) == 0 || idx == nil || idx.Count() == 0 || k <= 0 {
		return []Candidate{}, nil
	}

	emb, err := provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	embedding.Normalize(emb.Vector)

	hits, err := idx.Search(ctx, emb.Vector, min(k*OverFetch, idx.Count()))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	wanted := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		wanted[d] = struct{}{}
	}

	recs := make([]Candidate, 0, k)
	for _, hit := range hits {
		if hit.ID < 0 || hit.ID >= len(journals) {
			continue
		}
		j := journals[hit.ID]
		if len(wanted) > 0 && !intersects(j.Domains(), wanted) {
			continue
		}
		recs = append(recs, NewCandidate(j, hit.Score))
		if len(recs) >= k {
			break
		}
	}
	return recs, nil
}

func intersects(domains []string, wanted map[string]struct{}) bool {
	for _, d := range domains {
		if _, ok := wanted[d]; ok {
			return true
		}
	}
	return false
}
