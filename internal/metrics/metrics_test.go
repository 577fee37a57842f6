package metrics

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"
)

func TestRandomSource_Ranges(t *testing.T) {
	src := NewRandomSource(rand.New(rand.NewSource(7)))
	ctx := context.Background()

	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		m, err := src.Lookup(ctx, "1234-5678")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}

		if !strings.HasSuffix(m.AcceptanceRate, "%") {
			t.Fatalf("AcceptanceRate = %q, want percent suffix", m.AcceptanceRate)
		}
		accept, err := strconv.ParseFloat(strings.TrimSuffix(m.AcceptanceRate, "%"), 64)
		if err != nil {
			t.Fatalf("AcceptanceRate %q not numeric: %v", m.AcceptanceRate, err)
		}
		if m.ImpactFactor != math.Round(m.ImpactFactor*100)/100 {
			t.Fatalf("ImpactFactor %v has more than 2 decimals", m.ImpactFactor)
		}

		band := ""
		switch n := len(m.Indexing); {
		case m.ImpactFactor >= 3 && accept <= 25 && n >= 3:
			band = "high"
		case m.ImpactFactor >= 1.5 && m.ImpactFactor <= 3 && accept >= 25 && accept <= 40 && n >= 2 && n <= 3:
			band = "medium"
		case m.ImpactFactor >= 0.5 && m.ImpactFactor <= 1.5 && accept >= 40 && accept <= 60 && n >= 1 && n <= 2:
			band = "low"
		}
		if band == "" {
			t.Fatalf("metrics %+v fall in no tier", m)
		}
		seen[band]++

		distinct := map[string]bool{}
		for _, s := range m.Indexing {
			if distinct[s] {
				t.Fatalf("Indexing %v has duplicates", m.Indexing)
			}
			distinct[s] = true
		}
	}

	// 30/30/40 split; allow generous slack.
	for band, lo := range map[string]int{"high": 450, "medium": 450, "low": 650} {
		if seen[band] < lo {
			t.Errorf("tier %s drawn %d times, want at least %d", band, seen[band], lo)
		}
	}
}

func TestRandomSource_NotRepeatable(t *testing.T) {
	src := NewRandomSource(rand.New(rand.NewSource(1)))
	ctx := context.Background()

	first, _ := src.Lookup(ctx, "0000-0000")
	differs := false
	for i := 0; i < 20; i++ {
		m, _ := src.Lookup(ctx, "0000-0000")
		if m.ImpactFactor != first.ImpactFactor {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("repeated lookups for one ISSN should vary")
	}
}

func TestMetrics_HasAll(t *testing.T) {
	m := Metrics{Indexing: []string{"Scopus", "Google Scholar"}}
	tests := []struct {
		required []string
		want     bool
	}{
		{nil, true},
		{[]string{"Scopus"}, true},
		{[]string{"Google Scholar", "Scopus"}, true},
		{[]string{"Scopus", "Web of Science"}, false},
	}
	for _, tt := range tests {
		if got := m.HasAll(tt.required); got != tt.want {
			t.Errorf("HasAll(%v) = %v, want %v", tt.required, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	if got := round(3.14159, 2); got != 3.14 {
		t.Errorf("round() = %v, want 3.14", got)
	}
	if got := round(24.96, 1); got != 25.0 {
		t.Errorf("round() = %v, want 25.0", got)
	}
}
