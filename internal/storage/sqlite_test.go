package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matsen/journalrec/internal/journal"
)

func testJournals() []journal.Journal {
	return []journal.Journal{
		{
			ID:                   "https://openalex.org/S1",
			DisplayName:          "Journal of Machine Learning Research",
			AbbreviatedTitle:     "JMLR",
			Description:          "Machine learning theory and algorithms",
			HostOrganizationName: "Microtome",
			ISSNL:                "1532-4435",
			Concepts:             []journal.Concept{{Name: "Computer science", Level: 0}},
		},
		{
			ID:          "https://openalex.org/S2",
			DisplayName: "Genome Biology",
			Description: "Genomics and computational biology",
			ISSNL:       "1474-760X",
			Concepts: []journal.Concept{
				{Name: "Biology", Level: 0},
				{Name: "Genetics", Level: 1},
			},
		},
		{
			ID:          "https://openalex.org/S3",
			DisplayName: "Physical Review Letters",
		},
	}
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadCatalog_Empty(t *testing.T) {
	db := setupTestDB(t)
	if _, _, err := db.LoadCatalog(time.Now(), time.Hour); !errors.Is(err, ErrNoCatalog) {
		t.Errorf("LoadCatalog() error = %v, want ErrNoCatalog", err)
	}
}

func TestSaveLoadCatalog_RoundTripPreservesOrder(t *testing.T) {
	db := setupTestDB(t)
	fetched := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	want := testJournals()

	if err := db.SaveCatalog(want, fetched); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	got, at, err := db.LoadCatalog(fetched.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if !at.Equal(fetched) {
		t.Errorf("fetchedAt = %v, want %v", at, fetched)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].DisplayName != want[i].DisplayName {
			t.Errorf("row %d = %s %q, want %s %q", i, got[i].ID, got[i].DisplayName, want[i].ID, want[i].DisplayName)
		}
	}
	if len(got[1].Concepts) != 2 || got[1].Concepts[1].Level != 1 {
		t.Errorf("concepts not preserved: %+v", got[1].Concepts)
	}
	if got[2].ISSNL != "" {
		t.Errorf("empty ISSN stored as %q", got[2].ISSNL)
	}

	fp, err := db.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp != journal.Fingerprint(want) {
		t.Errorf("Fingerprint() = %s, want %s", fp, journal.Fingerprint(want))
	}
}

func TestLoadCatalog_Expired(t *testing.T) {
	db := setupTestDB(t)
	fetched := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := db.SaveCatalog(testJournals(), fetched); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	if _, _, err := db.LoadCatalog(fetched.Add(2*time.Hour), time.Hour); !errors.Is(err, ErrCatalogExpired) {
		t.Errorf("LoadCatalog() error = %v, want ErrCatalogExpired", err)
	}
	if _, _, err := db.LoadCatalog(fetched.Add(200*time.Hour), 0); err != nil {
		t.Errorf("LoadCatalog() with no max age error = %v", err)
	}
}

func TestSaveCatalog_Replaces(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	if err := db.SaveCatalog(testJournals(), now); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}
	if err := db.SaveCatalog(testJournals()[:1], now); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	n, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	hits, err := db.SearchJournals("genomics", 10)
	if err != nil {
		t.Fatalf("SearchJournals() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale fts rows survived: %v", hits)
	}
}

func TestSearchJournals(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SaveCatalog(testJournals(), time.Now()); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"description match", "genomics", []string{"Genome Biology"}},
		{"abbreviation match", "JMLR", []string{"Journal of Machine Learning Research"}},
		{"no match", "astronomy", nil},
		{"empty query", "   ", nil},
		{"special characters quoted", "machine-learning", []string{"Journal of Machine Learning Research"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SearchJournals(tt.query, 10)
			if err != nil {
				t.Fatalf("SearchJournals(%q) error = %v", tt.query, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SearchJournals(%q) = %d results, want %d", tt.query, len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].DisplayName != tt.want[i] {
					t.Errorf("result %d = %q, want %q", i, got[i].DisplayName, tt.want[i])
				}
			}
		})
	}
}

func TestGetByISSN(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SaveCatalog(testJournals(), time.Now()); err != nil {
		t.Fatalf("SaveCatalog() error = %v", err)
	}

	j, err := db.GetByISSN("1474-760X")
	if err != nil {
		t.Fatalf("GetByISSN() error = %v", err)
	}
	if j == nil || j.DisplayName != "Genome Biology" {
		t.Errorf("GetByISSN() = %+v, want Genome Biology", j)
	}

	j, err = db.GetByISSN("0000-0000")
	if err != nil || j != nil {
		t.Errorf("GetByISSN(missing) = %+v, %v, want nil, nil", j, err)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  plain words ", "plain words"},
		{"machine-learning", `"machine-learning"`},
		{`say "hi"`, `"say ""hi"""`},
	}
	for _, tt := range tests {
		if got := prepareFTSQuery(tt.in); got != tt.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
