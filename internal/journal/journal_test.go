package journal

import (
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"
)

func TestExtractDomains(t *testing.T) {
	tests := []struct {
		name     string
		journals []Journal
		want     []string
	}{
		{
			name:     "empty input",
			journals: nil,
			want:     []string{},
		},
		{
			name: "only level zero kept",
			journals: []Journal{
				{DisplayName: "A", Concepts: []Concept{{"Biology", 0}, {"Genetics", 1}}},
			},
			want: []string{"Biology"},
		},
		{
			name: "sorted and deduplicated",
			journals: []Journal{
				{DisplayName: "A", Concepts: []Concept{{"Physics", 0}, {"Biology", 0}}},
				{DisplayName: "B", Concepts: []Concept{{"Biology", 0}, {"Computer science", 0}}},
				{DisplayName: "C"},
			},
			want: []string{"Biology", "Computer science", "Physics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDomains(tt.journals)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractDomains() = %v, want %v", got, tt.want)
			}
			if !sort.StringsAreSorted(got) {
				t.Errorf("ExtractDomains() = %v, not sorted", got)
			}
		})
	}
}

func TestJournal_Domains(t *testing.T) {
	j := Journal{Concepts: []Concept{{"Medicine", 0}, {"Oncology", 1}, {"Biology", 0}}}
	want := []string{"Medicine", "Biology"}
	if got := j.Domains(); !reflect.DeepEqual(got, want) {
		t.Errorf("Domains() = %v, want %v", got, want)
	}
}

func TestJournal_Defaults(t *testing.T) {
	bare := Journal{ID: "https://openalex.org/S1", DisplayName: "Bare"}
	if got := bare.Publisher(); got != NotAvailable {
		t.Errorf("Publisher() = %q, want %q", got, NotAvailable)
	}
	if got := bare.ISSN(); got != NotAvailable {
		t.Errorf("ISSN() = %q, want %q", got, NotAvailable)
	}
	if got := bare.URL(); got != bare.ID {
		t.Errorf("URL() = %q, want %q", got, bare.ID)
	}

	full := Journal{
		ID:                   "https://openalex.org/S2",
		DisplayName:          "Full",
		HostOrganizationName: "Elsevier",
		ISSNL:                "1234-5678",
		HomepageURL:          "https://full.example",
	}
	if got := full.Publisher(); got != "Elsevier" {
		t.Errorf("Publisher() = %q, want Elsevier", got)
	}
	if got := full.ISSN(); got != "1234-5678" {
		t.Errorf("ISSN() = %q, want 1234-5678", got)
	}
	if got := full.URL(); got != "https://full.example" {
		t.Errorf("URL() = %q, want homepage", got)
	}
}

func TestJournal_IndexText(t *testing.T) {
	j := Journal{DisplayName: "Nature", AbbreviatedTitle: "Nat.", Description: "General science"}
	want := "Nature — Nat.\nScope: General science"
	if got := j.IndexText(); got != want {
		t.Errorf("IndexText() = %q, want %q", got, want)
	}

	empty := Journal{DisplayName: "Plain"}
	if got := empty.IndexText(); got != "Plain — \nScope: " {
		t.Errorf("IndexText() = %q", got)
	}
}

func TestDecodeJournals(t *testing.T) {
	data := []byte(`[
		{"id": "S1", "display_name": "One", "issn_l": "1111-1111",
		 "x_concepts": [{"display_name": "Biology", "level": 0, "score": 0.9}]},
		{"id": "S2"},
		{"id": "S3", "display_name": "Three", "description": null}
	]`)

	journals, dropped, err := DecodeJournals(data)
	if err != nil {
		t.Fatalf("DecodeJournals() error = %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(journals) != 2 {
		t.Fatalf("len(journals) = %d, want 2", len(journals))
	}
	if journals[0].ISSNL != "1111-1111" || len(journals[0].Concepts) != 1 {
		t.Errorf("journals[0] = %+v", journals[0])
	}
	if journals[1].Description != "" {
		t.Errorf("null description decoded as %q", journals[1].Description)
	}
}

func TestDecodeJournals_Invalid(t *testing.T) {
	if _, _, err := DecodeJournals([]byte(`{"not": "an array"}`)); err == nil {
		t.Error("DecodeJournals() expected error for non-array input")
	}
}

func TestValidate(t *testing.T) {
	if err := (Journal{ID: "S9"}).Validate(); !errors.Is(err, ErrMissingName) {
		t.Errorf("Validate() = %v, want ErrMissingName", err)
	}
	if err := (Journal{DisplayName: "ok"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestCatalog(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	src := []Journal{
		{DisplayName: "A", Concepts: []Concept{{"Physics", 0}}},
		{DisplayName: "B", Concepts: []Concept{{"Biology", 0}}},
	}
	c := NewCatalog(src, now)
	src[0].DisplayName = "mutated"

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if j, _ := c.At(0); j.DisplayName != "A" {
		t.Errorf("catalog shares storage with caller: At(0) = %q", j.DisplayName)
	}
	if _, ok := c.At(2); ok {
		t.Error("At(2) should be out of bounds")
	}
	if _, ok := c.At(-1); ok {
		t.Error("At(-1) should be out of bounds")
	}
	if want := []string{"Biology", "Physics"}; !reflect.DeepEqual(c.Domains(), want) {
		t.Errorf("Domains() = %v, want %v", c.Domains(), want)
	}

	if c.Expired(now.Add(30*time.Minute), time.Hour) {
		t.Error("Expired() = true before ttl")
	}
	if !c.Expired(now.Add(2*time.Hour), time.Hour) {
		t.Error("Expired() = false after ttl")
	}
	if c.Expired(now.Add(100*time.Hour), 0) {
		t.Error("Expired() with zero ttl should be false")
	}

	var nilCatalog *Catalog
	if nilCatalog.Len() != 0 || !nilCatalog.Expired(now, time.Hour) {
		t.Error("nil catalog should be empty and expired")
	}
}

func TestFingerprint(t *testing.T) {
	a := []Journal{{ID: "S1", DisplayName: "One"}, {ID: "S2", DisplayName: "Two"}}
	b := []Journal{{ID: "S2", DisplayName: "Two"}, {ID: "S1", DisplayName: "One"}}

	if Fingerprint(a) != Fingerprint(a[:]) {
		t.Error("Fingerprint() not stable")
	}
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("Fingerprint() ignores order")
	}
	if Fingerprint(nil) == Fingerprint(a) {
		t.Error("Fingerprint() of empty list collides")
	}
	if len(Fingerprint(nil)) != 64 {
		t.Errorf("len(Fingerprint()) = %d, want 64", len(Fingerprint(nil)))
	}
}
