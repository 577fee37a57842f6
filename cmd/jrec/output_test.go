package main

import (
	"testing"
	"time"

	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/pdf"
	"github.com/matsen/journalrec/internal/pipeline"
)

func TestBuildProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{"empty total", 0, 0, "          "},
		{"start", 0, 10, ">         "},
		{"half", 5, 10, "=====>    "},
		{"done", 10, 10, "=========="},
		{"overshoot", 12, 10, "=========="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildProgressBar(tt.current, tt.total, 10); got != tt.want {
				t.Errorf("buildProgressBar(%d, %d) = %q, want %q", tt.current, tt.total, got, tt.want)
			}
		})
	}
}

func TestMetricsLine(t *testing.T) {
	tests := []struct {
		name string
		m    metrics.Metrics
		want string
	}{
		{"two decimals", metrics.Metrics{ImpactFactor: 3.4, AcceptanceRate: "25.0%", Indexing: []string{"Scopus", "PubMed"}},
			"Impact factor: 3.40  Acceptance: 25.0%  Indexing: Scopus, PubMed"},
		{"no rounding to one place", metrics.Metrics{ImpactFactor: 7.25, AcceptanceRate: "10.5%"},
			"Impact factor: 7.25  Acceptance: 10.5%  Indexing: N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metricsLine(tt.m); got != tt.want {
				t.Errorf("metricsLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCodeForStatus(t *testing.T) {
	tests := []struct {
		status pipeline.Status
		want   int
	}{
		{pipeline.StatusOK, ExitSuccess},
		{pipeline.StatusInvalid, ExitDataError},
		{pipeline.StatusNoJournals, ExitNoResults},
		{pipeline.StatusEmptyIndex, ExitNoResults},
		{pipeline.StatusNoCandidates, ExitNoResults},
		{pipeline.StatusNoMatches, ExitNoResults},
		{pipeline.StatusError, ExitError},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := exitCodeForStatus(tt.status); got != tt.want {
				t.Errorf("exitCodeForStatus(%q) = %d, want %d", tt.status, got, tt.want)
			}
		})
	}
}

func TestMergeManuscript(t *testing.T) {
	m := &pdf.Manuscript{Title: "From PDF", Abstract: "PDF abstract"}

	tests := []struct {
		name         string
		req          pipeline.Request
		wantTitle    string
		wantAbstract string
	}{
		{"fills both", pipeline.Request{}, "From PDF", "PDF abstract"},
		{"flags win", pipeline.Request{Title: "Flag title", Abstract: "Flag abstract"}, "Flag title", "Flag abstract"},
		{"fills missing abstract", pipeline.Request{Title: "Flag title"}, "Flag title", "PDF abstract"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeManuscript(tt.req, m)
			if got.Title != tt.wantTitle || got.Abstract != tt.wantAbstract {
				t.Errorf("mergeManuscript() = %q / %q, want %q / %q", got.Title, got.Abstract, tt.wantTitle, tt.wantAbstract)
			}
		})
	}

	if got := mergeManuscript(pipeline.Request{Title: "x"}, nil); got.Title != "x" {
		t.Errorf("mergeManuscript(nil) changed request: %+v", got)
	}
}

func TestJoinOrNA(t *testing.T) {
	if got := joinOrNA(nil); got != "N/A" {
		t.Errorf("joinOrNA(nil) = %q, want N/A", got)
	}
	if got := joinOrNA([]string{"Scopus", "UGC CARE"}); got != "Scopus, UGC CARE" {
		t.Errorf("joinOrNA() = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
