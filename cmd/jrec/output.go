package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/pipeline"
)

const progressBarWidth = 30

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("error:"), msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// printWarnings prints degradation warnings to stderr.
func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", warnStyle.Render("warning:"), w)
	}
}

// printOutcomeHuman renders a recommendation run as styled text.
func printOutcomeHuman(out *pipeline.Outcome) {
	if len(out.Topics) > 0 {
		label := "Topics"
		if out.TopicsFallback {
			label = "Topics (approximate)"
		}
		fmt.Printf("%s: %s\n\n", headingStyle.Render(label), strings.Join(out.Topics, ", "))
	}

	if out.Status != pipeline.StatusOK {
		fmt.Println(warnStyle.Render(out.Message))
		printWarnings(out.Warnings)
		return
	}

	for _, r := range out.Recommendations {
		fmt.Printf("%d. %s", r.Rank, titleStyle.Render(r.Title))
		if r.Abbreviation != "" {
			fmt.Printf(" %s", dimStyle.Render("("+r.Abbreviation+")"))
		}
		fmt.Printf("  [%.3f]\n", r.Score)
		fmt.Printf("   Publisher: %s  ISSN: %s\n", r.Publisher, r.ISSN)
		fmt.Printf("   Domains: %s\n", joinOrNA(r.Domains))
		fmt.Printf("   %s\n", metricsLine(r.Metrics))
		fmt.Printf("   %s\n\n", r.URL)
	}
	fmt.Println(dimStyle.Render("Impact factor, acceptance rate and indexing are simulated."))
	printWarnings(out.Warnings)
}

func metricsLine(m metrics.Metrics) string {
	return fmt.Sprintf("Impact factor: %.2f  Acceptance: %s  Indexing: %s",
		m.ImpactFactor, m.AcceptanceRate, joinOrNA(m.Indexing))
}

// buildProgressBar creates a progress bar string of the given width.
// Returns a string like "=====>    " showing progress.
func buildProgressBar(current, total, width int) string {
	if total == 0 {
		return strings.Repeat(" ", width)
	}
	filled := (width * current) / total
	if filled >= width {
		return strings.Repeat("=", width)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1)
}

// printProgress prints a progress bar to stderr.
func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	bar := buildProgressBar(current, total, progressBarWidth)
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", bar, current, total, pct)
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
