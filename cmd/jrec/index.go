package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/index"
	"github.com/matsen/journalrec/internal/pipeline"
)

var noProgress bool

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)

	indexBuildCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the journal embedding index",
}

// IndexBuildResult is the response for the index build command.
type IndexBuildResult struct {
	Status          string    `json:"status"`
	Journals        int       `json:"journals"`
	Indexed         int       `json:"indexed"`
	Domains         int       `json:"domains"`
	Model           string    `json:"model"`
	Backend         string    `json:"backend"`
	DurationSeconds float64   `json:"duration_seconds"`
	FetchedAt       time.Time `json:"fetched_at"`
	Warnings        []string  `json:"warnings,omitempty"`
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch the catalog and build the index",
	Long: `Fetch the journal catalog and embed every journal into the index.

The flat backend saves a snapshot to index.path when configured; later
runs reuse it while the catalog and model are unchanged. The qdrant
backend recreates its collection.`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	log := mustLogger(cfg)

	showProgress := humanOutput && !noProgress
	var extra []pipeline.Option
	if showProgress {
		extra = append(extra, pipeline.WithProgress(index.ProgressFunc(printProgress)))
		fmt.Fprintf(os.Stderr, "Building journal index...\n")
	}

	session, cleanup := mustSession(ctx, cfg, log, extra...)
	defer cleanup()

	info, err := session.Rebuild(ctx)
	if err != nil {
		exitWithError(ExitError, "building index: %v", err)
	}

	if showProgress {
		fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", progressBarWidth+24))
	}

	if humanOutput {
		fmt.Printf("\n%s\n", headingStyle.Render("Build complete:"))
		fmt.Printf("  Journals: %d\n", info.Journals)
		fmt.Printf("  Indexed: %d\n", info.Indexed)
		fmt.Printf("  Domains: %d\n", info.Domains)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(info.Duration))
		fmt.Printf("  Model: %s\n", info.Model)
		fmt.Printf("  Backend: %s\n", cfg.Index.Backend)
		printWarnings(info.Warnings)
	} else {
		outputJSON(IndexBuildResult{
			Status:          "complete",
			Journals:        info.Journals,
			Indexed:         info.Indexed,
			Domains:         info.Domains,
			Model:           info.Model,
			Backend:         cfg.Index.Backend,
			DurationSeconds: info.Duration.Seconds(),
			FetchedAt:       info.FetchedAt,
			Warnings:        info.Warnings,
		})
	}

	if info.Indexed == 0 {
		cleanup()
		os.Exit(ExitNoResults)
	}
	return nil
}
