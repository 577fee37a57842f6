package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/journal"
	"github.com/matsen/journalrec/internal/pipeline"
	"github.com/matsen/journalrec/internal/storage"
)

var (
	fetchPerPage  int
	fetchMaxPages int
	fetchOutput   string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().IntVar(&fetchPerPage, "per-page", 0, "Journals per page, 1-200 (default from config)")
	fetchCmd.Flags().IntVar(&fetchMaxPages, "max-pages", 0, "Maximum pages to fetch (default from config)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Also write the journals to a JSONL file")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the journal catalog from OpenAlex",
	Long: `Fetch the journal catalog from OpenAlex with cursor pagination.

A failed page stops the walk; journals gathered before it are kept and the
failure is reported as a warning. A complete fetch is stored in the catalog
database when storage.catalog_db is configured.`,
	RunE: runFetch,
}

// FetchResponse is the response for the fetch command.
type FetchResponse struct {
	Journals int    `json:"journals"`
	Pages    int    `json:"pages"`
	Dropped  int    `json:"dropped"`
	Complete bool   `json:"complete"`
	Domains  int    `json:"domains"`
	Stored   bool   `json:"stored"`
	Output   string `json:"output,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	defer log.Sync()

	perPage, maxPages := cfg.OpenAlex.PerPage, cfg.OpenAlex.MaxPages
	if fetchPerPage > 0 {
		if fetchPerPage > 200 {
			exitWithError(ExitDataError, "--per-page must be between 1 and 200")
		}
		perPage = fetchPerPage
	}
	if fetchMaxPages > 0 {
		maxPages = fetchMaxPages
	}

	res := pipeline.NewFetcher(cfg.OpenAlex).FetchJournals(ctx, perPage, maxPages)
	resp := FetchResponse{
		Journals: len(res.Journals),
		Pages:    res.Pages,
		Dropped:  res.Dropped,
		Complete: res.Complete,
		Domains:  len(journal.ExtractDomains(res.Journals)),
	}
	if res.Warning != nil {
		resp.Warning = res.Warning.Error()
		log.Warn("catalog fetch incomplete", "pages", res.Pages, "journals", len(res.Journals), "error", res.Warning)
	}

	if fetchOutput != "" && len(res.Journals) > 0 {
		if err := storage.WriteJournals(fetchOutput, res.Journals); err != nil {
			exitWithError(ExitError, "writing %s: %v", fetchOutput, err)
		}
		resp.Output = fetchOutput
	}

	if path := cfg.Storage.CatalogDB; path != "" && res.Warning == nil && len(res.Journals) > 0 {
		db, err := pipeline.OpenCatalogDB(path)
		if err != nil {
			exitWithError(ExitError, "opening catalog database: %v", err)
		}
		defer db.Close()
		if err := db.SaveCatalog(res.Journals, time.Now()); err != nil {
			exitWithError(ExitError, "saving catalog: %v", err)
		}
		resp.Stored = true
	}

	if humanOutput {
		fmt.Printf("Fetched %d journals from %d pages (%d dropped)\n", resp.Journals, resp.Pages, resp.Dropped)
		fmt.Printf("  Domains: %d\n", resp.Domains)
		if resp.Stored {
			fmt.Printf("  Stored in %s\n", cfg.Storage.CatalogDB)
		}
		if resp.Output != "" {
			fmt.Printf("  Wrote %s\n", resp.Output)
		}
		if resp.Warning != "" {
			printWarnings([]string{resp.Warning})
		}
	} else {
		outputJSON(resp)
	}

	if len(res.Journals) == 0 {
		os.Exit(ExitNoResults)
	}
	return nil
}
