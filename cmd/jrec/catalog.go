package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/config"
	"github.com/matsen/journalrec/internal/journal"
	"github.com/matsen/journalrec/internal/pipeline"
	"github.com/matsen/journalrec/internal/storage"
)

// DefaultSearchLimit is the default limit for catalog search.
const DefaultSearchLimit = 20

var (
	catalogSearchLimit int
	catalogGetFile     string
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogGetCmd)
	catalogCmd.AddCommand(catalogInfoCmd)

	catalogSearchCmd.Flags().IntVarP(&catalogSearchLimit, "limit", "n", DefaultSearchLimit, "Maximum results")
	catalogGetCmd.Flags().StringVar(&catalogGetFile, "file", "", "Look up in a JSONL file instead of the catalog database")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the stored journal catalog",
	Long: `Commands for the sqlite catalog cache (storage.catalog_db, default
$XDG_CACHE_HOME/jrec/catalog.db). Populate it with 'jrec fetch' or
'jrec catalog import'.`,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Store journals from a JSONL file as the current catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over journal names and descriptions",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogSearch,
}

var catalogGetCmd = &cobra.Command{
	Use:   "get <issn>",
	Short: "Show a journal by linking ISSN",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogGet,
}

var catalogInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the stored catalog's size, age and fingerprint",
	RunE:  runCatalogInfo,
}

// CatalogInfoResponse is the response for the catalog info command.
type CatalogInfoResponse struct {
	Path        string    `json:"path"`
	Journals    int       `json:"journals"`
	Domains     int       `json:"domains"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// ImportResponse is the response for the catalog import command.
type ImportResponse struct {
	Path     string `json:"path"`
	Imported int    `json:"imported"`
	Dropped  int    `json:"dropped"`
}

// catalogDBPath returns the configured catalog database, or the cache default.
func catalogDBPath(cfg *config.Config) string {
	if cfg.Storage.CatalogDB != "" {
		return cfg.Storage.CatalogDB
	}
	return config.CachePath("catalog.db")
}

// mustOpenCatalog opens the catalog database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenCatalog(cfg *config.Config) (*storage.DB, string) {
	path := catalogDBPath(cfg)
	db, err := pipeline.OpenCatalogDB(path)
	if err != nil {
		exitWithError(ExitError, "opening catalog database: %v", err)
	}
	return db, path
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	journals, dropped, err := storage.ReadJournals(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}
	if len(journals) == 0 {
		exitWithError(ExitDataError, "%s contains no journals", args[0])
	}

	db, path := mustOpenCatalog(cfg)
	defer db.Close()
	if err := db.SaveCatalog(journals, time.Now()); err != nil {
		exitWithError(ExitError, "saving catalog: %v", err)
	}

	if humanOutput {
		fmt.Printf("Imported %d journals into %s (%d dropped)\n", len(journals), path, dropped)
		return nil
	}
	outputJSON(ImportResponse{Path: path, Imported: len(journals), Dropped: dropped})
	return nil
}

func runCatalogSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db, _ := mustOpenCatalog(cfg)
	defer db.Close()

	results, err := db.SearchJournals(args[0], catalogSearchLimit)
	if err != nil {
		exitWithError(ExitError, "searching catalog: %v", err)
	}
	if results == nil {
		results = []journal.Journal{}
	}

	if humanOutput {
		if len(results) == 0 {
			fmt.Println(dimStyle.Render("No journals found."))
			return nil
		}
		for i, j := range results {
			printJournalHuman(i+1, j)
		}
		return nil
	}
	outputJSON(results)
	return nil
}

func runCatalogGet(cmd *cobra.Command, args []string) error {
	issn := args[0]

	var found *journal.Journal
	if catalogGetFile != "" {
		journals, _, err := storage.ReadJournals(catalogGetFile)
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", catalogGetFile, err)
		}
		if i, ok := storage.FindByISSN(journals, issn); ok {
			found = &journals[i]
		}
	} else {
		cfg := mustLoadConfig()
		db, _ := mustOpenCatalog(cfg)
		defer db.Close()
		j, err := db.GetByISSN(issn)
		if err != nil {
			exitWithError(ExitError, "looking up %s: %v", issn, err)
		}
		found = j
	}

	if found == nil {
		exitWithError(ExitNoResults, "no journal with ISSN %s", issn)
	}
	if humanOutput {
		printJournalHuman(0, *found)
		return nil
	}
	outputJSON(found)
	return nil
}

func runCatalogInfo(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db, path := mustOpenCatalog(cfg)
	defer db.Close()

	resp := CatalogInfoResponse{Path: path}
	journals, fetchedAt, err := db.LoadCatalog(time.Now(), 0)
	switch {
	case errors.Is(err, storage.ErrNoCatalog):
	case err != nil:
		exitWithError(ExitError, "reading catalog: %v", err)
	default:
		resp.Journals = len(journals)
		resp.Domains = len(journal.ExtractDomains(journals))
		resp.FetchedAt = fetchedAt
	}
	if resp.Fingerprint, err = db.Fingerprint(); err != nil {
		exitWithError(ExitError, "reading fingerprint: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s\n", headingStyle.Render(path))
		fmt.Printf("  Journals: %d\n", resp.Journals)
		fmt.Printf("  Domains: %d\n", resp.Domains)
		if !resp.FetchedAt.IsZero() {
			fmt.Printf("  Fetched: %s (%s ago)\n", resp.FetchedAt.Format(time.RFC3339), formatDuration(time.Since(resp.FetchedAt)))
		}
		return nil
	}
	outputJSON(resp)
	return nil
}

// printJournalHuman prints one journal. A zero rank omits the number.
func printJournalHuman(rank int, j journal.Journal) {
	prefix := "   "
	if rank > 0 {
		prefix = fmt.Sprintf("%2d.", rank)
	}
	fmt.Printf("%s %s", prefix, titleStyle.Render(j.DisplayName))
	if j.AbbreviatedTitle != "" {
		fmt.Printf(" %s", dimStyle.Render("("+j.AbbreviatedTitle+")"))
	}
	fmt.Println()
	fmt.Printf("    Publisher: %s  ISSN: %s\n", j.Publisher(), j.ISSN())
	fmt.Printf("    Domains: %s\n", joinOrNA(j.Domains()))
	fmt.Printf("    %s\n\n", j.URL())
}
