// Package main provides the jrec CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/config"
	"github.com/matsen/journalrec/internal/logger"
	"github.com/matsen/journalrec/internal/pipeline"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra's own errors (unknown flags) are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jrec",
	Short: "Recommend journals for a manuscript",
	Long: `jrec recommends academic journals for a manuscript from its title and abstract.

The journal catalog is fetched from OpenAlex, embedded with a sentence
embedding model, and searched by cosine similarity. Results can be
filtered by domain, impact factor and indexing service.

Impact factor, acceptance rate and indexing are simulated values.
All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (OPENALEX_MAILTO, JREC_*)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/jrec/config.yml)")
	rootCmd.Version = Version
}

// mustLoadConfig loads and validates configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// mustLogger builds the stderr logger for cfg, exits on error.
func mustLogger(cfg *config.Config) *logger.Logger {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		exitWithError(ExitConfigError, "creating logger: %v", err)
	}
	return log
}

// mustSession wires a recommendation session from cfg, exits on error.
// The caller must call the returned cleanup function.
func mustSession(ctx context.Context, cfg *config.Config, log *logger.Logger, extra ...pipeline.Option) (*pipeline.Session, func()) {
	s, closeFn, err := pipeline.FromConfig(ctx, cfg, log, extra...)
	if err != nil {
		exitWithError(ExitConfigError, "configuring session: %v", err)
	}
	return s, func() {
		if err := closeFn(); err != nil {
			log.Warn("releasing session resources", "error", err)
		}
		log.Sync()
	}
}
