package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/server"
	"github.com/matsen/journalrec/internal/tracing"
)

var (
	serveAddr    string
	serveOrigins []string
	serveWarm    bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8501)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "CORS origins for the JSON API (default all)")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", true, "Fetch the catalog and build the index before accepting requests")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form and JSON API",
	Long: `Run the HTTP server.

Routes:
  GET  /               manuscript form
  POST /               rendered recommendations
  POST /api/recommend  JSON recommendations
  GET  /api/domains    catalog domains
  POST /api/topics     key phrases for text
  POST /api/rebuild    refetch the catalog and rebuild the index
  GET  /healthz        readiness and catalog size`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mustLoadConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	log := mustLogger(cfg)

	shutdownTracing := tracing.Init(ctx, log, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "jrec",
		Version:     Version,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("flushing traces", "error", err)
		}
	}()

	session, cleanup := mustSession(ctx, cfg, log)
	defer cleanup()

	if serveWarm {
		info, err := session.Rebuild(ctx)
		if err != nil {
			exitWithError(ExitError, "building index: %v", err)
		}
		log.Info("index ready", "journals", info.Journals, "indexed", info.Indexed, "model", info.Model, "duration", info.Duration.String())
	}

	srv := server.New(session, log, server.Options{
		ServiceName:  "jrec",
		Tracing:      cfg.Tracing.Enabled,
		AllowOrigins: serveOrigins,
	})
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return nil
}
