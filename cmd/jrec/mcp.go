package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout for agents.

Tools:
  recommend_journals  journals for a title and abstract, with filters
  list_domains        top-level domains in the catalog
  extract_topics      key noun phrases for text

Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	session, cleanup := mustSession(ctx, cfg, log)
	defer cleanup()

	srv, err := mcp.NewServer(session, log, Version)
	if err != nil {
		exitWithError(ExitError, "creating MCP server: %v", err)
	}
	log.Info("mcp server starting", "transport", "stdio")
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		exitWithError(ExitError, "mcp server: %v", err)
	}
	return nil
}
