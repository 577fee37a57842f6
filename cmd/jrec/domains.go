package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(domainsCmd)
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the catalog's top-level research domains",
	RunE:  runDomains,
}

// DomainsResponse is the response for the domains command.
type DomainsResponse struct {
	Domains  []string `json:"domains"`
	Count    int      `json:"count"`
	Warnings []string `json:"warnings,omitempty"`
}

func runDomains(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	session, cleanup := mustSession(ctx, cfg, log)
	defer cleanup()

	domains, warnings, err := session.Domains(ctx)
	if err != nil {
		exitWithError(ExitError, "loading domains: %v", err)
	}

	if humanOutput {
		for _, d := range domains {
			fmt.Println(d)
		}
		if len(domains) == 0 {
			fmt.Println(dimStyle.Render("No domains available."))
		}
		printWarnings(warnings)
	} else {
		outputJSON(DomainsResponse{Domains: domains, Count: len(domains), Warnings: warnings})
	}

	if len(domains) == 0 {
		cleanup()
		os.Exit(ExitNoResults)
	}
	return nil
}
