package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/journalrec/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying the config file and JREC_*
environment variables. Secrets are redacted.`,
	RunE: runConfig,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path   string         `json:"path"`
	Config *config.Config `json:"config"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	path := configPath
	if path == "" {
		path = config.GlobalConfigPath()
	}

	if humanOutput {
		data, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		fmt.Printf("%s\n\n%s", dimStyle.Render("# "+path), data)
		return nil
	}
	outputJSON(ConfigResponse{Path: path, Config: cfg.Redacted()})
	return nil
}
