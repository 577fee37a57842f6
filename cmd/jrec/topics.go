package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/topics"
)

var topicsTopK int

func init() {
	rootCmd.AddCommand(topicsCmd)

	topicsCmd.Flags().IntVarP(&topicsTopK, "top-k", "k", 0, "Number of phrases (default from config, 5)")
}

var topicsCmd = &cobra.Command{
	Use:   "topics <text>",
	Short: "Extract key noun phrases from text",
	Long: `Extract the most frequent multi-word noun phrases from text.

Uses the displaCy service at topics.spacy_url when configured; otherwise,
or when the service fails, falls back to consecutive word pairs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTopics,
}

func runTopics(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	session, cleanup := mustSession(ctx, cfg, log)
	defer cleanup()

	text := strings.Join(args, " ")
	res := session.Topics(ctx, text, topicsTopK)
	if res.Phrases == nil {
		res.Phrases = []string{}
	}

	if humanOutput {
		for i, p := range res.Phrases {
			fmt.Printf("%d. %s\n", i+1, p)
		}
		if res.Fallback {
			fmt.Println(dimStyle.Render("(approximate: noun-phrase service unavailable)"))
		}
		return nil
	}
	outputJSON(topics.Result{Phrases: res.Phrases, Fallback: res.Fallback})
	return nil
}
