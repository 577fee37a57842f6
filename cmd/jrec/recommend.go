package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/journalrec/internal/pdf"
	"github.com/matsen/journalrec/internal/pipeline"
)

var recommendFlags struct {
	title     string
	abstract  string
	pdfPath   string
	domains   []string
	impactMin float64
	impactMax float64
	indexing  []string
	count     int
	topK      int
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	f := recommendCmd.Flags()
	f.StringVarP(&recommendFlags.title, "title", "t", "", "Manuscript title")
	f.StringVarP(&recommendFlags.abstract, "abstract", "a", "", "Manuscript abstract")
	f.StringVar(&recommendFlags.pdfPath, "pdf", "", "Read title and abstract from a manuscript PDF")
	f.StringArrayVar(&recommendFlags.domains, "domain", nil, "Keep journals in this domain (repeatable)")
	f.Float64Var(&recommendFlags.impactMin, "impact-min", 0, "Minimum impact factor, 0-20")
	f.Float64Var(&recommendFlags.impactMax, "impact-max", pipeline.DefaultImpactMax, "Maximum impact factor, 0-20")
	f.StringArrayVar(&recommendFlags.indexing, "indexing", nil, "Required indexing service (repeatable): Scopus, Web of Science, UGC CARE, Google Scholar")
	f.IntVarP(&recommendFlags.count, "count", "n", pipeline.DefaultCount, "Number of recommendations, 1-10")
	f.IntVar(&recommendFlags.topK, "top-k", pipeline.DefaultTopK, "Nearest neighbours considered before filtering")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend journals for a manuscript",
	Long: `Recommend journals for a manuscript.

Provide --title and --abstract, or --pdf to read them from the manuscript's
first pages. Explicit flags take precedence over text found in the PDF.

Exit codes:
  0  recommendations printed
  1  runtime error
  2  configuration error
  3  invalid input
  4  no journals matched (catalog unavailable, empty index, or filters too narrow)`,
	RunE: runRecommend,
}

func runRecommend(cmd *cobra.Command, args []string) error {
	req := pipeline.Request{
		Title:     recommendFlags.title,
		Abstract:  recommendFlags.abstract,
		Domains:   recommendFlags.domains,
		ImpactMin: pipeline.Impact(recommendFlags.impactMin),
		ImpactMax: pipeline.Impact(recommendFlags.impactMax),
		Indexing:  recommendFlags.indexing,
		Count:     recommendFlags.count,
		TopK:      recommendFlags.topK,
	}

	ctx := context.Background()
	cfg := mustLoadConfig()
	log := mustLogger(cfg)

	if recommendFlags.pdfPath != "" {
		m, err := pdf.ExtractManuscript(recommendFlags.pdfPath)
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", recommendFlags.pdfPath, err)
		}
		log.Info("extracted manuscript", "path", recommendFlags.pdfPath, "doi", m.DOI,
			"title_found", m.Title != "", "abstract_found", m.Abstract != "")
		req = mergeManuscript(req, m)
	}
	session, cleanup := mustSession(ctx, cfg, log)
	defer cleanup()

	out := session.Recommend(ctx, req)
	if humanOutput {
		printOutcomeHuman(out)
	} else {
		outputJSON(out)
	}

	if code := exitCodeForStatus(out.Status); code != ExitSuccess {
		cleanup()
		os.Exit(code)
	}
	return nil
}

// mergeManuscript fills the title and abstract from m where the request
// has none.
func mergeManuscript(req pipeline.Request, m *pdf.Manuscript) pipeline.Request {
	if m == nil {
		return req
	}
	if req.Title == "" {
		req.Title = m.Title
	}
	if req.Abstract == "" {
		req.Abstract = m.Abstract
	}
	return req
}
