package mcp

import (
	"context"
	"encoding/json"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matsen/journalrec/internal/pipeline"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "recommend_journals",
		Description: "Recommend journals for a manuscript from its title and abstract. Optional filters narrow by top-level domain, impact factor range and required indexing services. Impact factor, acceptance rate and indexing are simulated values.",
		InputSchema: recommendSchema,
	}, s.guard("recommend_journals", s.handleRecommend))

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_domains",
		Description: "List the top-level research domains present in the journal catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.guard("list_domains", s.handleListDomains))

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "extract_topics",
		Description: "Extract the most frequent multi-word noun phrases from text.",
		InputSchema: topicsSchema,
	}, s.guard("extract_topics", s.handleExtractTopics))
}

// Integer arguments are typed "integer" to match their int fields.
var recommendSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {"type": "string", "description": "Manuscript title"},
		"abstract": {"type": "string", "description": "Manuscript abstract"},
		"domains": {"type": "array", "items": {"type": "string"}, "description": "Keep journals in at least one of these top-level domains (see list_domains)"},
		"impact_min": {"type": "number", "description": "Minimum impact factor, 0-20 (default 0)"},
		"impact_max": {"type": "number", "description": "Maximum impact factor, 0-20 (default 10)"},
		"indexing": {"type": "array", "items": {"type": "string", "enum": ["Scopus", "Web of Science", "UGC CARE", "Google Scholar"]}, "description": "Indexing services every result must be listed in"},
		"count": {"type": "integer", "description": "Number of recommendations, 1-10 (default 3)"}
	},
	"required": ["title", "abstract"]
}`)

var topicsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"text": {"type": "string", "description": "Text to analyse"},
		"top_k": {"type": "integer", "description": "Number of phrases (default 5)"}
	},
	"required": ["text"]
}`)

type recommendArgs struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Domains   []string `json:"domains"`
	ImpactMin *float64 `json:"impact_min"`
	ImpactMax *float64 `json:"impact_max"`
	Indexing  []string `json:"indexing"`
	Count     int      `json:"count"`
}

func (s *Server) handleRecommend(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args recommendArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	out := s.svc.Recommend(ctx, pipeline.Request{
		Title:     args.Title,
		Abstract:  args.Abstract,
		Domains:   args.Domains,
		ImpactMin: args.ImpactMin,
		ImpactMax: args.ImpactMax,
		Indexing:  args.Indexing,
		Count:     args.Count,
	})
	switch out.Status {
	case pipeline.StatusInvalid, pipeline.StatusError:
		return toolError("%s", out.Message), nil
	}
	return toolJSON(out), nil
}

func (s *Server) handleListDomains(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	domains, warnings, err := s.svc.Domains(ctx)
	if err != nil {
		return toolError("loading domains: %v", err), nil
	}
	return toolJSON(map[string]interface{}{
		"domains":  domains,
		"count":    len(domains),
		"warnings": warnings,
	}), nil
}

type topicsArgs struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

func (s *Server) handleExtractTopics(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args topicsArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Text == "" {
		return toolError("text is required"), nil
	}

	res := s.svc.Topics(ctx, args.Text, args.TopK)
	phrases := res.Phrases
	if phrases == nil {
		phrases = []string{}
	}
	return toolJSON(map[string]interface{}{
		"topics":   phrases,
		"fallback": res.Fallback,
	}), nil
}
