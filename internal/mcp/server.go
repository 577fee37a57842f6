// Package mcp exposes the recommender as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matsen/journalrec/internal/logger"
	"github.com/matsen/journalrec/internal/pipeline"
	"github.com/matsen/journalrec/internal/topics"
)

// Service is the subset of the recommendation session the tools call.
type Service interface {
	Recommend(ctx context.Context, req pipeline.Request) *pipeline.Outcome
	Domains(ctx context.Context) ([]string, []string, error)
	Topics(ctx context.Context, text string, topK int) topics.Result
}

// Server wraps the MCP server around a recommendation Service.
type Server struct {
	mcp *gomcp.Server
	svc Service
	log *logger.Logger
}

// NewServer creates an MCP server with the recommender tools registered.
func NewServer(svc Service, log *logger.Logger, version string) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("recommendation service is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp: gomcp.NewServer(&gomcp.Implementation{Name: "jrec", Version: version}, nil),
		svc: svc,
		log: log,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the server on stdin/stdout until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

// guard converts a handler panic into a generic tool error.
func (s *Server) guard(name string, h gomcp.ToolHandler) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (res *gomcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("tool panicked", "tool", name, "panic", r)
				res, err = toolError("%s", pipeline.MsgError), nil
			}
		}()
		return h(ctx, req)
	}
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// toolJSON returns v as indented JSON text content.
func toolJSON(v interface{}) *gomcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("encoding result: %v", err)
	}
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: string(data)}},
	}
}
