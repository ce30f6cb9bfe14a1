package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	index  *Index
}

// Config holds server dependencies.
type Config struct {
	Index *Index
	// Staleness is optional; without it the status tool omits remote comparisons.
	Staleness StalenessChecker
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "notebook-host",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)
	outliner := notebook.NewOutliner()

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_notebooks",
		Description: "List the Pluto notebooks currently published by the notebook host, with source repository and title. Use fetch_notebook to get the source.",
	}, makeListHandler(cfg.Index))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_notebook",
		Description: "Retrieve a published Pluto notebook by its indexed name. Returns the notebook source and an outline of its markdown headings.",
	}, makeFetchHandler(cfg.Index, outliner))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the status of the notebook index: notebook count, last index time, indexed commit per repository and staleness indicator, plus the latest remote commit touching notebooks/.",
	}, makeStatusHandler(cfg.Index, cfg.Staleness))

	return &Server{
		server: server,
		index:  cfg.Index,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
