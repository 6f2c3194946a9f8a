// Package server exposes the core as an MCP server: thin tool wrappers
// over internal/pipeline, internal/store, and internal/query. It carries
// no graph-construction semantics of its own: every tool either runs a
// pipeline lifecycle or a read-only query against the already-built store.
package server

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"codegraph/internal/store"
)

// Server wraps the MCP server with the workspace root and store path every
// tool handler needs.
type Server struct {
	mcpServer *mcp.Server

	workspaceRoot string
	storePath     string

	// buildMu serializes build/update against each other; the store itself
	// is single-writer, but a second concurrent build/update call must not
	// be allowed to open a second writer mid-transaction.
	buildMu sync.Mutex
}

// New constructs a Server rooted at workspaceRoot, with its graph database
// at storePath (conventionally "<workspaceRoot>/.codegraph/graph.db").
func New(workspaceRoot, storePath string) *Server {
	srv := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "codegraph",
			Version: "0.1.0",
		}, nil),
		workspaceRoot: workspaceRoot,
		storePath:     storePath,
	}
	srv.registerTools()
	srv.registerResources()
	return srv
}

// MCPServer returns the underlying MCP server, for main to Run over a
// transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// DefaultStorePath walks upward from startDir looking for an existing
// .codegraph/graph.db, falling back to "<startDir>/.codegraph/graph.db"
// when none is found.
func DefaultStorePath(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("server: resolve %s: %w", startDir, err)
	}
	return store.FindWorkspaceStore(dir), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
