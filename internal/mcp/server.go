package mcp

import (
	"context"
	"database/sql"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"klartext/internal/config"
	"klartext/internal/engine"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"page_load": {
		def:     loadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"page_run": {
		def:     runToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRun },
	},
	"page_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"page_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"page_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"cache_clear": {
		def:     cacheClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheClear },
	},
	"cache_list": {
		def:     cacheListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheList },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with Klartext tools registered. The
// engine it builds is shared by every tool call, so a loaded document
// stays loaded between calls.
func NewServer(database *sql.DB, cfg *config.Config, version string) (*server.MCPServer, *engine.Engine) {
	s := server.NewMCPServer(
		"klartext",
		version,
		server.WithToolCapabilities(true),
	)

	eng := engine.New(database, cfg)
	h := NewHandlers(eng, database)

	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s, eng
}

// Run starts the MCP server using stdio transport. The eviction sweep
// runs alongside it for the life of the process.
func Run(database *sql.DB, cfg *config.Config, version string) error {
	s, eng := NewServer(database, cfg, version)

	done := make(chan struct{})
	defer close(done)
	go eng.Maintain(time.Duration(cfg.EvictIntervalSecs)*time.Second, done)

	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
