package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var loadToolDef = mcp.NewTool("page_load",
	mcp.WithDescription("Load an HTML document from a file path or http(s) URL. Replaces any previously loaded document and discards its retained originals."),
	mcp.WithString("source", mcp.Required(), mcp.Description("File path or http(s) URL of the document")),
)

var runToolDef = mcp.NewTool("page_run",
	mcp.WithDescription("Scan the loaded document for German text units and replace each with its simplified form. Rejected unless the engine is idle."),
	mcp.WithString("mode", mcp.Description("Simplification mode: easy (Einfache Sprache) or light (Leichte Sprache). Defaults to the configured mode."),
		mcp.Enum("easy", "light")),
)

var restoreToolDef = mcp.NewTool("page_restore",
	mcp.WithDescription("Put every simplified unit back to its original text. Results still in flight from an active run are discarded, not applied."),
)

var saveToolDef = mcp.NewTool("page_save",
	mcp.WithDescription("Render the current document, with any applied simplifications, to a file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Destination file path")),
)

var statsToolDef = mcp.NewTool("page_stats",
	mcp.WithDescription("Report the engine state, the latest run's counters, and cache figures."),
)

var cacheClearToolDef = mcp.NewTool("cache_clear",
	mcp.WithDescription("Empty both cache tiers. The next run resolves every unit against the service again."),
)

var cacheListToolDef = mcp.NewTool("cache_list",
	mcp.WithDescription("List recent cache entries, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
)
