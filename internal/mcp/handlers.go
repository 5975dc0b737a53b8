package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"klartext/internal/db"
	"klartext/internal/engine"
	"klartext/internal/errors"
)

// Handlers holds dependencies for MCP tool handlers. The engine is
// long-lived: the loaded document and its retained originals survive
// across tool calls for the life of the server process.
type Handlers struct {
	eng      *engine.Engine
	database *sql.DB
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, database *sql.DB) *Handlers {
	return &Handlers{eng: eng, database: database}
}

// Request types for each tool

// LoadRequest represents the arguments for page_load.
type LoadRequest struct {
	Source string `json:"source"`
}

// RunRequest represents the arguments for page_run.
type RunRequest struct {
	Mode string `json:"mode,omitempty"`
}

// SaveRequest represents the arguments for page_save.
type SaveRequest struct {
	Path string `json:"path"`
}

// CacheListRequest represents the arguments for cache_list.
type CacheListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Handler implementations

// HandleLoad handles the page_load tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LoadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Source == "" {
		return errorResult(errors.NewInvalidRequest("source is required")), nil
	}

	if err := h.eng.Load(input.Source); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"source": input.Source,
		"state":  string(h.eng.State()),
	})
}

// HandleRun handles the page_run tool call.
func (h *Handlers) HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.eng.Run(ctx, input.Mode)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the page_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	restored, err := h.eng.Restore()
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"restored": restored,
		"state":    string(h.eng.State()),
	})
}

// HandleSave handles the page_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	f, err := os.Create(input.Path)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("create " + input.Path + ": " + err.Error())), nil
	}
	defer f.Close()

	if err := h.eng.Save(f); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"path": input.Path})
}

// HandleStats handles the page_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := h.eng.StatsSnapshot()

	payload := map[string]any{
		"state":           snap.State,
		"units_processed": snap.UnitsProcessed,
		"cache_hits":      snap.CacheHits,
		"errors":          snap.Errors,
		"cache_size":      snap.CacheSize,
		"cache_hit_rate":  snap.CacheHitRate,
	}
	if snap.CacheDegraded {
		payload["cache_degraded"] = true
	}
	if last := h.eng.LastRun(); last != nil {
		payload["last_run"] = last
	}

	return successResult(payload)
}

// HandleCacheClear handles the cache_clear tool call.
func (h *Handlers) HandleCacheClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.eng.ClearCache()
	return successResult(map[string]any{"cache_size": h.eng.CacheSize()})
}

// HandleCacheList handles the cache_list tool call.
func (h *Handlers) HandleCacheList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CacheListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, err := db.ListEntries(h.database, limit)
	if err != nil {
		return errorResult(errors.NewCacheUnavailable(err)), nil
	}

	return successResult(map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if kErr, ok := err.(*errors.KlartextError); ok {
		errorObj := map[string]any{
			"code":    kErr.Code,
			"message": kErr.Message,
			"status":  kErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if kErr.Code != errors.ErrInternal && kErr.Details != nil {
			errorObj["details"] = kErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
