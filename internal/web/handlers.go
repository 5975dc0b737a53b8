package web

import (
	"database/sql"
	"net/http"
	"net/url"
	"strconv"

	"klartext/internal/config"
	"klartext/internal/db"
	"klartext/internal/engine"
	"klartext/internal/errors"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	eng      *engine.Engine
	database *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleStatus handles GET /status, the engine dashboard.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.eng.StatsSnapshot()

	data := StatusPageData{
		PageData: PageData{
			Title:   "Status",
			Version: h.renderer.version,
			Nav:     "status",
		},
		Snapshot: snap,
		Source:   h.eng.Source(),
		LastRun:  h.eng.LastRun(),
		Message:  r.URL.Query().Get("msg"),
	}
	if report := h.eng.LastReport(); report != "" {
		data.ReportHTML = renderMarkdown(report)
	}

	h.renderer.renderPage(w, "status", data)
}

// HandleCache handles GET /cache, the recent cache entries page.
func (h *Handlers) HandleCache(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)

	entries, err := db.ListEntries(h.database, limit)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewCacheUnavailable(err))
		return
	}

	h.renderer.renderPage(w, "cache", CachePageData{
		PageData: PageData{
			Title:   "Cache",
			Version: h.renderer.version,
			Nav:     "cache",
		},
		Entries: entries,
		Count:   h.eng.CacheSize(),
		Ceiling: h.cfg.CacheCeiling,
		Message: r.URL.Query().Get("msg"),
	})
}

// HandleLoad handles POST /load, loading a document by path or URL.
func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	source := r.FormValue("source")
	if source == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("source is required"))
		return
	}

	if err := h.eng.Load(source); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	redirectMsg(w, r, "/status", "document loaded")
}

// HandleRun handles POST /run, one simplification pass.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	mode := r.FormValue("mode")

	result, err := h.eng.Run(r.Context(), mode)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	redirectMsg(w, r, "/status", "run "+result.RunID+" finished")
}

// HandleRestore handles POST /restore.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	restored, err := h.eng.Restore()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	redirectMsg(w, r, "/status", strconv.Itoa(restored)+" units restored")
}

// HandleCacheClear handles POST /cache/clear.
func (h *Handlers) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.eng.ClearCache()
	redirectMsg(w, r, "/cache", "cache cleared")
}

// HandleDocument handles GET /document, serving the current document as
// rendered HTML so the simplification result can be inspected directly.
func (h *Handlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.eng.Save(w); err != nil {
		h.renderer.renderError(w, r, err)
	}
}

// redirectMsg redirects to path carrying a one-shot status message.
func redirectMsg(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
