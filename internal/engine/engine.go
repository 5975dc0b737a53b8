// Package engine owns the run state machine. It scans a loaded document
// for qualifying text units, dispatches them in bounded batches through
// the cache and the remote service, applies results in place, and can
// revert every mutation from the retained originals.
package engine

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"klartext/internal/cache"
	"klartext/internal/config"
	"klartext/internal/errors"
	"klartext/internal/page"
	"klartext/internal/remote"
)

// State is the engine's run state. Only one run may be active at a time;
// a run request outside Idle is rejected, not queued.
type State string

const (
	StateIdle      State = "Idle"
	StateScanning  State = "Scanning"
	StateBatching  State = "Batching"
	StateRestoring State = "Restoring"
)

// retained pairs a unit's locator with its pre-mutation text.
type retained struct {
	loc      page.Locator
	original string
}

// Engine is safe for concurrent use. The mutex covers the state machine,
// document mutation, the originals map, and stats; the generation counter
// implements restore-wins for in-flight results.
type Engine struct {
	cfg      *config.Config
	cache    *cache.Store
	client   *remote.Client
	database *sql.DB

	mu         sync.Mutex
	state      State
	doc        *html.Node
	source     string
	originals  map[string]retained
	generation uint64
	stats      Stats
	lastRun    *RunResult
}

// New creates an engine over the given durable database. A nil database is
// allowed; the cache degrades to transient-only and stats are not persisted.
func New(database *sql.DB, cfg *config.Config) *Engine {
	e := &Engine{
		cfg:       cfg,
		cache:     cache.New(database, cfg),
		client:    remote.NewClient(cfg.ServiceEndpoint, cfg.MaxOutputChars, time.Duration(cfg.HTTPTimeoutSecs)*time.Second),
		database:  database,
		state:     StateIdle,
		originals: make(map[string]retained),
	}
	e.loadStats()
	return e
}

// Load reads a document from a file path or an http(s) URL. Loading
// replaces the current document and releases all retained originals;
// locators never survive across documents.
func (e *Engine) Load(source string) error {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		httpClient := &http.Client{Timeout: time.Duration(e.cfg.HTTPTimeoutSecs) * time.Second}
		resp, err := httpClient.Get(source)
		if err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("fetch %s: %v", source, err))
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return errors.NewInvalidRequest(fmt.Sprintf("fetch %s: status %d", source, resp.StatusCode))
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("open %s: %v", source, err))
		}
		r = f
	}
	defer r.Close()

	return e.LoadReader(r, source)
}

// LoadReader parses a document from r. source is recorded for reporting.
func (e *Engine) LoadReader(r io.Reader, source string) error {
	doc, err := page.Parse(r)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("parse document: %v", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return errors.NewInvalidState("load", string(e.state))
	}

	e.doc = doc
	e.source = source
	e.originals = make(map[string]retained)
	e.generation++
	return nil
}

// Save renders the current document to w.
func (e *Engine) Save(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.doc == nil {
		return errors.NewNoDocument()
	}
	if err := page.Render(w, e.doc); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// State returns the current run state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Source returns the origin of the loaded document, or "" when none is loaded.
func (e *Engine) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// ClearCache empties both cache tiers. Delegates to the store; independent
// of size-based eviction and of any active run.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheSize returns the durable-tier entry count.
func (e *Engine) CacheSize() int {
	return e.cache.Size()
}

// Maintain runs the periodic eviction sweep until done closes. Safe to run
// concurrently with an active run; intended for long-lived modes.
func (e *Engine) Maintain(interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if evicted, err := e.cache.Evict(); err == nil && evicted > 0 {
				log.Printf("cache: evicted %d entries", evicted)
			}
		}
	}
}
