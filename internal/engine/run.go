package engine

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"klartext/internal/cache"
	"klartext/internal/config"
	"klartext/internal/errors"
	"klartext/internal/page"
)

// RunResult summarizes one completed run.
type RunResult struct {
	RunID          string  `json:"run_id"`
	Source         string  `json:"source"`
	Mode           string  `json:"mode"`
	UnitsScanned   int     `json:"units_scanned"`
	UnitsProcessed int     `json:"units_processed"`
	CacheHits      int     `json:"cache_hits"`
	Errors         int     `json:"errors"`
	DurationMs     int64   `json:"duration_ms"`
	ModelVersion   string  `json:"model_version,omitempty"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
}

// Run executes one scan→batch→apply pass over the loaded document.
// Rejected unless the engine is Idle; the Idle check and the transition to
// Scanning are atomic, so two concurrent runs cannot start.
func (e *Engine) Run(ctx context.Context, mode string) (*RunResult, error) {
	if mode == "" {
		mode = e.cfg.Mode
	}
	if !config.ValidMode(mode) {
		return nil, errors.NewInvalidRequest("mode must be one of: easy, light")
	}

	e.mu.Lock()
	if e.state != StateIdle {
		state := e.state
		e.mu.Unlock()
		return nil, errors.NewInvalidState("run", string(state))
	}
	if e.doc == nil {
		e.mu.Unlock()
		return nil, errors.NewNoDocument()
	}
	e.state = StateScanning
	e.stats.Reset()
	gen := e.generation
	doc := e.doc
	source := e.source
	e.mu.Unlock()

	start := time.Now()
	result := &RunResult{
		RunID:  ulid.Make().String(),
		Source: source,
		Mode:   mode,
	}

	var units []page.Unit
	for u := range page.Scan(doc, page.ScanOptions{MinChars: e.cfg.MinUnitChars}) {
		units = append(units, u)
	}
	result.UnitsScanned = len(units)

	if len(units) == 0 {
		e.finishRun(result, start, gen)
		return result, nil
	}

	e.mu.Lock()
	e.state = StateBatching
	e.mu.Unlock()

	batchSize := e.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for offset := 0; offset < len(units); offset += batchSize {
		end := offset + batchSize
		if end > len(units) {
			end = len(units)
		}
		batch := units[offset:end]

		// Retain originals before any of the batch's mutations so restore
		// is satisfiable even for units still in flight. Keyed by locator,
		// first writer wins: a later run over an already-simplified document
		// must not shadow the true original with its own input.
		e.mu.Lock()
		if e.generation != gen {
			e.mu.Unlock()
			break
		}
		for _, u := range batch {
			k := u.Loc.String()
			if _, held := e.originals[k]; !held {
				e.originals[k] = retained{loc: u.Loc, original: u.Original}
			}
		}
		e.mu.Unlock()

		var g errgroup.Group
		for _, u := range batch {
			g.Go(func() error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.processUnit(ctx, gen, mode, u, result)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			break
		}

		// Restore beat the run: stop dispatching further batches.
		e.mu.Lock()
		stale := e.generation != gen
		e.mu.Unlock()
		if stale {
			break
		}
	}

	e.finishRun(result, start, gen)
	return result, nil
}

// processUnit pushes one unit through cache and service. Failures are
// contained to the unit: the displayed text stays as-is and the error
// counter moves.
func (e *Engine) processUnit(ctx context.Context, gen uint64, mode string, u page.Unit, result *RunResult) {
	text := strings.TrimSpace(u.Original)
	key := cache.Key(mode, text)

	if value, ok := e.cache.Get(key); ok {
		e.apply(gen, u, value, result, true, "")
		return
	}

	resp, err := e.client.Simplify(ctx, text, mode)
	if err != nil {
		e.mu.Lock()
		if e.generation == gen {
			e.stats.Errors++
		}
		result.Errors++
		e.mu.Unlock()
		return
	}

	e.cache.Set(key, mode, resp.Output)
	e.apply(gen, u, resp.Output, result, false, resp.ModelVersion)
}

// apply writes the simplified value into the document, preserving the
// unit's original surrounding whitespace. A result from a superseded
// generation is discarded: restore wins over in-flight applications.
func (e *Engine) apply(gen uint64, u page.Unit, value string, result *RunResult, hit bool, modelVersion string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation != gen {
		return
	}

	lead, trail := surroundingSpace(u.Original)
	if !page.SetText(e.doc, u.Loc, lead+value+trail) {
		// Node vanished between scan and apply: skip silently.
		return
	}

	e.stats.UnitsProcessed++
	result.UnitsProcessed++
	if hit {
		e.stats.CacheHits++
		result.CacheHits++
	}
	if modelVersion != "" {
		result.ModelVersion = modelVersion
	}
}

// finishRun computes derived fields, persists stats and the run report,
// and returns the state machine to Idle. A run whose generation has been
// superseded touches nothing: the state machine, the run summary, and the
// persisted stats all belong to whoever owns the current generation.
func (e *Engine) finishRun(result *RunResult, start time.Time, gen uint64) {
	result.DurationMs = time.Since(start).Milliseconds()
	if result.UnitsProcessed > 0 {
		result.CacheHitRate = float64(result.CacheHits) / float64(result.UnitsProcessed)
	}

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.lastRun = result
	if e.state == StateScanning || e.state == StateBatching {
		e.state = StateIdle
	}
	e.mu.Unlock()

	e.persistStats(result)
}

// surroundingSpace splits off the leading and trailing whitespace of s.
func surroundingSpace(s string) (lead, trail string) {
	trimmed := strings.TrimLeft(s, " \t\n\r")
	lead = s[:len(s)-len(trimmed)]
	trimmed = strings.TrimRight(trimmed, " \t\n\r")
	trail = s[len(lead)+len(trimmed):]
	return lead, trail
}
