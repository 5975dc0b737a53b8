package engine

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"klartext/internal/db"
)

// Meta record keys for persisted engine state.
const (
	metaStats    = "stats"
	metaSettings = "settings"
	metaReport   = "last_report"
)

// Stats holds the monotonically-accumulating run counters. Reset only at
// the start of a new run, never by restore.
type Stats struct {
	UnitsProcessed int `json:"units_processed"`
	CacheHits      int `json:"cache_hits"`
	Errors         int `json:"errors"`
}

// Reset zeroes the counters.
func (s *Stats) Reset() {
	*s = Stats{}
}

// Snapshot is the caller-facing stats view. Safe to take in any state.
type Snapshot struct {
	State          string  `json:"state"`
	UnitsProcessed int     `json:"units_processed"`
	CacheHits      int     `json:"cache_hits"`
	Errors         int     `json:"errors"`
	CacheSize      int     `json:"cache_size"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	CacheDegraded  bool    `json:"cache_degraded,omitempty"`
}

// StatsSnapshot returns the latest counters plus derived cache figures.
// Repeated calls without an intervening run return the same counters.
func (e *Engine) StatsSnapshot() Snapshot {
	e.mu.Lock()
	stats := e.stats
	state := e.state
	e.mu.Unlock()

	snap := Snapshot{
		State:          string(state),
		UnitsProcessed: stats.UnitsProcessed,
		CacheHits:      stats.CacheHits,
		Errors:         stats.Errors,
		CacheSize:      e.cache.Size(),
		CacheDegraded:  e.cache.Degraded(),
	}
	if snap.UnitsProcessed > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(snap.UnitsProcessed)
	}
	return snap
}

// LastRun returns the most recent run summary, or nil before any run.
func (e *Engine) LastRun() *RunResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun
}

// persistedStats is the durable form of the counters.
type persistedStats struct {
	Stats
	LastRun   *RunResult `json:"last_run,omitempty"`
	UpdatedAt int64      `json:"updated_at"`
}

// persistStats writes the stats, settings and run-report meta records.
// Persistence failures are logged, never surfaced: the counters survive
// in memory for the rest of the session.
func (e *Engine) persistStats(result *RunResult) {
	if e.database == nil {
		return
	}

	e.mu.Lock()
	record := persistedStats{Stats: e.stats, LastRun: result, UpdatedAt: time.Now().Unix()}
	e.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("stats: marshal failed: %v", err)
		return
	}
	if err := db.SetMeta(e.database, metaStats, string(data)); err != nil {
		log.Printf("stats: persist failed: %v", err)
		return
	}

	if settings, err := json.Marshal(e.cfg); err == nil {
		if err := db.SetMeta(e.database, metaSettings, string(settings)); err != nil {
			log.Printf("stats: settings persist failed: %v", err)
		}
	}

	if result != nil {
		if err := db.SetMeta(e.database, metaReport, renderReport(result)); err != nil {
			log.Printf("stats: report persist failed: %v", err)
		}
	}
}

// loadStats restores persisted counters at initialization.
func (e *Engine) loadStats() {
	if e.database == nil {
		return
	}

	data, err := db.GetMeta(e.database, metaStats)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("stats: load failed: %v", err)
		return
	}

	var record persistedStats
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		log.Printf("stats: unmarshal failed: %v", err)
		return
	}

	e.mu.Lock()
	e.stats = record.Stats
	e.lastRun = record.LastRun
	e.mu.Unlock()
}

// LastReport returns the persisted markdown report of the most recent run,
// or "" when none exists.
func (e *Engine) LastReport() string {
	if e.database == nil {
		return ""
	}
	report, err := db.GetMeta(e.database, metaReport)
	if err != nil {
		return ""
	}
	return report
}
