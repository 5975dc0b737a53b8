// Package cache implements the two-tier simplification cache: a bounded
// in-process LRU tier in front of a durable SQLite tier. The durable tier
// survives restarts; losing it degrades the store to transient-only
// operation instead of failing callers.
package cache

import (
	"container/list"
	"database/sql"
	"log"
	"sync"
	"time"

	"klartext/internal/config"
	"klartext/internal/db"
)

// Store is safe for concurrent use. Tier bookkeeping (LRU order,
// last_access stamps, size counts) is updated synchronously under one
// mutex so interleaved batch units cannot corrupt the ceiling/watermark
// invariant.
type Store struct {
	mu        sync.Mutex
	database  *sql.DB
	degraded  bool
	capacity  int
	ceiling   int
	watermark int

	// transient LRU tier: front of ll is most recently used
	ll    *list.List
	items map[string]*list.Element

	now func() int64
}

type lruEntry struct {
	key   string
	value string
}

// New creates a Store over the given durable database. A nil database
// starts the store in transient-only mode.
func New(database *sql.DB, cfg *config.Config) *Store {
	return &Store{
		database:  database,
		degraded:  database == nil,
		capacity:  cfg.TransientCapacity,
		ceiling:   cfg.CacheCeiling,
		watermark: cfg.CacheWatermark,
		ll:        list.New(),
		items:     make(map[string]*list.Element),
		now:       func() int64 { return time.Now().Unix() },
	}
}

// Get returns the cached value for key. The transient tier is consulted
// first; a durable-tier hit is promoted into the transient tier.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.ll.MoveToFront(el)
		return el.Value.(*lruEntry).value, true
	}

	if s.degraded {
		return "", false
	}

	entry, err := db.GetEntry(s.database, key, s.now())
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.degrade(err)
		return "", false
	}

	s.promote(key, entry.Value)
	return entry.Value, true
}

// Set writes the value through to both tiers. When the durable tier grows
// past the ceiling, it is evicted down to the watermark.
func (s *Store) Set(key, mode, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promote(key, value)

	if s.degraded {
		return
	}

	now := s.now()
	entry := &db.Entry{Key: key, Mode: mode, Value: value, CreatedAt: now, LastAccess: now}
	if err := db.UpsertEntry(s.database, entry); err != nil {
		s.degrade(err)
		return
	}

	count, err := db.CountEntries(s.database)
	if err != nil {
		s.degrade(err)
		return
	}
	if count > s.ceiling {
		if _, err := db.EvictOldest(s.database, s.watermark); err != nil {
			s.degrade(err)
		}
	}
}

// Evict runs the size check outside the set path. Used by the periodic
// maintenance sweep; safe concurrently with an active run.
func (s *Store) Evict() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return 0, nil
	}

	count, err := db.CountEntries(s.database)
	if err != nil {
		s.degrade(err)
		return 0, nil
	}
	if count <= s.ceiling {
		return 0, nil
	}
	evicted, err := db.EvictOldest(s.database, s.watermark)
	if err != nil {
		s.degrade(err)
		return 0, nil
	}
	return evicted, nil
}

// Clear empties both tiers. Triggered by an explicit user command,
// independent of size-based eviction.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ll.Init()
	s.items = make(map[string]*list.Element)

	if s.degraded {
		return
	}
	if err := db.ClearEntries(s.database); err != nil {
		s.degrade(err)
	}
}

// Size returns the durable-tier entry count, or the transient-tier count
// when degraded.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.degraded {
		if count, err := db.CountEntries(s.database); err == nil {
			return count
		}
		s.degrade(nil)
	}
	return s.ll.Len()
}

// Degraded reports whether the store has fallen back to transient-only
// operation.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// promote inserts or refreshes a transient-tier entry, trimming to
// capacity. Caller holds the mutex.
func (s *Store) promote(key, value string) {
	if el, ok := s.items[key]; ok {
		el.Value.(*lruEntry).value = value
		s.ll.MoveToFront(el)
		return
	}
	s.items[key] = s.ll.PushFront(&lruEntry{key: key, value: value})
	for s.ll.Len() > s.capacity {
		oldest := s.ll.Back()
		s.ll.Remove(oldest)
		delete(s.items, oldest.Value.(*lruEntry).key)
	}
}

// degrade flips the store to transient-only mode. Logged once; later
// operations stay quiet until a new Store is built over a healthy database.
func (s *Store) degrade(err error) {
	if s.degraded {
		return
	}
	s.degraded = true
	if err != nil {
		log.Printf("cache: durable tier unavailable, continuing transient-only: %v", err)
	} else {
		log.Printf("cache: durable tier unavailable, continuing transient-only")
	}
}
