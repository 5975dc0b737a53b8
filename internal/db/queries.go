package db

import (
	"database/sql"
	"fmt"
)

// Entry is a durable-tier cache row.
type Entry struct {
	Key        string `json:"key"`
	Mode       string `json:"mode"`
	Value      string `json:"value"`
	CreatedAt  int64  `json:"created_at"`
	LastAccess int64  `json:"last_access"`
}

// UpsertEntry inserts or overwrites a cache entry. Rewriting the same key
// replaces the value and refreshes last_access; entries never append.
func UpsertEntry(database *sql.DB, e *Entry) error {
	query := `
		INSERT INTO simplifications (key, mode, value, created_at, last_access)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			mode = excluded.mode,
			value = excluded.value,
			last_access = excluded.last_access
	`
	_, err := database.Exec(query, e.Key, e.Mode, e.Value, e.CreatedAt, e.LastAccess)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a cache entry by key and stamps last_access.
// Returns sql.ErrNoRows when the key is absent.
func GetEntry(database *sql.DB, key string, now int64) (*Entry, error) {
	e := &Entry{}
	query := `
		SELECT key, mode, value, created_at, last_access
		FROM simplifications
		WHERE key = ?
	`
	err := database.QueryRow(query, key).Scan(&e.Key, &e.Mode, &e.Value, &e.CreatedAt, &e.LastAccess)
	if err != nil {
		return nil, err
	}

	// Touch synchronously so eviction ordering reflects this read.
	if _, err := database.Exec(`UPDATE simplifications SET last_access = ? WHERE key = ?`, now, key); err != nil {
		return nil, fmt.Errorf("touch entry: %w", err)
	}
	e.LastAccess = now

	return e, nil
}

// CountEntries returns the number of durable-tier entries.
func CountEntries(database *sql.DB) (int, error) {
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM simplifications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// EvictOldest removes entries in ascending last_access order until at most
// keep entries remain. Ties on last_access break by rowid (insertion order).
// Returns the number of evicted entries.
func EvictOldest(database *sql.DB, keep int) (int, error) {
	count, err := CountEntries(database)
	if err != nil {
		return 0, err
	}
	if count <= keep {
		return 0, nil
	}

	query := `
		DELETE FROM simplifications WHERE key IN (
			SELECT key FROM simplifications
			ORDER BY last_access ASC, rowid ASC
			LIMIT ?
		)
	`
	res, err := database.Exec(query, count-keep)
	if err != nil {
		return 0, fmt.Errorf("evict oldest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evict oldest: %w", err)
	}
	return int(n), nil
}

// ClearEntries removes all durable-tier entries.
func ClearEntries(database *sql.DB) error {
	if _, err := database.Exec(`DELETE FROM simplifications`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

// ListEntries returns entries ordered by last_access descending, newest first.
// Used by the cache list command and the status page.
func ListEntries(database *sql.DB, limit int) ([]Entry, error) {
	query := `
		SELECT key, mode, value, created_at, last_access
		FROM simplifications
		ORDER BY last_access DESC, rowid DESC
		LIMIT ?
	`
	rows, err := database.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Mode, &e.Value, &e.CreatedAt, &e.LastAccess); err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetMeta retrieves a meta record by key. Returns ("", sql.ErrNoRows) when absent.
func GetMeta(database *sql.DB, key string) (string, error) {
	var v string
	err := database.QueryRow(`SELECT v FROM meta WHERE k = ?`, key).Scan(&v)
	if err != nil {
		return "", err
	}
	return v, nil
}

// SetMeta inserts or overwrites a meta record.
func SetMeta(database *sql.DB, key, value string) error {
	query := `
		INSERT INTO meta (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v
	`
	if _, err := database.Exec(query, key, value); err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}
