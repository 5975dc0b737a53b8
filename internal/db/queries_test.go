package db

import (
	"database/sql"
	"fmt"
	"testing"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestUpsertEntry_InsertAndGet(t *testing.T) {
	database := testDB(t)

	e := &Entry{Key: "k1", Mode: "easy", Value: "Einfacher Text.", CreatedAt: 100, LastAccess: 100}
	if err := UpsertEntry(database, e); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}

	got, err := GetEntry(database, "k1", 200)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Value != "Einfacher Text." {
		t.Errorf("Value = %q", got.Value)
	}
	if got.LastAccess != 200 {
		t.Errorf("LastAccess = %d, want 200 (read must touch)", got.LastAccess)
	}
}

func TestUpsertEntry_OverwritesValue(t *testing.T) {
	database := testDB(t)

	if err := UpsertEntry(database, &Entry{Key: "k1", Mode: "easy", Value: "alt", CreatedAt: 100, LastAccess: 100}); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}
	if err := UpsertEntry(database, &Entry{Key: "k1", Mode: "easy", Value: "neu", CreatedAt: 100, LastAccess: 150}); err != nil {
		t.Fatalf("second UpsertEntry failed: %v", err)
	}

	n, err := CountEntries(database)
	if err != nil {
		t.Fatalf("CountEntries failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1 (overwrite, not append)", n)
	}

	got, err := GetEntry(database, "k1", 200)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Value != "neu" {
		t.Errorf("Value = %q, want %q", got.Value, "neu")
	}
}

func TestGetEntry_Missing(t *testing.T) {
	database := testDB(t)

	_, err := GetEntry(database, "missing", 100)
	if err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestEvictOldest(t *testing.T) {
	database := testDB(t)

	// 10 entries with ascending last_access
	for i := 0; i < 10; i++ {
		e := &Entry{
			Key:        fmt.Sprintf("k%02d", i),
			Mode:       "easy",
			Value:      "v",
			CreatedAt:  int64(i),
			LastAccess: int64(i),
		}
		if err := UpsertEntry(database, e); err != nil {
			t.Fatalf("UpsertEntry failed: %v", err)
		}
	}

	evicted, err := EvictOldest(database, 4)
	if err != nil {
		t.Fatalf("EvictOldest failed: %v", err)
	}
	if evicted != 6 {
		t.Errorf("evicted = %d, want 6", evicted)
	}

	n, _ := CountEntries(database)
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}

	// The oldest keys must be gone, the newest retained
	if _, err := GetEntry(database, "k00", 100); err != sql.ErrNoRows {
		t.Error("k00 should have been evicted")
	}
	if _, err := GetEntry(database, "k09", 100); err != nil {
		t.Errorf("k09 should survive eviction: %v", err)
	}
}

func TestEvictOldest_UnderKeep(t *testing.T) {
	database := testDB(t)

	if err := UpsertEntry(database, &Entry{Key: "k1", Mode: "easy", Value: "v", CreatedAt: 1, LastAccess: 1}); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}

	evicted, err := EvictOldest(database, 10)
	if err != nil {
		t.Fatalf("EvictOldest failed: %v", err)
	}
	if evicted != 0 {
		t.Errorf("evicted = %d, want 0", evicted)
	}
}

func TestEvictOldest_TieBreaksByInsertionOrder(t *testing.T) {
	database := testDB(t)

	// Identical last_access: insertion order decides
	for _, key := range []string{"first", "second", "third"} {
		if err := UpsertEntry(database, &Entry{Key: key, Mode: "easy", Value: "v", CreatedAt: 5, LastAccess: 5}); err != nil {
			t.Fatalf("UpsertEntry failed: %v", err)
		}
	}

	if _, err := EvictOldest(database, 1); err != nil {
		t.Fatalf("EvictOldest failed: %v", err)
	}

	if _, err := GetEntry(database, "third", 100); err != nil {
		t.Errorf("latest insertion should survive the tie: %v", err)
	}
	if _, err := GetEntry(database, "first", 100); err != sql.ErrNoRows {
		t.Error("earliest insertion should be evicted first on a tie")
	}
}

func TestClearEntries(t *testing.T) {
	database := testDB(t)

	for i := 0; i < 3; i++ {
		if err := UpsertEntry(database, &Entry{Key: fmt.Sprintf("k%d", i), Mode: "easy", Value: "v", CreatedAt: 1, LastAccess: 1}); err != nil {
			t.Fatalf("UpsertEntry failed: %v", err)
		}
	}

	if err := ClearEntries(database); err != nil {
		t.Fatalf("ClearEntries failed: %v", err)
	}

	n, _ := CountEntries(database)
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestListEntries_NewestFirst(t *testing.T) {
	database := testDB(t)

	for i := 0; i < 3; i++ {
		if err := UpsertEntry(database, &Entry{Key: fmt.Sprintf("k%d", i), Mode: "easy", Value: "v", CreatedAt: int64(i), LastAccess: int64(i)}); err != nil {
			t.Fatalf("UpsertEntry failed: %v", err)
		}
	}

	entries, err := ListEntries(database, 10)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Key != "k2" {
		t.Errorf("first entry = %q, want k2 (newest first)", entries[0].Key)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	database := testDB(t)

	if _, err := GetMeta(database, "stats"); err != sql.ErrNoRows {
		t.Errorf("GetMeta on empty table: err = %v, want sql.ErrNoRows", err)
	}

	if err := SetMeta(database, "stats", `{"units_processed":3}`); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	if err := SetMeta(database, "stats", `{"units_processed":7}`); err != nil {
		t.Fatalf("SetMeta overwrite failed: %v", err)
	}

	v, err := GetMeta(database, "stats")
	if err != nil {
		t.Fatalf("GetMeta failed: %v", err)
	}
	if v != `{"units_processed":7}` {
		t.Errorf("v = %q", v)
	}
}
