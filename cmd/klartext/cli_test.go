package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"klartext/internal/config"
	"klartext/internal/db"
	"klartext/internal/remote"
)

const samplePage = `<html><body>
<p>Der Antrag muss bis Ende des Monats eingereicht werden.</p>
<p>Die Behörde prüft die Unterlagen innerhalb von zwei Wochen.</p>
<p>short</p>
</body></html>`

// setupTestApp builds a CLI app over a temporary database and a stub
// simplification service, plus a sample page on disk.
func setupTestApp(t *testing.T) (*sql.DB, *config.Config, string) {
	t.Helper()

	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remote.Request
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(remote.Response{
			Status:       "done",
			ModelVersion: "mt5-v1.0",
			Output:       "EINFACH: " + req.Input,
		})
	}))
	t.Cleanup(service.Close)

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.ServiceEndpoint = service.URL

	pagePath := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(pagePath, []byte(samplePage), 0o644); err != nil {
		t.Fatalf("failed to write page: %v", err)
	}

	return database, cfg, pagePath
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, _ := os.Pipe()
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	err := fn()
	w.Close()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

func TestRunCommand(t *testing.T) {
	database, cfg, pagePath := setupTestApp(t)
	app := newCLIApp(database, cfg)

	outPath := filepath.Join(t.TempDir(), "out.html")
	out, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "run", "--mode=easy", "--output=" + outPath, pagePath})
	})
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("run output is not JSON: %v\n%s", err, out)
	}
	if got := result["units_processed"].(float64); got != 2 {
		t.Errorf("units_processed = %v, want 2", got)
	}
	if got := result["mode"].(string); got != "easy" {
		t.Errorf("mode = %v, want easy", got)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output document: %v", err)
	}
	if !strings.Contains(string(data), "EINFACH:") {
		t.Error("output document should hold the simplified text")
	}
}

func TestRunCommand_MissingSource(t *testing.T) {
	database, cfg, _ := setupTestApp(t)
	app := newCLIApp(database, cfg)

	err := app.Run([]string{"klartext", "run"})
	if err == nil {
		t.Fatal("run without a source must fail")
	}
	if !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCommand_InvalidMode(t *testing.T) {
	database, cfg, pagePath := setupTestApp(t)
	app := newCLIApp(database, cfg)

	err := app.Run([]string{"klartext", "run", "--mode=hard", pagePath})
	if err == nil {
		t.Fatal("invalid mode must fail")
	}
	if !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStatsCommand(t *testing.T) {
	database, cfg, pagePath := setupTestApp(t)
	app := newCLIApp(database, cfg)

	if _, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "run", pagePath})
	}); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "stats"})
	})
	if err != nil {
		t.Fatalf("stats command failed: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out)
	}
	stats := payload["stats"].(map[string]any)
	if got := stats["units_processed"].(float64); got != 2 {
		t.Errorf("units_processed = %v, want 2", got)
	}
	if _, ok := payload["last_run"]; !ok {
		t.Error("stats should carry the persisted run summary")
	}
}

func TestStatsCommand_Report(t *testing.T) {
	database, cfg, pagePath := setupTestApp(t)
	app := newCLIApp(database, cfg)

	// No report before any run
	if err := app.Run([]string{"klartext", "stats", "--report"}); err == nil {
		t.Fatal("report before any run must fail")
	}

	if _, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "run", pagePath})
	}); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "stats", "--report"})
	})
	if err != nil {
		t.Fatalf("stats --report failed: %v", err)
	}
	if !strings.Contains(out, "## Run") {
		t.Errorf("report output missing heading:\n%s", out)
	}
}

func TestCacheCommands(t *testing.T) {
	database, cfg, pagePath := setupTestApp(t)
	app := newCLIApp(database, cfg)

	if _, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "run", pagePath})
	}); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"klartext", "cache", "--limit=10"})
	})
	if err != nil {
		t.Fatalf("cache command failed: %v", err)
	}

	var listing map[string]any
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("cache output is not JSON: %v\n%s", err, out)
	}
	if got := listing["total"].(float64); got != 2 {
		t.Errorf("total = %v, want 2", got)
	}

	out, err = captureStdout(t, func() error {
		return app.Run([]string{"klartext", "clear-cache"})
	})
	if err != nil {
		t.Fatalf("clear-cache command failed: %v", err)
	}

	var cleared map[string]any
	if err := json.Unmarshal([]byte(out), &cleared); err != nil {
		t.Fatalf("clear-cache output is not JSON: %v\n%s", err, out)
	}
	if got := cleared["cleared"].(float64); got != 2 {
		t.Errorf("cleared = %v, want 2", got)
	}

	count, err := db.CountEntries(database)
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	if count != 0 {
		t.Errorf("cache count = %d after clear, want 0", count)
	}
}

func TestIsCLIMode(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", []string{"klartext"}, false},
		{"run command", []string{"klartext", "run", "page.html"}, true},
		{"stats command", []string{"klartext", "stats"}, true},
		{"serve command", []string{"klartext", "serve"}, true},
		{"help flag", []string{"klartext", "--help"}, true},
		{"version flag", []string{"klartext", "-v"}, true},
		{"unknown arg", []string{"klartext", "bogus"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			if got := isCLIMode(); got != tt.want {
				t.Errorf("isCLIMode() = %v, want %v", got, tt.want)
			}
		})
	}
}
