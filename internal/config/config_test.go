package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := DefaultConfig()
	if cfg.ServiceEndpoint != def.ServiceEndpoint {
		t.Errorf("ServiceEndpoint = %q, want default %q", cfg.ServiceEndpoint, def.ServiceEndpoint)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.BatchSize)
	}
	if cfg.CacheCeiling != 1000 || cfg.CacheWatermark != 500 {
		t.Errorf("cache bounds = %d/%d, want 1000/500", cfg.CacheCeiling, cfg.CacheWatermark)
	}
}

func TestLoad_Overlay(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"service_endpoint": "https://api.example.de/v1/simplify", "mode": "light", "batch_size": 3}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServiceEndpoint != "https://api.example.de/v1/simplify" {
		t.Errorf("ServiceEndpoint = %q", cfg.ServiceEndpoint)
	}
	if cfg.Mode != "light" {
		t.Errorf("Mode = %q, want light", cfg.Mode)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("BatchSize = %d, want 3", cfg.BatchSize)
	}
	// Untouched fields keep defaults
	if cfg.MinUnitChars != 15 {
		t.Errorf("MinUnitChars = %d, want 15", cfg.MinUnitChars)
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"mode": "hard"}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should reject unknown mode")
	}
}

func TestLoad_WatermarkAboveCeiling(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"cache_ceiling": 100, "cache_watermark": 200}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should reject watermark >= ceiling")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should fail on malformed JSON")
	}
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{"easy", "light"} {
		if !ValidMode(mode) {
			t.Errorf("ValidMode(%q) = false, want true", mode)
		}
	}
	for _, mode := range []string{"", "hard", "EASY"} {
		if ValidMode(mode) {
			t.Errorf("ValidMode(%q) = true, want false", mode)
		}
	}
}
