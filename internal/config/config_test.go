package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gyeh/perfstats/internal/model"
)

func TestLoadFromFile_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("packets_per_second: 2000\nplots: false\ncategories:\n  - rtt\n  - marshal\n"), 0644)

	c := Default()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.PacketsPerSecond != 2000 {
		t.Errorf("PacketsPerSecond = %v, want 2000", c.PacketsPerSecond)
	}
	if c.Plots {
		t.Error("plots: false was not applied")
	}
	if len(c.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(c.Categories))
	}
	if c.Categories[0] != "rtt" || c.Categories[1] != "marshal" {
		t.Errorf("unexpected categories: %v", c.Categories)
	}
	if c.Baseline != model.Unoptimized || c.Variant != model.Optimized {
		t.Errorf("defaults lost: baseline=%q variant=%q", c.Baseline, c.Variant)
	}
	if !c.Enabled("rtt") || c.Enabled("bandwidth") {
		t.Error("Enabled does not follow Categories")
	}
}

func TestLoadFromFile_UnknownCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("categories:\n  - rtt\n  - BOGUS\n"), 0644)

	c := Default()
	err := c.LoadFromFile(path)
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestLoadFromFile_EmptyDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("categories: []\n"), 0644)

	var c Config
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if len(c.Categories) != len(model.AllCategories) {
		t.Errorf("expected %d default categories, got %d: %v", len(model.AllCategories), len(c.Categories), c.Categories)
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.PacketsPerSecond != DefaultPacketsPerSecond {
		t.Errorf("PacketsPerSecond = %v, want %v", c.PacketsPerSecond, DefaultPacketsPerSecond)
	}
	if c.Baseline != model.Unoptimized || c.Variant != model.Optimized {
		t.Errorf("baseline/variant = %s/%s", c.Baseline, c.Variant)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	var c Config
	err := c.LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := Default()
	bad.Variant = bad.Baseline
	if err := bad.Validate(); err == nil {
		t.Error("expected error when baseline equals variant")
	}

	bad = Default()
	bad.PacketsPerSecond = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero packets_per_second")
	}
}

func TestValidateWithDSN(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "run.parquet")
	os.WriteFile(snap, []byte("x"), 0644)

	c := Default()
	c.Snapshot = snap
	if err := c.ValidateWithDSN(); err == nil {
		t.Error("expected error without DSN")
	}
	c.DSN = "postgres://localhost/perf"
	if err := c.ValidateWithDSN(); err != nil {
		t.Errorf("ValidateWithDSN: %v", err)
	}
}
