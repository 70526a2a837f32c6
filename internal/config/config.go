package config

import (
	"fmt"
	"os"

	"github.com/gyeh/perfstats/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultPacketsPerSecond is the send rate assumed for the theoretical
// bandwidth maximum when none is configured.
const DefaultPacketsPerSecond = 1000

// Config holds all runtime configuration for a perfstats run.
type Config struct {
	ResultsDir       string
	OutDir           string // overrides where a report writes its outputs
	DSN              string
	LogFormat        string // "text" or "json"
	Snapshot         string // Parquet snapshot path to write (analyze) or read (export, inspect)
	Force            bool
	PacketsPerSecond float64  `yaml:"packets_per_second"`
	Baseline         string   `yaml:"baseline"`
	Variant          string   `yaml:"variant"`
	Plots            bool     `yaml:"plots"`
	Categories       []string `yaml:"categories"` // subset of model.AllCategories to read
}

// yamlConfig is the on-disk YAML structure. Pointers distinguish an absent
// key from a zero value.
type yamlConfig struct {
	PacketsPerSecond *float64 `yaml:"packets_per_second"`
	Baseline         *string  `yaml:"baseline"`
	Variant          *string  `yaml:"variant"`
	Plots            *bool    `yaml:"plots"`
	Categories       []string `yaml:"categories"`
}

// Default returns a Config with every default applied.
func Default() Config {
	c := Config{
		ResultsDir:       "results",
		LogFormat:        "text",
		PacketsPerSecond: DefaultPacketsPerSecond,
		Baseline:         model.Unoptimized,
		Variant:          model.Optimized,
		Plots:            true,
	}
	_ = c.validateCategories()
	return c
}

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.PacketsPerSecond != nil {
		c.PacketsPerSecond = *yc.PacketsPerSecond
	}
	if yc.Baseline != nil {
		c.Baseline = *yc.Baseline
	}
	if yc.Variant != nil {
		c.Variant = *yc.Variant
	}
	if yc.Plots != nil {
		c.Plots = *yc.Plots
	}
	c.Categories = yc.Categories
	return c.validateCategories()
}

// validateCategories checks that every entry in Categories is a known
// category name. If Categories is empty, it defaults to all of them.
func (c *Config) validateCategories() error {
	if len(c.Categories) == 0 {
		c.Categories = model.CategoryNames()
		return nil
	}
	for _, name := range c.Categories {
		if _, ok := model.CategoryByName(name); !ok {
			return fmt.Errorf("unknown category %q in config", name)
		}
	}
	return nil
}

// Enabled reports whether the named category is selected.
func (c *Config) Enabled(name string) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, n := range c.Categories {
		if n == name {
			return true
		}
	}
	return false
}

// Validate checks required fields and returns an error if the config is invalid.
// A results directory that does not exist is not an error here.
func (c *Config) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("--results-dir is required")
	}
	if c.PacketsPerSecond <= 0 {
		return fmt.Errorf("packets_per_second must be positive, got %v", c.PacketsPerSecond)
	}
	if c.Baseline == "" || c.Variant == "" || c.Baseline == c.Variant {
		return fmt.Errorf("baseline and variant must be two different group names")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("--log-format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ValidateSnapshot checks that the snapshot file exists.
func (c *Config) ValidateSnapshot() error {
	if c.Snapshot == "" {
		return fmt.Errorf("--snapshot is required")
	}
	if _, err := os.Stat(c.Snapshot); err != nil {
		return fmt.Errorf("snapshot not accessible: %w", err)
	}
	return nil
}

// ValidateWithDSN checks both the snapshot and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.ValidateSnapshot(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or PERFSTATS_DB_URL is required")
	}
	return nil
}
