package diag

import (
	"github.com/rs/zerolog"
)

// Severity classifies a diagnostic.
type Severity string

const (
	// SeverityWarn marks a dropped line or field; the file still yields records.
	SeverityWarn Severity = "warn"
	// SeveritySkip marks a file that produced no records.
	SeveritySkip Severity = "skip"
)

// Diagnostic is one problem found while reading a result file.
type Diagnostic struct {
	Severity Severity
	Path     string
	Field    string
	Reason   string
}

// Collector records diagnostics for a run and mirrors each one to the logger.
// It is passed explicitly through every phase so callers and tests can
// inspect what was dropped after the run finishes.
type Collector struct {
	log   zerolog.Logger
	items []Diagnostic
}

// NewCollector returns a Collector that logs through log.
func NewCollector(log zerolog.Logger) *Collector {
	return &Collector{log: log}
}

// Warn records a non-fatal problem inside a file.
func (c *Collector) Warn(path, field, reason string) {
	c.add(Diagnostic{Severity: SeverityWarn, Path: path, Field: field, Reason: reason})
}

// Skip records that a whole file was excluded.
func (c *Collector) Skip(path, field, reason string) {
	c.add(Diagnostic{Severity: SeveritySkip, Path: path, Field: field, Reason: reason})
}

func (c *Collector) add(d Diagnostic) {
	c.items = append(c.items, d)
	ev := c.log.Warn()
	if d.Severity == SeveritySkip {
		ev = ev.Bool("skipped", true)
	}
	ev.Str("path", d.Path).
		Str("field", d.Field).
		Msg(d.Reason)
}

// Items returns all diagnostics in the order they were recorded.
func (c *Collector) Items() []Diagnostic {
	return append([]Diagnostic(nil), c.items...)
}

// Count returns the number of recorded diagnostics.
func (c *Collector) Count() int { return len(c.items) }

// Skipped returns the number of files skipped.
func (c *Collector) Skipped() int {
	n := 0
	for _, d := range c.items {
		if d.Severity == SeveritySkip {
			n++
		}
	}
	return n
}

// ForPath returns the diagnostics recorded against path.
func (c *Collector) ForPath(path string) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.items {
		if d.Path == path {
			out = append(out, d)
		}
	}
	return out
}
