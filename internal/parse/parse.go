package parse

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/gyeh/perfstats/internal/diag"
	"github.com/gyeh/perfstats/internal/model"
)

// Failure reports why a single file produced no records. The run continues.
type Failure struct {
	Path   string
	Field  string
	Reason string
}

func (f *Failure) Error() string {
	if f.Field == "" {
		return fmt.Sprintf("%s: %s", f.Path, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", f.Path, f.Field, f.Reason)
}

func fail(path, field, format string, args ...any) *Failure {
	return &Failure{Path: path, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Detect picks the parser variant for a file from its extension, falling
// back to sniffing the content.
func Detect(path string, content []byte) model.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return model.FormatCSV
	case ".json":
		return model.FormatJSON
	}
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return model.FormatJSON
	}
	if _, ok := findHeader(content); ok {
		return model.FormatCSV
	}
	return model.FormatLogText
}

// Parser converts raw result files into records. Dropped lines and fields
// are reported to the diagnostics collector.
type Parser struct {
	diag *diag.Collector
}

// New returns a Parser reporting into d.
func New(d *diag.Collector) *Parser {
	return &Parser{diag: d}
}

// ParseFile reads the file at path as a member of cat. On success every
// returned record carries the filename tags and the category's static tags.
// A *Failure is returned when the file has to be skipped.
func (p *Parser) ParseFile(path string, cat model.Category) ([]model.Record, error) {
	tags, err := FilenameTags(path, cat.RateSize)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fail(path, "", "read: %v", err)
	}

	var records []model.Record
	switch format := Detect(path, content); format {
	case model.FormatCSV:
		records, err = p.parseCSV(path, content)
	case model.FormatJSON:
		records, err = p.parseJSON(path, content)
	default:
		records, err = p.parseLogText(path, content, cat.LogProfile)
	}
	if err != nil {
		return nil, err
	}

	for i := range records {
		for k, v := range tags {
			records[i].Tags[k] = v
		}
		for k, v := range cat.Tags {
			records[i].Tags[k] = model.String(v)
		}
		for _, name := range cat.Required {
			if v, ok := records[i].Lookup(name); !ok || v.IsNA() {
				return nil, fail(path, name, "missing required field")
			}
		}
	}
	return records, nil
}

// Stats counts what ParseAll saw.
type Stats struct {
	Found   int
	Parsed  int
	Skipped int
}

// ParseAll parses every path yielded by paths, one file at a time, and
// concatenates the records in enumeration order. Files that fail are
// recorded as skipped diagnostics; any other error aborts.
func (p *Parser) ParseAll(paths iter.Seq[string], cat model.Category) ([]model.Record, Stats, error) {
	var (
		all   []model.Record
		stats Stats
	)
	for path := range paths {
		stats.Found++
		recs, err := p.ParseFile(path, cat)
		if err != nil {
			var f *Failure
			if !errors.As(err, &f) {
				return nil, stats, err
			}
			stats.Skipped++
			p.diag.Skip(f.Path, f.Field, f.Reason)
			continue
		}
		stats.Parsed++
		all = append(all, recs...)
	}
	return all, stats, nil
}
