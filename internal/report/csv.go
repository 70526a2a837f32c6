package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteCSV writes header and rows to path, creating parent directories and
// replacing any existing file.
func WriteCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteSummaryCSV writes a summary with values rounded to places.
func WriteSummaryCSV(path string, s *Summary, places int) error {
	return WriteCSV(path, s.Header(), s.Records(places))
}

// WriteComparisonCSV writes a baseline/variant comparison.
func WriteComparisonCSV(path string, c *Comparison) error {
	return WriteCSV(path, c.Header(), c.Records())
}
