package normalize

import (
	"strings"
	"time"
)

// Timestamp layouts written by the benchmark harnesses and their run directories.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102_150405",
	"20060102-150405",
	"20060102150405",
	"2006-01-02",
}

// ParseTimestamp attempts to parse s in each known layout.
// Returns nil if the input is empty or unparseable.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// RunStamp formats t the way run directories and converted files are suffixed.
func RunStamp(t time.Time) string {
	return t.Format("20060102_150405")
}
