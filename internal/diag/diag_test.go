package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestCollector(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(zerolog.New(&buf))

	c.Warn("a.csv", "Bandwidth_MBps", "value is not a number")
	c.Skip("b.csv", "drop_rate", "filename has no rate(N)")
	c.Warn("a.csv", "", "line has 3 fields")

	if c.Count() != 3 {
		t.Fatalf("Count = %d, want 3", c.Count())
	}
	if c.Skipped() != 1 {
		t.Errorf("Skipped = %d, want 1", c.Skipped())
	}
	if got := len(c.ForPath("a.csv")); got != 2 {
		t.Errorf("ForPath(a.csv) = %d items, want 2", got)
	}

	items := c.Items()
	if items[1].Severity != SeveritySkip || items[1].Field != "drop_rate" {
		t.Errorf("unexpected second diagnostic: %+v", items[1])
	}

	out := buf.String()
	if strings.Count(out, "\n") != 3 {
		t.Errorf("expected 3 log lines, got:\n%s", out)
	}
	if !strings.Contains(out, `"skipped":true`) {
		t.Errorf("skip diagnostic not flagged in log output:\n%s", out)
	}
}
