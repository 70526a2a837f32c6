package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json")
	log.Info().Str("report", "udp").Msg("done")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if line["report"] != "udp" || line["message"] != "done" {
		t.Errorf("unexpected fields: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text")
	log.Warn().Str("path", "a.csv").Msg("skipped")

	out := buf.String()
	if !strings.Contains(out, "skipped") || !strings.Contains(out, "path=a.csv") {
		t.Errorf("unexpected console output: %q", out)
	}
}
