package parse

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/perfstats/internal/diag"
	"github.com/gyeh/perfstats/internal/model"
)

func newParser() (*Parser, *diag.Collector) {
	d := diag.NewCollector(zerolog.Nop())
	return New(d), d
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func category(t *testing.T, name string) model.Category {
	t.Helper()
	c, ok := model.CategoryByName(name)
	if !ok {
		t.Fatalf("unknown category %s", name)
	}
	return c
}

func metric(t *testing.T, r model.Record, name string) float64 {
	t.Helper()
	v, ok := r.Metrics[name]
	if !ok {
		t.Fatalf("record has no metric %s: %+v", name, r.Metrics)
	}
	f, ok := v.Float()
	if !ok {
		t.Fatalf("metric %s is not numeric: %v", name, v)
	}
	return f
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDetect(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    model.Format
	}{
		{"a.csv", "whatever", model.FormatCSV},
		{"a.json", "", model.FormatJSON},
		{"a.log", "Packets sent: 1\n", model.FormatLogText},
		{"a.log", "starting\nMetric,Value\nPackets_Sent,1\n", model.FormatCSV},
		{"a.txt", "  {\"rtts\": []}", model.FormatJSON},
	}
	for _, tt := range tests {
		if got := Detect(tt.path, []byte(tt.content)); got != tt.want {
			t.Errorf("Detect(%s, %q) = %v, want %v", tt.path, tt.content, got, tt.want)
		}
	}
}

func TestParseFile_LogText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate10_size1024.log",
		"Sender started\nPackets sent: 100\nPackets received: 95\nAverage RTT: 12.5ms\nBandwidth: 3.25 MB/s\n")

	p, _ := newParser()
	recs, err := p.ParseFile(path, category(t, model.Optimized))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if len(r.Metrics) != 4 {
		t.Errorf("got %d metrics, want 4: %v", len(r.Metrics), r.Metrics)
	}
	if got := metric(t, r, model.MetricAvgRTT); got != 12.5 {
		t.Errorf("avg_rtt = %v, want 12.5", got)
	}
	if got := metric(t, r, model.MetricPacketsSent); got != 100 {
		t.Errorf("packets_sent = %v", got)
	}
	if r.Tags[model.TagDropRate] != model.Int(10) || r.Tags[model.TagPacketSize] != model.Int(1024) {
		t.Errorf("filename tags = %v", r.Tags)
	}
	if r.Tags[model.TagOptimization] != model.String(model.Optimized) {
		t.Errorf("optimization tag = %v", r.Tags[model.TagOptimization])
	}
}

func TestParseFile_LogTextMicroseconds(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "unoptimized_rate0_size64.log",
		"Packets sent: 10\nPackets received: 10\nAverage RTT: 450µs\nBandwidth: 1 MB/s\nPacket loss: 0.00%\n")

	p, _ := newParser()
	recs, err := p.ParseFile(path, category(t, model.Unoptimized))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if got := metric(t, recs[0], model.MetricAvgRTT); !near(got, 0.45) {
		t.Errorf("avg_rtt = %v, want 0.45", got)
	}
	if _, ok := recs[0].Metrics[model.MetricPacketLoss]; !ok {
		t.Error("optional packet loss line not parsed")
	}
}

func TestParseFile_LogTextMissingField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate10_size1024.log",
		"Packets sent: 100\nPackets received: 95\nBandwidth: 3.25 MB/s\n")

	p, _ := newParser()
	_, err := p.ParseFile(path, category(t, model.Optimized))
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Failure", err)
	}
	if f.Field != model.MetricAvgRTT {
		t.Errorf("Failure.Field = %q, want %q", f.Field, model.MetricAvgRTT)
	}
}

func TestParseFile_LogTextNonFiniteRTT(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate10_size1024.log",
		"Packets sent: 100\nPackets received: 95\nAverage RTT: NaNms\nBandwidth: 3.25 MB/s\n")

	p, _ := newParser()
	_, err := p.ParseFile(path, category(t, model.Optimized))
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Failure", err)
	}
	if f.Field != model.MetricAvgRTT {
		t.Errorf("Failure.Field = %q, want %q", f.Field, model.MetricAvgRTT)
	}
}

func TestParseFile_CSVPreamble(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate5_size512.csv",
		"Packet 3 dropped (simulated)\nsome noise, with a comma, or two\nMetric,Value\nPackets_Sent,100\nBandwidth_MBps,5.2\n")

	p, d := newParser()
	recs, err := p.ParseFile(path, category(t, model.Optimized))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	r := recs[0]
	if len(r.Metrics) != 2 {
		t.Fatalf("metrics = %v, want exactly packets_sent and bandwidth", r.Metrics)
	}
	if r.Metrics[model.MetricPacketsSent] != model.Int(100) {
		t.Errorf("packets_sent = %v", r.Metrics[model.MetricPacketsSent])
	}
	if got := metric(t, r, model.MetricBandwidth); got != 5.2 {
		t.Errorf("bandwidth = %v", got)
	}
	if d.Count() != 0 {
		t.Errorf("preamble produced diagnostics: %v", d.Items())
	}
}

func TestParseFile_CSVBadLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate5_size512.csv",
		"Metric,Value\nPackets_Sent,100\nBandwidth_MBps,fast\nA,B,C\nAverage_RTT_ms,1.5\n")

	p, d := newParser()
	recs, err := p.ParseFile(path, category(t, model.Optimized))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if _, ok := recs[0].Metrics[model.MetricBandwidth]; ok {
		t.Error("non-numeric bandwidth should be dropped")
	}
	if got := metric(t, recs[0], model.MetricAvgRTT); got != 1.5 {
		t.Errorf("avg_rtt = %v", got)
	}
	if d.Count() != 2 {
		t.Errorf("diagnostics = %d, want 2: %v", d.Count(), d.Items())
	}
}

func TestParseFile_CSVNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate5_size512.csv", "a,b\n1,2\n")

	p, _ := newParser()
	_, err := p.ParseFile(path, category(t, model.Optimized))
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Failure", err)
	}
}

func TestParseFile_CSVNoKnownMetric(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate5_size1024.csv", "Metric,Value\nFoo,1\n")

	p, _ := newParser()
	_, err := p.ParseFile(path, category(t, model.Optimized))
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Failure", err)
	}
}

func TestParseFile_CSVNonFinite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "optimized_rate5_size512.csv",
		"Metric,Value\nPackets_Sent,100\nBandwidth_MBps,NaN\nAverage_RTT_ms,+Inf\n")

	p, d := newParser()
	recs, err := p.ParseFile(path, category(t, model.Optimized))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	for _, name := range []string{model.MetricBandwidth, model.MetricAvgRTT} {
		if v, ok := recs[0].Metrics[name]; ok {
			t.Errorf("%s = %v, want dropped", name, v)
		}
	}
	if d.Count() != 2 {
		t.Errorf("diagnostics = %d, want 2: %v", d.Count(), d.Items())
	}
}

func TestParseFile_JSONRTTs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rtt_64.json", `{"message_size": 64, "rtts": ["1ms", "500µs", "2ms"]}`)

	p, _ := newParser()
	recs, err := p.ParseFile(path, category(t, "rtt"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	want := []float64{1.0, 0.5, 2.0}
	for i, r := range recs {
		if got := metric(t, r, model.MetricRTT); !near(got, want[i]) {
			t.Errorf("rtt[%d] = %v, want %v", i, got, want[i])
		}
		if r.Tags[model.TagIsFirst].Truth() != (i == 0) {
			t.Errorf("is_first[%d] = %v", i, r.Tags[model.TagIsFirst])
		}
		if r.Tags[model.TagMessageSize] != model.Int(64) {
			t.Errorf("message_size[%d] = %v", i, r.Tags[model.TagMessageSize])
		}
	}
}

func TestParseFile_JSONUnitFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marshal_1024.json",
		`{"message_size": 1024, "data_type": "Nested", "marshal_time_ns": 2500, "timestamp": "2024-03-01T12:00:00Z"}`)

	p, _ := newParser()
	recs, err := p.ParseFile(path, category(t, "marshal"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	r := recs[0]
	if got := metric(t, r, model.MetricMarshalTime); !near(got, 0.0025) {
		t.Errorf("marshal_time = %v ms, want 0.0025", got)
	}
	if r.Tags[model.TagDataType] != model.String("nested") {
		t.Errorf("data_type = %v", r.Tags[model.TagDataType])
	}
}

func TestParseFile_JSONFailures(t *testing.T) {
	tests := map[string]string{
		"rtt_empty.json":    `{"message_size": 64, "rtts": []}`,
		"rtt_bad.json":      `{"message_size": 64, "rtts": ["soon"]}`,
		"rtt_nosize.json":   `{"rtts": ["1ms"]}`,
		"rtt_broken.json":   `{"message_size": 64,`,
		"rtt_notobj.json":   `[1, 2, 3]`,
		"rtt_nosample.json": `{"message_size": 64}`,
	}
	dir := t.TempDir()
	p, _ := newParser()
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name, content)
			_, err := p.ParseFile(path, category(t, "rtt"))
			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("err = %v, want *Failure", err)
			}
		})
	}
}

func TestParseFile_Suite(t *testing.T) {
	dir := t.TempDir()
	log := `=== RUN   TestBandwidth
Size: 64 bytes, Bandwidth: 1.50 MB/s
Size: 1024 bytes, Bandwidth: 20.25 MB/s
=== RUN   TestMarshal
Result: {DataType:int Size:12 MarshalTime:1.2µs UnmarshalTime:800ns MessageSize:12 Error:}
Result: {DataType:string Size:64 MarshalTime:2.5µs UnmarshalTime:1.5µs MessageSize:64 Error:}
=== RUN   TestRTT
First RTT: 1.234ms
Min RTT: 450µs
Max RTT: 2ms
Avg RTT: 800µs
`
	path := writeFile(t, dir, "optimized_results.txt", log)

	p, _ := newParser()
	recs, err := p.ParseFile(path, category(t, "suite-log"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("got %d records, want 5", len(recs))
	}
	sections := make([]string, len(recs))
	for i, r := range recs {
		sections[i] = r.Tags[model.TagSection].String()
		if r.Tags[model.TagOptimization] != model.String(model.Optimized) {
			t.Errorf("record %d optimization = %v", i, r.Tags[model.TagOptimization])
		}
	}
	want := []string{SectionRTT, SectionBandwidth, SectionBandwidth, SectionMarshal, SectionMarshal}
	if !slices.Equal(sections, want) {
		t.Errorf("sections = %v, want %v", sections, want)
	}

	if got := metric(t, recs[0], model.MetricMinRTT); !near(got, 0.45) {
		t.Errorf("min_rtt = %v", got)
	}
	if got := metric(t, recs[3], model.MetricUnmarshalTime); !near(got, 0.0008) {
		t.Errorf("unmarshal_time = %v", got)
	}
	if recs[3].Tags[model.TagMessageSize] != model.Int(12) {
		t.Errorf("marshal message_size = %v", recs[3].Tags[model.TagMessageSize])
	}
}

func TestParseAll_SkipsBadFilenames(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "optimized_rate5_size512.csv", "Metric,Value\nPackets_Sent,10\n")
	bad := writeFile(t, dir, "optimized_latest.csv", "Metric,Value\nPackets_Sent,10\n")

	p, d := newParser()
	recs, stats, err := p.ParseAll(slices.Values([]string{bad, good}), category(t, model.Optimized))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(recs) != 1 || recs[0].Source != good {
		t.Errorf("records = %+v", recs)
	}
	if stats.Found != 2 || stats.Parsed != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	items := d.ForPath(bad)
	if len(items) != 1 || items[0].Severity != diag.SeveritySkip || items[0].Field != model.TagDropRate {
		t.Errorf("diagnostics for bad file = %+v", items)
	}
}
