package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/perfstats/internal/config"
	"github.com/gyeh/perfstats/internal/fixture"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
	"github.com/gyeh/perfstats/internal/table"
)

func newEnv(t *testing.T, root string) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.ResultsDir = root
	var out bytes.Buffer
	env := NewEnv(zerolog.Nop(), &cfg, &out)
	env.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return env, &out
}

func writeTree(t *testing.T, opts fixture.Options) *fixture.Tree {
	t.Helper()
	tree, err := fixture.Write(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("fixture.Write: %v", err)
	}
	return tree
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return recs
}

func exists(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Errorf("missing output %s: %v", path, err)
		return
	}
	if fi.Size() == 0 {
		t.Errorf("output %s is empty", path)
	}
}

func phaseOf(t *testing.T, err error) string {
	t.Helper()
	var pe *PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a *PhaseError", err)
	}
	return pe.Phase
}

func TestRunUDP(t *testing.T) {
	opts := fixture.Default()
	tree := writeTree(t, opts)
	env, out := newEnv(t, tree.Root)

	sum, err := RunUDP(env)
	if err != nil {
		t.Fatalf("RunUDP: %v", err)
	}
	wantFiles := 2 * len(opts.DropRates) * len(opts.PacketSizes)
	if sum.FilesParsed != wantFiles || sum.FilesSkipped != 0 {
		t.Errorf("parsed %d skipped %d, want %d and 0", sum.FilesParsed, sum.FilesSkipped, wantFiles)
	}
	if sum.ResultsDir != tree.LocalRun {
		t.Errorf("analyzed %s, want latest run %s", sum.ResultsDir, tree.LocalRun)
	}

	recs := readCSV(t, filepath.Join(tree.LocalRun, udpSummaryCSV))
	wantHeader := "optimization,drop_rate,avg_rtt,bandwidth,dropped_packets,packet_loss"
	if got := strings.Join(recs[0], ","); got != wantHeader {
		t.Errorf("header = %s, want %s", got, wantHeader)
	}
	if len(recs) != 1+2*len(opts.DropRates) {
		t.Fatalf("got %d summary rows", len(recs)-1)
	}
	if recs[1][0] != model.Optimized || recs[1][1] != "0" {
		t.Errorf("first group = %v, want optimized/0", recs[1][:2])
	}

	// optimized, drop rate 5: mean RTT over both packet sizes.
	var sumRTT float64
	for _, size := range opts.PacketSizes {
		sumRTT += fixture.UDP(model.Optimized, 5, size, false).AvgRTT
	}
	want := strconv.FormatFloat(normalize.Round(sumRTT/float64(len(opts.PacketSizes)), 3), 'f', -1, 64)
	if recs[2][1] != "5" || recs[2][2] != want {
		t.Errorf("optimized/5 avg_rtt = %v, want %s", recs[2], want)
	}

	exists(t, filepath.Join(tree.LocalRun, udpChart))
	if !strings.Contains(out.String(), "Performance Summary") {
		t.Error("summary table was not rendered")
	}
}

func TestRunUDP_LogTextMatchesCSV(t *testing.T) {
	csvOpts := fixture.Default()
	csvOpts.Suite, csvOpts.Remote = false, false
	logOpts := csvOpts
	logOpts.LogText = true

	var summaries [2][][]string
	for i, opts := range []fixture.Options{csvOpts, logOpts} {
		tree := writeTree(t, opts)
		env, _ := newEnv(t, tree.Root)
		env.Config.Plots = false
		if _, err := RunUDP(env); err != nil {
			t.Fatalf("RunUDP: %v", err)
		}
		summaries[i] = readCSV(t, filepath.Join(tree.LocalRun, udpSummaryCSV))
	}
	for i := range summaries[0] {
		if strings.Join(summaries[0][i], ",") != strings.Join(summaries[1][i], ",") {
			t.Errorf("row %d: csv %v != log %v", i, summaries[0][i], summaries[1][i])
		}
	}
}

func TestRunUDP_NoRunDir(t *testing.T) {
	env, _ := newEnv(t, t.TempDir())
	_, err := RunUDP(env)
	if !IsNoInput(err) {
		t.Fatalf("err = %v, want no input dir", err)
	}
	if phaseOf(t, err) != PhaseLocate {
		t.Errorf("phase = %s", phaseOf(t, err))
	}
}

func TestRunUDP_NoValidFiles(t *testing.T) {
	root := t.TempDir()
	run := filepath.Join(root, model.LocalRunPrefix+"20240101_000000")
	os.MkdirAll(run, 0755)
	os.WriteFile(filepath.Join(run, "optimized_rate_size.csv"), []byte("Metric,Value\nPackets_Sent,1\n"), 0644)

	env, _ := newEnv(t, root)
	_, err := RunUDP(env)
	if !errors.Is(err, table.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if err.Error() != "aggregate: no valid data files found" {
		t.Errorf("message = %q", err.Error())
	}
	if env.Diag.Skipped() != 1 {
		t.Errorf("skipped diagnostics = %d, want 1", env.Diag.Skipped())
	}
}

func TestRunUDP_NoKnownMetric(t *testing.T) {
	root := t.TempDir()
	run := filepath.Join(root, model.LocalRunPrefix+"20240101_000000")
	os.MkdirAll(run, 0755)
	os.WriteFile(filepath.Join(run, "optimized_rate5_size1024.csv"), []byte("Metric,Value\nFoo,1\n"), 0644)

	env, _ := newEnv(t, root)
	_, err := RunUDP(env)
	if !errors.Is(err, table.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if _, statErr := os.Stat(filepath.Join(run, udpSummaryCSV)); statErr == nil {
		t.Error("summary written for a run with no known metric")
	}
}

func TestSummarize_NoKnownMetric(t *testing.T) {
	rec := model.NewRecord("optimized_rate5_size1024.csv")
	rec.Tags[model.TagOptimization] = model.String(model.Optimized)
	rec.Tags[model.TagDropRate] = model.Int(5)
	rec.Metrics["foo"] = model.Int(1)
	tbl, err := table.Aggregate([]model.Record{rec})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	env, _ := newEnv(t, t.TempDir())
	r := env.begin("udp", "")
	_, err = r.summarize(tbl, []string{model.TagOptimization, model.TagDropRate}, udpAggs)
	if !errors.Is(err, table.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if phaseOf(t, err) != PhaseSummarize {
		t.Errorf("phase = %s", phaseOf(t, err))
	}
}

func TestRunUDP_NoPlots(t *testing.T) {
	tree := writeTree(t, fixture.Default())
	env, _ := newEnv(t, tree.Root)
	env.Config.Plots = false
	out := t.TempDir()
	env.Config.OutDir = out

	sum, err := RunUDP(env)
	if err != nil {
		t.Fatalf("RunUDP: %v", err)
	}
	if len(sum.Outputs) != 1 || sum.Outputs[0] != filepath.Join(out, udpSummaryCSV) {
		t.Errorf("outputs = %v", sum.Outputs)
	}
	if _, err := os.Stat(filepath.Join(out, udpChart)); err == nil {
		t.Error("chart written with plots disabled")
	}
}

func TestRunComprehensive(t *testing.T) {
	tree := writeTree(t, fixture.Default())
	env, _ := newEnv(t, tree.Root)

	if _, err := RunComprehensive(env); err != nil {
		t.Fatalf("RunComprehensive: %v", err)
	}
	dir := filepath.Join(tree.Root, comprehensiveDir)

	recs := readCSV(t, filepath.Join(dir, bandwidthStatsCSV))
	if got := strings.Join(recs[0], ","); got != "test_type,mean,max,min,utilization" {
		t.Errorf("header = %s", got)
	}
	if len(recs) != 3 || recs[1][0] != model.Local || recs[2][0] != model.Remote {
		t.Fatalf("rows = %v", recs[1:])
	}
	for _, rec := range recs[1:] {
		u, err := strconv.ParseFloat(rec[4], 64)
		if err != nil || u <= 0 || u > 100 {
			t.Errorf("%s utilization = %q", rec[0], rec[4])
		}
	}

	md, err := os.ReadFile(filepath.Join(dir, performanceReportMD))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"## Message Overhead",
		"- Base message size: 512 bytes",
		"## Round Trip Time (RTT)",
		"### Remote Testing\n- Maximum:",
		"## Performance Bottlenecks",
		"## Optimization Impact",
	} {
		if !strings.Contains(string(md), want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(string(md), "n/a") {
		t.Errorf("report has missing figures:\n%s", md)
	}
	exists(t, filepath.Join(dir, comprehensiveChart))
}

func TestRunComprehensive_LocalOnly(t *testing.T) {
	opts := fixture.Default()
	opts.Remote = false
	tree := writeTree(t, opts)
	env, _ := newEnv(t, tree.Root)
	env.Config.Plots = false

	if _, err := RunComprehensive(env); err != nil {
		t.Fatalf("RunComprehensive: %v", err)
	}
	md, err := os.ReadFile(filepath.Join(tree.Root, comprehensiveDir, performanceReportMD))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "- No remote data") {
		t.Errorf("remote section not omitted:\n%s", md)
	}
	if !strings.Contains(string(md), "Remote minimum RTT: n/a ms") {
		t.Errorf("remote RTT should be n/a:\n%s", md)
	}
}

func TestRunComprehensive_NoLocal(t *testing.T) {
	env, _ := newEnv(t, t.TempDir())
	_, err := RunComprehensive(env)
	if !errors.Is(err, table.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestRunSuite(t *testing.T) {
	opts := fixture.Default()
	tree := writeTree(t, opts)
	env, _ := newEnv(t, tree.Root)

	sum, err := RunSuite(env)
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	wantFiles := len(opts.MessageSizes) * (2 + len(opts.DataTypes))
	if sum.FilesParsed != wantFiles {
		t.Errorf("parsed %d files, want %d", sum.FilesParsed, wantFiles)
	}

	stats := readCSV(t, filepath.Join(tree.Root, "rtt", "rtt_stats.csv"))
	if got := strings.Join(stats[0], ","); got != "message_size,count,mean,std,min,25%,50%,75%,max" {
		t.Errorf("rtt header = %s", got)
	}
	if len(stats) != 1+len(opts.MessageSizes) {
		t.Fatalf("rtt rows = %d", len(stats)-1)
	}
	if stats[1][0] != "64" || stats[1][1] != strconv.Itoa(opts.Samples) {
		t.Errorf("first rtt row = %v", stats[1])
	}

	first := readCSV(t, filepath.Join(tree.Root, "rtt", "rtt_first_vs_subsequent.csv"))
	if len(first) != 3 || first[1][0] != "false" || first[2][0] != "true" {
		t.Fatalf("first vs subsequent = %v", first)
	}
	if first[2][1] != strconv.Itoa(len(opts.MessageSizes)) {
		t.Errorf("first-sample count = %s", first[2][1])
	}

	for _, name := range []string{
		"rtt/rtt_analysis.png",
		"bandwidth/bandwidth_stats.csv",
		"bandwidth/bandwidth_analysis.png",
		"marshal/marshal_stats.csv",
		"marshal/marshal_analysis.png",
	} {
		exists(t, filepath.Join(tree.Root, name))
	}
}

func TestRunSuite_ZeroMarshalTime(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "marshal")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "marshal_int_64.json"), []byte(`{"message_size":64,"data_type":"int","marshal_time_ns":0}`), 0644)
	os.WriteFile(filepath.Join(dir, "marshal_int_128.json"), []byte(`{"message_size":128,"data_type":"int","marshal_time_ns":500}`), 0644)

	env, _ := newEnv(t, root)
	if _, err := RunSuite(env); err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	chart := filepath.Join(dir, "marshal_analysis.png")
	exists(t, chart)
	if len(env.Diag.ForPath(chart)) != 1 {
		t.Errorf("chart diagnostics = %v, want one for the zero marshal time", env.Diag.Items())
	}
	stats := readCSV(t, filepath.Join(dir, "marshal_stats.csv"))
	if len(stats) != 3 {
		t.Errorf("marshal rows = %d, want 2", len(stats)-1)
	}
}

func TestRunSuite_MissingAndEmptyDirs(t *testing.T) {
	root := t.TempDir()
	env, _ := newEnv(t, root)
	if _, err := RunSuite(env); !IsNoInput(err) {
		t.Fatalf("no category dirs: err = %v, want no input dir", err)
	}

	os.MkdirAll(filepath.Join(root, "rtt"), 0755)
	env, _ = newEnv(t, root)
	_, err := RunSuite(env)
	if !errors.Is(err, table.ErrNoData) {
		t.Fatalf("empty rtt dir: err = %v, want ErrNoData", err)
	}
}

func TestRunConvert(t *testing.T) {
	opts := fixture.Default()
	tree := writeTree(t, opts)
	env, _ := newEnv(t, tree.Root)

	if _, err := RunConvert(env); err != nil {
		t.Fatalf("RunConvert: %v", err)
	}

	rtt := readCSV(t, filepath.Join(tree.Root, "rtt_results_20240102_030405.csv"))
	if strings.Join(rtt[0], ",") != "Size (bytes),Average RTT (ms),Min RTT (ms),Max RTT (ms)" {
		t.Errorf("rtt header = %v", rtt[0])
	}
	if len(rtt) != 1+len(opts.MessageSizes) {
		t.Errorf("rtt rows = %d", len(rtt)-1)
	}
	for _, row := range rtt[1:] {
		mean, _ := strconv.ParseFloat(row[1], 64)
		lo, _ := strconv.ParseFloat(row[2], 64)
		hi, _ := strconv.ParseFloat(row[3], 64)
		if !(lo <= mean && mean <= hi) {
			t.Errorf("row %v: mean outside [min, max]", row)
		}
	}

	bw := readCSV(t, filepath.Join(tree.Root, "bandwidth_results_20240102_030405.csv"))
	if strings.Join(bw[0], ",") != "Size (bytes),Bandwidth (MB/s),Timestamp" || len(bw) != 1+len(opts.MessageSizes) {
		t.Errorf("bandwidth csv = %v", bw)
	}
	marshal := readCSV(t, filepath.Join(tree.Root, "marshal_results_20240102_030405.csv"))
	if strings.Join(marshal[0], ",") != "Size (bytes),Marshal Time (ms),Data Type,Timestamp" {
		t.Errorf("marshal header = %v", marshal[0])
	}
	if len(marshal) != 1+len(opts.MessageSizes)*len(opts.DataTypes) {
		t.Errorf("marshal rows = %d", len(marshal)-1)
	}
}

func TestRunCompare(t *testing.T) {
	opts := fixture.Default()
	tree := writeTree(t, opts)
	env, out := newEnv(t, tree.Root)

	if _, err := RunCompare(env); err != nil {
		t.Fatalf("RunCompare: %v", err)
	}
	recs := readCSV(t, filepath.Join(tree.Root, optimizationAnalysisCSV))
	if got := strings.Join(recs[0], ","); got != "Test Type,Metric,Unoptimized,Optimized,Difference (%)" {
		t.Errorf("header = %s", got)
	}
	wantRows := len(opts.MessageSizes) + 2*len(opts.DataTypes) + len(rttMetrics)
	if len(recs)-1 != wantRows {
		t.Fatalf("got %d rows, want %d", len(recs)-1, wantRows)
	}

	rows := make(map[string][]string)
	for _, rec := range recs[1:] {
		rows[rec[0]+"|"+rec[1]] = rec
	}
	if r := rows["Bandwidth 1024B|MB/s"]; r == nil || r[2] != "12.00" || r[3] != "15.00" || r[4] != "25.00" {
		t.Errorf("bandwidth 1024 row = %v", r)
	}
	if r := rows["RTT|First (ms)"]; r == nil || r[2] != "2.100" || r[3] != "1.600" || r[4] != "-23.81" {
		t.Errorf("first RTT row = %v", r)
	}
	if r := rows["Marshal int|Marshal Time (ms)"]; r == nil || !strings.HasPrefix(r[4], "-") {
		t.Errorf("marshal int row = %v", r)
	}

	for _, name := range []string{"bandwidth_comparison.png", "marshal_comparison.png", "rtt_comparison.png", "optimization_impact.png"} {
		exists(t, filepath.Join(tree.Root, name))
	}
	if !strings.Contains(out.String(), "Difference (%)") {
		t.Error("comparison table was not rendered")
	}
}

func TestRunCompare_MissingLog(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "optimized_results.txt"), []byte(fixture.SuiteLog(model.Optimized, fixture.Default())), 0644)
	env, _ := newEnv(t, root)
	if _, err := RunCompare(env); !IsNoInput(err) {
		t.Fatalf("err = %v, want no input", err)
	}
}

func TestRunPlan(t *testing.T) {
	tree := writeTree(t, fixture.Default())
	os.WriteFile(filepath.Join(tree.LocalRun, "optimized_rateX_sizeY.csv"), []byte("Metric,Value\n"), 0644)
	os.WriteFile(filepath.Join(tree.Root, "rtt", "rtt_bad.json"), []byte(`{"message_size": 64, "rtts": []}`), 0644)

	env, out := newEnv(t, tree.Root)
	sum, err := RunPlan(env)
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	if len(sum.Outputs) != 0 {
		t.Errorf("plan wrote outputs: %v", sum.Outputs)
	}
	// the bad UDP file is claimed by both the optimized and local categories
	if sum.FilesSkipped != 3 {
		t.Errorf("skipped = %d, want 3", sum.FilesSkipped)
	}
	text := out.String()
	for _, want := range []string{"=== perfstats plan ===", "rtt_bad.json", "empty sample sequence", "drop_rate", "Diagnostics"} {
		if !strings.Contains(text, want) {
			t.Errorf("plan output missing %q", want)
		}
	}
}

func TestSnapshotThenInspect(t *testing.T) {
	tree := writeTree(t, fixture.Default())
	env, _ := newEnv(t, tree.Root)
	env.Config.Plots = false
	env.Config.Snapshot = filepath.Join(t.TempDir(), "udp.parquet")

	sum, err := RunUDP(env)
	if err != nil {
		t.Fatalf("RunUDP: %v", err)
	}
	exists(t, env.Config.Snapshot)

	inspectEnv, out := newEnv(t, tree.Root)
	if err := RunInspect(inspectEnv, env.Config.Snapshot); err != nil {
		t.Fatalf("RunInspect: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Report:   udp", "Run ID:   " + sum.RunID, "Rows:     12", model.MetricAvgRTT} {
		if !strings.Contains(text, want) {
			t.Errorf("inspect output missing %q:\n%s", want, text)
		}
	}
}

func TestPhaseError(t *testing.T) {
	err := error(&PhaseError{Phase: PhaseWrite, Err: os.ErrPermission})
	if err.Error() != "write: permission denied" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("PhaseError does not unwrap")
	}
}
