package pipeline

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/parse"
	"github.com/gyeh/perfstats/internal/plot"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

const (
	optimizationAnalysisCSV = "optimization_analysis.csv"
	bandwidthPlaces         = 2
	timePlaces              = 3
	suiteLogCategory        = "suite-log"
)

// Columns of the tables derived from a comparison for charting.
const (
	colMetric = "metric"
	colValue  = "value"
	colCase   = "case"
	colImpact = "impact"
	colDelta  = "delta"
)

// rttMetrics are compared in this order.
var rttMetrics = []struct {
	metric string
	label  string
}{
	{model.MetricFirstRTT, "First (ms)"},
	{model.MetricMinRTT, "Min (ms)"},
	{model.MetricMaxRTT, "Max (ms)"},
	{model.MetricAvgRTT, "Avg (ms)"},
}

// RunCompare compares the suite logs of two builds, unoptimized_results.txt
// and optimized_results.txt by default, metric by metric.
func RunCompare(env *Env) (*model.RunSummary, error) {
	cfg := env.Config
	root := cfg.ResultsDir
	if err := locate.CheckRoot(root); err != nil {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	r := env.begin("compare", root)
	recs, err := r.collect(root, suiteLogCategory)
	if err != nil {
		return nil, err
	}
	if r.summary.FilesFound < 2 {
		return nil, &PhaseError{Phase: PhaseLocate, Err: fmt.Errorf("%w: need %s_results.txt and %s_results.txt under %s",
			locate.ErrNoInputDir, cfg.Baseline, cfg.Variant, root)}
	}
	t, err := r.aggregate(recs)
	if err != nil {
		return nil, err
	}

	base, err := t.Where(t.Equals(model.TagOptimization, cfg.Baseline))
	if err != nil {
		return nil, &PhaseError{Phase: PhaseAggregate, Err: fmt.Errorf("%s: %w", cfg.Baseline, err)}
	}
	variant, err := t.Where(t.Equals(model.TagOptimization, cfg.Variant))
	if err != nil {
		return nil, &PhaseError{Phase: PhaseAggregate, Err: fmt.Errorf("%s: %w", cfg.Variant, err)}
	}

	c := report.NewComparison(cfg.Baseline, cfg.Variant)
	r.compareBandwidth(c, base, variant)
	r.compareMarshal(c, base, variant)
	r.compareRTT(c, base, variant)
	if len(c.Rows) == 0 {
		return nil, &PhaseError{Phase: PhaseSummarize, Err: table.ErrNoData}
	}

	out := env.outDir(root)
	if err := r.writeComparison(filepath.Join(out, optimizationAnalysisCSV), c); err != nil {
		return nil, err
	}
	r.heading("Optimization Analysis")
	report.RenderComparison(env.Out, c)

	if err := r.compareCharts(out, t, c); err != nil {
		return nil, err
	}
	if err := r.snapshot(t); err != nil {
		return nil, err
	}
	return r.finish(), nil
}

// add appends a comparison row, noting a zero baseline as a diagnostic.
func (r *run) add(c *report.Comparison, source, testType, metric string, a, b float64, places int, better report.Direction) {
	if err := c.Add(testType, metric, a, b, places, better); errors.Is(err, report.ErrZeroBaseline) {
		r.env.Diag.Warn(source, testType+" "+metric, "baseline is zero, difference is n/a")
	}
}

// section returns the rows of one suite log section, or nil.
func section(t *table.Table, name string) *table.Table {
	s, err := t.Where(t.Equals(model.TagSection, name))
	if err != nil {
		return nil
	}
	return s
}

// compareBandwidth pairs bandwidth lines by message size. A size reported
// more than once keeps its last value.
func (r *run) compareBandwidth(c *report.Comparison, base, variant *table.Table) {
	bb, vb := section(base, parse.SectionBandwidth), section(variant, parse.SectionBandwidth)
	if bb == nil || vb == nil {
		r.log.Warn().Msg("bandwidth results missing from one side, not compared")
		return
	}
	last := func(t *table.Table) map[string]float64 {
		m := make(map[string]float64)
		for i := 0; i < t.Len(); i++ {
			if v, ok := t.Value(i, model.MetricBandwidthMBps).Float(); ok {
				m[t.Value(i, model.TagMessageSize).String()] = v
			}
		}
		return m
	}
	bm, vm := last(bb), last(vb)
	for _, size := range bb.Distinct(model.TagMessageSize) {
		key := size.String()
		b, ok := vm[key]
		if !ok {
			r.env.Diag.Warn(vb.Source(0), model.MetricBandwidthMBps, fmt.Sprintf("no %s result for size %s", c.VariantName, key))
			continue
		}
		r.add(c, bb.Source(0), fmt.Sprintf("Bandwidth %sB", key), "MB/s", bm[key], b, bandwidthPlaces, report.HigherIsBetter)
	}
}

// compareMarshal pairs marshal results by data type, in baseline order.
func (r *run) compareMarshal(c *report.Comparison, base, variant *table.Table) {
	bm, vm := section(base, parse.SectionMarshal), section(variant, parse.SectionMarshal)
	if bm == nil || vm == nil {
		r.log.Warn().Msg("marshal results missing from one side, not compared")
		return
	}
	used := make(map[int]bool)
	for i := 0; i < bm.Len(); i++ {
		dt := bm.Value(i, model.TagDataType).String()
		j := -1
		for k := 0; k < vm.Len(); k++ {
			if !used[k] && vm.Value(k, model.TagDataType).String() == dt {
				j = k
				break
			}
		}
		if j < 0 {
			r.env.Diag.Warn(vm.Source(0), model.TagDataType, fmt.Sprintf("no %s result for data type %s", c.VariantName, dt))
			continue
		}
		used[j] = true
		testType := "Marshal " + dt
		for _, m := range []struct{ metric, label string }{
			{model.MetricMarshalTime, "Marshal Time (ms)"},
			{model.MetricUnmarshalTime, "Unmarshal Time (ms)"},
		} {
			a, _ := bm.Value(i, m.metric).Float()
			b, _ := vm.Value(j, m.metric).Float()
			r.add(c, bm.Source(i), testType, m.label, a, b, timePlaces, report.LowerIsBetter)
		}
	}
}

func (r *run) compareRTT(c *report.Comparison, base, variant *table.Table) {
	br, vr := section(base, parse.SectionRTT), section(variant, parse.SectionRTT)
	if br == nil || vr == nil {
		r.log.Warn().Msg("rtt results missing from one side, not compared")
		return
	}
	for _, m := range rttMetrics {
		a, aok := br.Value(0, m.metric).Float()
		b, bok := vr.Value(0, m.metric).Float()
		if !aok || !bok {
			continue
		}
		r.add(c, br.Source(0), "RTT", m.label, a, b, timePlaces, report.LowerIsBetter)
	}
}

// compareCharts draws the bandwidth, marshal, RTT and impact charts.
func (r *run) compareCharts(dir string, t *table.Table, c *report.Comparison) error {
	hue := model.TagOptimization
	charts := []struct {
		name string
		c    chart
	}{
		{"bandwidth_comparison.png", chart{section(t, parse.SectionBandwidth), plot.Spec{Kind: plot.Line,
			Title: "Bandwidth Comparison", XLabel: "Message Size (bytes)", YLabel: "Bandwidth (MB/s)",
			X: model.TagMessageSize, Y: model.MetricBandwidthMBps, Hue: hue, LogX: true}}},
		{"marshal_comparison.png", chart{section(t, parse.SectionMarshal), plot.Spec{Kind: plot.Bar,
			Title: "Marshal Time Comparison", XLabel: "Data Type", YLabel: "Time (ms)",
			X: model.TagDataType, Y: model.MetricMarshalTime, Hue: hue}}},
		{"rtt_comparison.png", chart{rttTable(c), plot.Spec{Kind: plot.Bar,
			Title: "RTT Metrics Comparison", XLabel: "RTT Metric", YLabel: "Time (ms)",
			X: colMetric, Y: colValue, Hue: hue}}},
		{"optimization_impact.png", chart{impactTable(c), plot.Spec{Kind: plot.Bar,
			Title: "Optimization Impact (%)", XLabel: "Test Cases", YLabel: "Performance Difference (%)",
			X: colCase, Y: colDelta, Hue: colImpact}}},
	}
	for _, ch := range charts {
		if err := r.saveCharts(filepath.Join(dir, ch.name), 1, plot.ChartWidth, plot.ChartHeight, ch.c); err != nil {
			return err
		}
	}
	return nil
}

// rttTable lays the RTT rows out as one record per metric and group.
func rttTable(c *report.Comparison) *table.Table {
	var recs []model.Record
	for _, row := range c.Rows {
		if row.TestType != "RTT" {
			continue
		}
		for _, side := range []struct {
			name string
			v    float64
		}{{c.BaselineName, row.Baseline}, {c.VariantName, row.Variant}} {
			rec := model.NewRecord(row.TestType)
			rec.Tags[colMetric] = model.String(row.Metric)
			rec.Tags[model.TagOptimization] = model.String(side.name)
			rec.Metrics[colValue] = model.Float(side.v)
			recs = append(recs, rec)
		}
	}
	t, err := table.Aggregate(recs)
	if err != nil {
		return nil
	}
	return t
}

// impactTable holds one record per comparison row with a defined delta,
// tagged improved or degraded by the metric's direction.
func impactTable(c *report.Comparison) *table.Table {
	var recs []model.Record
	for _, row := range c.Rows {
		if math.IsNaN(row.Delta) {
			continue
		}
		impact := "improved"
		if !row.Improved() && row.Delta != 0 {
			impact = "degraded"
		}
		rec := model.NewRecord(row.TestType)
		rec.Tags[colCase] = model.String(row.TestType + " - " + row.Metric)
		rec.Tags[colImpact] = model.String(impact)
		rec.Metrics[colDelta] = model.Float(row.Delta)
		recs = append(recs, rec)
	}
	t, err := table.Aggregate(recs)
	if err != nil {
		return nil
	}
	return t
}
