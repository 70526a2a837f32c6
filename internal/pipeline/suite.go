package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/plot"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

const suitePlaces = 3

// Suite categories, in report order.
const (
	suiteRTT       = "rtt"
	suiteBandwidth = "bandwidth"
	suiteMarshal   = "marshal"
)

// describe returns count, mean, std, min, quartiles and max of metric.
func describe(metric string) []report.Agg {
	return []report.Agg{
		{Metric: metric, Reducer: report.Count, As: colCount},
		{Metric: metric, Reducer: report.Mean, As: colMean},
		{Metric: metric, Reducer: report.Std, As: colStd},
		{Metric: metric, Reducer: report.Min, As: colMin},
		{Metric: metric, Reducer: report.Quantile, Q: 0.25, As: "25%"},
		{Metric: metric, Reducer: report.Quantile, Q: 0.50, As: "50%"},
		{Metric: metric, Reducer: report.Quantile, Q: 0.75, As: "75%"},
		{Metric: metric, Reducer: report.Max, As: colMax},
	}
}

// suiteSection analyzes one category's table, writing into dir.
type suiteSection func(r *run, t *table.Table, dir string) error

// RunSuite analyzes the gRPC suite's JSON results: results/rtt,
// results/bandwidth and results/marshal. A missing category directory is
// skipped; a present one without valid files stops the run.
func RunSuite(env *Env) (*model.RunSummary, error) {
	root := env.Config.ResultsDir
	if err := locate.CheckRoot(root); err != nil {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	r := env.begin("suite", root)
	sections := []struct {
		name string
		run  suiteSection
	}{
		{suiteRTT, analyzeRTT},
		{suiteBandwidth, analyzeBandwidth},
		{suiteMarshal, analyzeMarshal},
	}

	var (
		all     []model.Record
		present int
	)
	for _, sec := range sections {
		cat, _ := model.CategoryByName(sec.name)
		dir := locate.CategoryDir(root, cat)
		if err := locate.CheckRoot(dir); err != nil {
			if errors.Is(err, locate.ErrNoInputDir) {
				r.log.Info().Str("category", sec.name).Str("dir", dir).Msg("no results directory, skipping")
				continue
			}
			return nil, &PhaseError{Phase: PhaseLocate, Err: err}
		}
		present++

		recs, err := r.collect(root, sec.name)
		if err != nil {
			return nil, err
		}
		t, err := r.aggregate(recs)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseAggregate, Err: fmt.Errorf("%s: %w", sec.name, table.ErrNoData)}
		}
		if err := sec.run(r, t, env.outDir(dir)); err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	if present == 0 {
		return nil, &PhaseError{Phase: PhaseLocate, Err: fmt.Errorf("%w: no rtt, bandwidth or marshal directory under %s", locate.ErrNoInputDir, root)}
	}

	if env.Config.Snapshot != "" {
		t, err := table.Aggregate(all)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseAggregate, Err: err}
		}
		if err := r.snapshot(t); err != nil {
			return nil, err
		}
	}
	return r.finish(), nil
}

func analyzeRTT(r *run, t *table.Table, dir string) error {
	bySize, err := r.summarize(t, []string{model.TagMessageSize}, describe(model.MetricRTT))
	if err != nil {
		return err
	}
	if err := r.writeSummary(filepath.Join(dir, "rtt_stats.csv"), bySize, suitePlaces); err != nil {
		return err
	}
	r.heading("RTT by Message Size (ms)")
	report.RenderSummary(r.env.Out, bySize, suitePlaces)

	byFirst, err := r.summarize(t, []string{model.TagIsFirst}, describe(model.MetricRTT))
	if err != nil {
		return err
	}
	if err := r.writeSummary(filepath.Join(dir, "rtt_first_vs_subsequent.csv"), byFirst, suitePlaces); err != nil {
		return err
	}
	r.heading("First vs Subsequent RTTs (ms)")
	report.RenderSummary(r.env.Out, byFirst, suitePlaces)

	return r.saveCharts(filepath.Join(dir, "rtt_analysis.png"), 3, plot.ChartWidth/2, plot.ChartWidth/2,
		chart{t, plot.Spec{Kind: plot.Box, Title: "RTT by Message Size", XLabel: "Message Size (bytes)", YLabel: "RTT (ms)",
			X: model.TagMessageSize, Y: model.MetricRTT}},
		chart{t, plot.Spec{Kind: plot.Box, Title: "First vs Subsequent RTTs", XLabel: "First Attempt", YLabel: "RTT (ms)",
			X: model.TagIsFirst, Y: model.MetricRTT}},
		chart{t, plot.Spec{Kind: plot.Hist, Title: "RTT Distribution", XLabel: "RTT (ms)", Y: model.MetricRTT}},
	)
}

func analyzeBandwidth(r *run, t *table.Table, dir string) error {
	s, err := r.summarize(t, []string{model.TagMessageSize}, describe(model.MetricBandwidthMBps))
	if err != nil {
		return err
	}
	if err := r.writeSummary(filepath.Join(dir, "bandwidth_stats.csv"), s, suitePlaces); err != nil {
		return err
	}
	r.heading("Bandwidth by Message Size (MB/s)")
	report.RenderSummary(r.env.Out, s, suitePlaces)

	return r.saveCharts(filepath.Join(dir, "bandwidth_analysis.png"), 1, plot.ChartWidth, plot.ChartHeight,
		chart{t, plot.Spec{Kind: plot.Line, Title: "Bandwidth vs Message Size", XLabel: "Message Size (bytes)", YLabel: "Bandwidth (MB/s)",
			X: model.TagMessageSize, Y: model.MetricBandwidthMBps, LogX: true}},
	)
}

func analyzeMarshal(r *run, t *table.Table, dir string) error {
	s, err := r.summarize(t, []string{model.TagMessageSize}, []report.Agg{
		{Metric: model.MetricMarshalTime, Reducer: report.Mean, As: colMean},
		{Metric: model.MetricMarshalTime, Reducer: report.Std, As: colStd},
		{Metric: model.MetricMarshalTime, Reducer: report.Min, As: colMin},
		{Metric: model.MetricMarshalTime, Reducer: report.Max, As: colMax},
	})
	if err != nil {
		return err
	}
	// Marshal times are microseconds or less; keep six decimals of a millisecond.
	if err := r.writeSummary(filepath.Join(dir, "marshal_stats.csv"), s, 6); err != nil {
		return err
	}
	r.heading("Marshal Time by Message Size (ms)")
	report.RenderSummary(r.env.Out, s, 6)

	return r.saveCharts(filepath.Join(dir, "marshal_analysis.png"), 1, plot.ChartWidth, plot.ChartHeight,
		chart{t, plot.Spec{Kind: plot.Scatter, Title: "Marshal Time vs Message Size", XLabel: "Message Size (bytes)", YLabel: "Marshal Time (ms)",
			X: model.TagMessageSize, Y: model.MetricMarshalTime, LogX: true, LogY: true}},
	)
}
