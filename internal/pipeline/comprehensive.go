package pipeline

import (
	"io"
	"math"
	"path/filepath"

	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/plot"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

const (
	comprehensiveDir    = "comprehensive_report"
	bandwidthStatsCSV   = "bandwidth_stats.csv"
	performanceReportMD = "performance_report.md"
	comprehensiveChart  = "comprehensive_analysis.png"
	comprehensivePlaces = 3

	headerOverheadBytes = 8 // sequence number + checksum
	ackSizeBytes        = 4
)

// Statistic column names shared by the summaries.
const (
	colCount       = "count"
	colMean        = "mean"
	colStd         = "std"
	colMin         = "min"
	colMax         = "max"
	colUtilization = "utilization"
)

// RunComprehensive compares local and remote UDP runs. Local results are
// required; remote results are optional and their report section says so
// when absent.
func RunComprehensive(env *Env) (*model.RunSummary, error) {
	cfg := env.Config
	root := cfg.ResultsDir
	if err := locate.CheckRoot(root); err != nil {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	r := env.begin("comprehensive", root)
	local, err := r.collect(root, model.Local)
	if err != nil {
		return nil, err
	}
	if len(local) == 0 {
		return nil, &PhaseError{Phase: PhaseAggregate, Err: table.ErrNoData}
	}
	remote, err := r.collect(root, model.Remote)
	if err != nil {
		return nil, err
	}
	if len(remote) == 0 {
		r.log.Info().Msg("no remote results, remote section omitted")
	}

	t, err := r.aggregate(append(local, remote...))
	if err != nil {
		return nil, err
	}
	localT, err := t.Where(t.Equals(model.TagTestType, model.Local))
	if err != nil {
		return nil, &PhaseError{Phase: PhaseAggregate, Err: err}
	}

	sizes := t.Floats(model.TagPacketSize)
	ceiling := report.TheoreticalMax(report.Reduce(report.Max, 0, sizes), cfg.PacketsPerSecond)

	stats, err := r.summarize(t, []string{model.TagTestType}, []report.Agg{
		{Metric: model.MetricBandwidth, Reducer: report.Mean, As: colMean},
		{Metric: model.MetricBandwidth, Reducer: report.Max, As: colMax},
		{Metric: model.MetricBandwidth, Reducer: report.Min, As: colMin},
	})
	if err != nil {
		return nil, err
	}
	mean := stats.Index(colMean)
	stats.AddColumn(colUtilization, func(row report.SummaryRow) float64 {
		if mean < 0 {
			return math.NaN()
		}
		return report.Utilization(row.Values[mean], ceiling)
	})

	doc := report.ComprehensiveReport{
		BaseMessageSize: report.Reduce(report.Min, 0, sizes),
		HeaderOverhead:  headerOverheadBytes,
		AckSize:         ackSizeBytes,
		LocalMinRTT:     report.Reduce(report.Min, 0, localT.Floats(model.MetricAvgRTT)),
		RemoteMinRTT:    math.NaN(),
		BaselineName:    cfg.Baseline,
		VariantName:     cfg.Variant,
	}
	if bw, ok := bandwidthStats(stats, model.Local); ok {
		doc.Local = *bw
	} else {
		doc.Local = report.BandwidthStats{Mean: math.NaN(), Max: math.NaN(), Min: math.NaN(), Utilization: math.NaN()}
	}
	if remoteT, err := t.Where(t.Equals(model.TagTestType, model.Remote)); err == nil {
		doc.RemoteMinRTT = report.Reduce(report.Min, 0, remoteT.Floats(model.MetricAvgRTT))
		doc.Remote, _ = bandwidthStats(stats, model.Remote)
	}
	doc.BaselineMean, doc.VariantMean = r.optimizationMeans(localT, cfg.Baseline, cfg.Variant)
	doc.Improvement = report.Improvement(doc.BaselineMean, doc.VariantMean)

	out := env.outDir(filepath.Join(root, comprehensiveDir))
	if err := r.writeSummary(filepath.Join(out, bandwidthStatsCSV), stats, comprehensivePlaces); err != nil {
		return nil, err
	}
	err = r.writeFile(filepath.Join(out, performanceReportMD), func(w io.Writer) error {
		return report.WriteMarkdown(w, doc)
	})
	if err != nil {
		return nil, err
	}
	r.heading("Bandwidth by Test Type")
	report.RenderSummary(env.Out, stats, comprehensivePlaces)

	err = r.saveCharts(filepath.Join(out, comprehensiveChart), 2, plot.GridCell, plot.GridCell*3/4,
		chart{t, plot.Spec{Kind: plot.Box, Title: "RTT Distribution: Local vs Remote", YLabel: "Average RTT (ms)",
			X: model.TagTestType, Y: model.MetricAvgRTT, Hue: model.TagDropRate}},
		chart{t, plot.Spec{Kind: plot.Bar, Title: "Bandwidth by Packet Size", XLabel: "Packet Size (bytes)", YLabel: "Bandwidth (MB/s)",
			X: model.TagPacketSize, Y: model.MetricBandwidth, Hue: model.TagTestType}},
		chart{t, plot.Spec{Kind: plot.Scatter, Title: "Packet Loss Analysis", XLabel: "Drop Rate (%)", YLabel: "Packet Loss Rate (%)",
			X: model.TagDropRate, Y: model.MetricPacketLoss, Hue: model.TagTestType}},
		chart{localT, plot.Spec{Kind: plot.Bar, Title: "Optimization Impact on Bandwidth", YLabel: "Bandwidth (MB/s)",
			X: model.TagOptimization, Y: model.MetricBandwidth, Hue: model.TagPacketSize}},
	)
	if err != nil {
		return nil, err
	}

	if err := r.snapshot(t); err != nil {
		return nil, err
	}
	return r.finish(), nil
}

// bandwidthStats reads one test type's row of the bandwidth summary.
func bandwidthStats(s *report.Summary, testType string) (*report.BandwidthStats, bool) {
	get := func(col string) float64 {
		v, ok := s.Lookup(col, testType)
		if !ok {
			return math.NaN()
		}
		return v
	}
	if _, ok := s.Lookup(colMean, testType); !ok {
		return nil, false
	}
	return &report.BandwidthStats{
		Mean:        get(colMean),
		Max:         get(colMax),
		Min:         get(colMin),
		Utilization: get(colUtilization),
	}, true
}

// optimizationMeans returns the mean local bandwidth of the baseline and
// variant groups, NaN for a group with no rows.
func (r *run) optimizationMeans(localT *table.Table, baseline, variant string) (float64, float64) {
	if !localT.Has(model.TagOptimization) {
		r.log.Warn().Msg("local results carry no optimization tag, impact section left blank")
		return math.NaN(), math.NaN()
	}
	s, err := report.Summarize(localT, []string{model.TagOptimization}, []report.Agg{
		{Metric: model.MetricBandwidth, Reducer: report.Mean, As: colMean},
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("optimization impact unavailable")
		return math.NaN(), math.NaN()
	}
	get := func(group string) float64 {
		v, ok := s.Lookup(colMean, group)
		if !ok {
			r.log.Warn().Str("group", group).Msg("no local results for group")
			return math.NaN()
		}
		return v
	}
	return get(baseline), get(variant)
}
