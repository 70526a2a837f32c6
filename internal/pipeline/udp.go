package pipeline

import (
	"path/filepath"

	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/plot"
	"github.com/gyeh/perfstats/internal/report"
)

const (
	udpPlaces     = 3
	udpSummaryCSV = "summary.csv"
	udpChart      = "performance_analysis.png"
)

// udpAggs are the mean metrics of the UDP summary; columns keep the
// metric names.
var udpAggs = []report.Agg{
	{Metric: model.MetricAvgRTT, Reducer: report.Mean, As: model.MetricAvgRTT},
	{Metric: model.MetricBandwidth, Reducer: report.Mean, As: model.MetricBandwidth},
	{Metric: model.MetricDroppedPackets, Reducer: report.Mean, As: model.MetricDroppedPackets},
	{Metric: model.MetricPacketLoss, Reducer: report.Mean, As: model.MetricPacketLoss},
}

// RunUDP analyzes the newest optimization_tests_* run: optimized and
// unoptimized sender results grouped by optimization and drop rate.
func RunUDP(env *Env) (*model.RunSummary, error) {
	root := env.Config.ResultsDir
	dir, err := locate.LatestRunDir(root, model.LocalRunPrefix)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	r := env.begin("udp", dir)
	r.log.Info().Str("run_dir", dir).Msg("analyzing latest run")

	recs, err := r.collect(dir, model.Unoptimized, model.Optimized)
	if err != nil {
		return nil, err
	}
	t, err := r.aggregate(recs)
	if err != nil {
		return nil, err
	}

	s, err := r.summarize(t, []string{model.TagOptimization, model.TagDropRate}, udpAggs)
	if err != nil {
		return nil, err
	}
	s.Round(udpPlaces)

	out := env.outDir(dir)
	if err := r.writeSummary(filepath.Join(out, udpSummaryCSV), s, udpPlaces); err != nil {
		return nil, err
	}
	r.heading("Performance Summary")
	report.RenderSummary(env.Out, s, udpPlaces)

	hue := model.TagOptimization
	err = r.saveCharts(filepath.Join(out, udpChart), 2, plot.GridCell, plot.GridCell*3/4,
		chart{t, plot.Spec{Kind: plot.Box, Title: "Average RTT vs Drop Rate", XLabel: "Drop Rate (%)", YLabel: "Average RTT (ms)",
			X: model.TagDropRate, Y: model.MetricAvgRTT, Hue: hue}},
		chart{t, plot.Spec{Kind: plot.Bar, Title: "Bandwidth vs Packet Size", XLabel: "Packet Size (bytes)", YLabel: "Bandwidth (MB/s)",
			X: model.TagPacketSize, Y: model.MetricBandwidth, Hue: hue}},
		chart{t, plot.Spec{Kind: plot.Bar, Title: "Dropped Packets vs Drop Rate", XLabel: "Drop Rate (%)", YLabel: "Number of Dropped Packets",
			X: model.TagDropRate, Y: model.MetricDroppedPackets, Hue: hue}},
		chart{t, plot.Spec{Kind: plot.Line, Title: "Packet Loss Rate vs Drop Rate", XLabel: "Drop Rate (%)", YLabel: "Packet Loss Rate (%)",
			X: model.TagDropRate, Y: model.MetricPacketLoss, Hue: hue}},
	)
	if err != nil {
		return nil, err
	}

	if err := r.snapshot(t); err != nil {
		return nil, err
	}
	return r.finish(), nil
}
