package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

// Fixed headers of the converted CSVs.
var (
	rttResultsHeader       = []string{"Size (bytes)", "Average RTT (ms)", "Min RTT (ms)", "Max RTT (ms)"}
	bandwidthResultsHeader = []string{"Size (bytes)", "Bandwidth (MB/s)", "Timestamp"}
	marshalResultsHeader   = []string{"Size (bytes)", "Marshal Time (ms)", "Data Type", "Timestamp"}
)

// RunConvert flattens the suite's JSON results into timestamped CSVs, one
// per category: rtt_results_<ts>.csv, bandwidth_results_<ts>.csv and
// marshal_results_<ts>.csv. Categories without results are skipped.
func RunConvert(env *Env) (*model.RunSummary, error) {
	root := env.Config.ResultsDir
	if err := locate.CheckRoot(root); err != nil {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	r := env.begin("convert", root)
	stamp := normalize.RunStamp(env.Now())
	out := env.outDir(root)

	converters := []struct {
		name   string
		header []string
		rows   func(t *table.Table) [][]string
	}{
		{suiteRTT, rttResultsHeader, rttResultRows},
		{suiteBandwidth, bandwidthResultsHeader, bandwidthResultRows},
		{suiteMarshal, marshalResultsHeader, marshalResultRows},
	}

	var all []model.Record
	for _, c := range converters {
		recs, err := r.collect(root, c.name)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			r.log.Info().Str("category", c.name).Msg("no results to convert")
			continue
		}
		t, err := r.aggregate(recs)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(out, fmt.Sprintf("%s_results_%s.csv", c.name, stamp))
		if err := r.writeCSV(path, c.header, c.rows(t)); err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	if len(all) == 0 {
		return nil, &PhaseError{Phase: PhaseAggregate, Err: table.ErrNoData}
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

// bySource groups row indexes by source file, in first-seen order.
func bySource(t *table.Table) [][]int {
	var (
		groups [][]int
		index  = make(map[string]int)
	)
	for i := 0; i < t.Len(); i++ {
		g, ok := index[t.Source(i)]
		if !ok {
			g = len(groups)
			index[t.Source(i)] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// rttResultRows writes one row per file: mean, min and max of its samples.
func rttResultRows(t *table.Table) [][]string {
	var out [][]string
	for _, rows := range bySource(t) {
		var rtts []float64
		for _, i := range rows {
			if v, ok := t.Value(i, model.MetricRTT).Float(); ok {
				rtts = append(rtts, v)
			}
		}
		if len(rtts) == 0 {
			continue
		}
		out = append(out, []string{
			cell(t.Value(rows[0], model.TagMessageSize)),
			normalize.FormatFixed(report.Reduce(report.Mean, 0, rtts), 3),
			normalize.FormatFixed(report.Reduce(report.Min, 0, rtts), 3),
			normalize.FormatFixed(report.Reduce(report.Max, 0, rtts), 3),
		})
	}
	return out
}

func bandwidthResultRows(t *table.Table) [][]string {
	out := make([][]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, []string{
			cell(t.Value(i, model.TagMessageSize)),
			cell(t.Value(i, model.MetricBandwidthMBps)),
			cell(t.Value(i, model.TagTimestamp)),
		})
	}
	return out
}

func marshalResultRows(t *table.Table) [][]string {
	out := make([][]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, []string{
			cell(t.Value(i, model.TagMessageSize)),
			cell(t.Value(i, model.MetricMarshalTime)),
			cell(t.Value(i, model.TagDataType)),
			cell(t.Value(i, model.TagTimestamp)),
		})
	}
	return out
}

// cell renders v for a CSV cell; NA is empty.
func cell(v model.Value) string {
	if v.IsNA() {
		return ""
	}
	return v.String()
}
