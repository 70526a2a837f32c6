// Package pipeline runs the reports: each runner locates result files,
// parses and aggregates them, then writes summaries, charts and an
// optional Parquet snapshot.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/gyeh/perfstats/internal/config"
	"github.com/gyeh/perfstats/internal/diag"
	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/parquetio"
	"github.com/gyeh/perfstats/internal/parse"
	"github.com/gyeh/perfstats/internal/plot"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

// Phases named by PhaseError.
const (
	PhaseLocate    = "locate"
	PhaseParse     = "parse"
	PhaseAggregate = "aggregate"
	PhaseSummarize = "summarize"
	PhaseWrite     = "write"
	PhasePlot      = "plot"
	PhaseSnapshot  = "snapshot"
	PhaseExport    = "export"
)

// PhaseError wraps an error with the phase where it occurred.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Env carries what every runner needs. It is built once per invocation.
type Env struct {
	Log    zerolog.Logger
	Diag   *diag.Collector
	Config *config.Config
	RunID  uuid.UUID
	Out    io.Writer // terminal tables
	Now    func() time.Time
}

// NewEnv returns an Env with a fresh run id. A nil out discards terminal output.
func NewEnv(log zerolog.Logger, cfg *config.Config, out io.Writer) *Env {
	if out == nil {
		out = io.Discard
	}
	id := uuid.New()
	log = log.With().Str("run_id", id.String()).Logger()
	return &Env{
		Log:    log,
		Diag:   diag.NewCollector(log),
		Config: cfg,
		RunID:  id,
		Out:    out,
		Now:    time.Now,
	}
}

// outDir returns the configured output directory, or def.
func (e *Env) outDir(def string) string {
	if e.Config.OutDir != "" {
		return e.Config.OutDir
	}
	return def
}

// run tracks one report invocation.
type run struct {
	env     *Env
	log     zerolog.Logger
	summary model.RunSummary
	start   time.Time
	parsed  time.Time
}

func (e *Env) begin(name, dir string) *run {
	e.Log.Info().Str("report", name).Str("results_dir", dir).Msg("starting report")
	return &run{
		env: e,
		log: e.Log.With().Str("report", name).Logger(),
		summary: model.RunSummary{
			RunID:      e.RunID.String(),
			Report:     name,
			ResultsDir: dir,
		},
		start: time.Now(),
	}
}

// collect parses every file of the named categories under root, in
// category order. Categories disabled in the config are skipped.
func (r *run) collect(root string, names ...string) ([]model.Record, error) {
	p := parse.New(r.env.Diag)
	var all []model.Record
	for _, name := range names {
		cat, ok := model.CategoryByName(name)
		if !ok {
			return nil, &PhaseError{Phase: PhaseLocate, Err: fmt.Errorf("unknown category %q", name)}
		}
		if !r.env.Config.Enabled(name) {
			r.log.Debug().Str("category", name).Msg("category disabled, skipping")
			continue
		}

		start := time.Now()
		recs, stats, err := p.ParseAll(locate.Locate(root, cat), cat)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseParse, Err: err}
		}
		r.summary.FilesFound += stats.Found
		r.summary.FilesParsed += stats.Parsed
		r.summary.FilesSkipped += stats.Skipped

		r.log.Info().
			Str("category", name).
			Int("found", stats.Found).
			Int("parsed", stats.Parsed).
			Int("skipped", stats.Skipped).
			Int("records", len(recs)).
			Dur("duration", time.Since(start)).
			Msg("parsed category")
		all = append(all, recs...)
	}
	return all, nil
}

// aggregate builds the report table. No records is the one hard stop.
func (r *run) aggregate(recs []model.Record) (*table.Table, error) {
	t, err := table.Aggregate(recs)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseAggregate, Err: err}
	}
	r.summary.RowsAggregated += t.Len()
	r.parsed = time.Now()
	r.log.Info().
		Int("rows", t.Len()).
		Int("columns", len(t.Columns())).
		Msg("aggregated results")
	return t, nil
}

func (r *run) output(path string) {
	r.summary.Outputs = append(r.summary.Outputs, path)
	r.log.Info().Str("path", path).Msg("wrote output")
}

// wrote records path as an output once err, the result of writing it, is nil.
func (r *run) wrote(path string, err error) error {
	if err != nil {
		return &PhaseError{Phase: PhaseWrite, Err: err}
	}
	r.output(path)
	return nil
}

func (r *run) writeCSV(path string, header []string, rows [][]string) error {
	return r.wrote(path, report.WriteCSV(path, header, rows))
}

func (r *run) writeSummary(path string, s *report.Summary, places int) error {
	return r.wrote(path, report.WriteSummaryCSV(path, s, places))
}

func (r *run) writeComparison(path string, c *report.Comparison) error {
	return r.wrote(path, report.WriteComparisonCSV(path, c))
}

// heading writes a section title above a terminal table.
func (r *run) heading(title string) {
	fmt.Fprintf(r.env.Out, "\n%s\n", title)
}

// chart is one slot of a chart image.
type chart struct {
	t    *table.Table
	spec plot.Spec
}

// saveCharts renders charts into one image at path: a single chart, or a
// grid with cols columns. Nothing is drawn when plots are disabled.
func (r *run) saveCharts(path string, cols int, cellW, cellH vg.Length, charts ...chart) error {
	if !r.env.Config.Plots {
		return nil
	}
	plots := make([]*gplot.Plot, len(charts))
	for i, c := range charts {
		var (
			p   *gplot.Plot
			err error
		)
		if c.t != nil {
			if n := plot.NonPositive(c.t, c.spec); n > 0 {
				r.env.Diag.Warn(path, c.spec.Title,
					fmt.Sprintf("%d rows with values <= 0 left off the log axis", n))
			}
		}
		if c.t == nil {
			p = plot.Empty(c.spec)
		} else if p, err = plot.BuildOrEmpty(c.t, c.spec); err != nil {
			return &PhaseError{Phase: PhasePlot, Err: err}
		}
		plots[i] = p
	}

	var err error
	if len(plots) == 1 {
		err = plot.Save(path, plots[0], cellW, cellH)
	} else {
		err = plot.SaveGrid(path, cols, plots, cellW, cellH)
	}
	if err != nil {
		return &PhaseError{Phase: PhasePlot, Err: err}
	}
	r.output(path)
	return nil
}

// snapshot persists t when a snapshot path is configured.
func (r *run) snapshot(t *table.Table) error {
	path := r.env.Config.Snapshot
	if path == "" {
		return nil
	}
	meta := parquetio.Meta{RunID: r.summary.RunID, Report: r.summary.Report}
	n, err := parquetio.WriteSnapshot(path, meta, t)
	if err != nil {
		return &PhaseError{Phase: PhaseSnapshot, Err: err}
	}
	r.log.Info().Int("cells", n).Msg("snapshot written")
	r.output(path)
	return nil
}

// finish stamps durations and logs the run summary.
func (r *run) finish() *model.RunSummary {
	end := time.Now()
	if r.parsed.IsZero() {
		r.parsed = end
	}
	r.summary.DurationParse = r.parsed.Sub(r.start)
	r.summary.DurationReport = end.Sub(r.parsed)
	r.summary.DurationTotal = end.Sub(r.start)

	r.log.Info().
		Int("files_found", r.summary.FilesFound).
		Int("files_parsed", r.summary.FilesParsed).
		Int("files_skipped", r.summary.FilesSkipped).
		Int("rows", r.summary.RowsAggregated).
		Int("outputs", len(r.summary.Outputs)).
		Int("diagnostics", r.env.Diag.Count()).
		Str("total_duration", r.summary.DurationTotal.String()).
		Msg("report complete")
	return &r.summary
}

// present keeps the aggregations whose metric t actually has.
func (r *run) present(t *table.Table, aggs []report.Agg) []report.Agg {
	out := make([]report.Agg, 0, len(aggs))
	for _, a := range aggs {
		if !t.Has(a.Metric) {
			r.log.Warn().Str("metric", a.Metric).Msg("metric not present in any file, column omitted")
			continue
		}
		out = append(out, a)
	}
	return out
}

// summarize groups t by keys. A table holding none of the aggregated
// metrics has nothing to report and stops the run with table.ErrNoData.
func (r *run) summarize(t *table.Table, keys []string, aggs []report.Agg) (*report.Summary, error) {
	aggs = r.present(t, aggs)
	if len(aggs) == 0 {
		return nil, &PhaseError{Phase: PhaseSummarize, Err: fmt.Errorf("no known metric in any parsed file: %w", table.ErrNoData)}
	}
	s, err := report.Summarize(t, keys, aggs)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseSummarize, Err: err}
	}
	return s, nil
}

// writeFile creates path and hands it to write.
func (r *run) writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PhaseError{Phase: PhaseWrite, Err: fmt.Errorf("create output dir: %w", err)}
	}
	f, err := os.Create(path)
	if err != nil {
		return &PhaseError{Phase: PhaseWrite, Err: err}
	}
	if err := write(f); err != nil {
		f.Close()
		return &PhaseError{Phase: PhaseWrite, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PhaseError{Phase: PhaseWrite, Err: err}
	}
	r.output(path)
	return nil
}

// IsNoInput reports whether err means the input directory is missing.
func IsNoInput(err error) bool {
	return errors.Is(err, locate.ErrNoInputDir)
}
