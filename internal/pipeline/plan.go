package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gyeh/perfstats/internal/locate"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/parse"
	"github.com/gyeh/perfstats/internal/report"
)

// planHiddenTags vary per record and are left out of the plan's tag column.
var planHiddenTags = map[string]bool{
	model.TagSample:    true,
	model.TagIsFirst:   true,
	model.TagTimestamp: true,
	model.TagSection:   true,
}

// RunPlan is a dry run: it enumerates every enabled category, parses each
// file and prints its format, tags and outcome. Nothing is written.
func RunPlan(env *Env) (*model.RunSummary, error) {
	root := env.Config.ResultsDir
	if err := locate.CheckRoot(root); err != nil {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	r := env.begin("plan", root)
	p := parse.New(env.Diag)
	latest, err := locate.LatestRunDir(root, model.LocalRunPrefix)
	if err != nil && !errors.Is(err, locate.ErrNoInputDir) {
		return nil, &PhaseError{Phase: PhaseLocate, Err: err}
	}

	var rows [][]string
	for _, cat := range model.AllCategories {
		if !env.Config.Enabled(cat.Name) {
			continue
		}
		dir := root
		if (cat.Name == model.Optimized || cat.Name == model.Unoptimized) && latest != "" {
			dir = latest
		}
		for path := range locate.Locate(dir, cat) {
			r.summary.FilesFound++
			format := model.FormatUnknown
			if content, err := os.ReadFile(path); err == nil {
				format = parse.Detect(path, content)
			}

			outcome := "ok"
			recs, err := p.ParseFile(path, cat)
			if err != nil {
				var f *parse.Failure
				if !errors.As(err, &f) {
					return nil, &PhaseError{Phase: PhaseParse, Err: err}
				}
				env.Diag.Skip(f.Path, f.Field, f.Reason)
				r.summary.FilesSkipped++
				outcome = "skip: " + f.Reason
				if f.Field != "" {
					outcome = "skip: " + f.Field + ": " + f.Reason
				}
			} else {
				r.summary.FilesParsed++
				r.summary.RowsAggregated += len(recs)
			}
			rows = append(rows, []string{
				cat.Name,
				relPath(root, path),
				format.String(),
				strconv.Itoa(len(recs)),
				tagSummary(recs),
				outcome,
			})
		}
	}

	out := env.Out
	fmt.Fprintln(out, "=== perfstats plan ===")
	fmt.Fprintf(out, "Results dir: %s\n", root)
	if latest != "" {
		fmt.Fprintf(out, "Latest run:  %s\n", relPath(root, latest))
	}
	fmt.Fprintf(out, "Files:       %d found, %d parseable, %d skipped\n",
		r.summary.FilesFound, r.summary.FilesParsed, r.summary.FilesSkipped)
	fmt.Fprintf(out, "Records:     %d\n", r.summary.RowsAggregated)
	fmt.Fprintln(out)
	if len(rows) > 0 {
		report.RenderTable(out, []string{"Category", "File", "Format", "Records", "Tags", "Outcome"}, rows)
	} else {
		fmt.Fprintln(out, "No result files matched any category.")
	}

	if items := env.Diag.Items(); len(items) > 0 {
		fmt.Fprintf(out, "\nDiagnostics (%d):\n", len(items))
		drows := make([][]string, len(items))
		for i, d := range items {
			drows[i] = []string{string(d.Severity), relPath(root, d.Path), d.Field, d.Reason}
		}
		report.RenderTable(out, []string{"Severity", "File", "Field", "Reason"}, drows)
	}
	return r.finish(), nil
}

// tagSummary renders the first record's stable tags as k=v pairs.
func tagSummary(recs []model.Record) string {
	if len(recs) == 0 {
		return ""
	}
	var pairs []string
	for k, v := range recs[0].Tags {
		if planHiddenTags[k] {
			continue
		}
		pairs = append(pairs, k+"="+v.String())
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
