package pipeline

import (
	"fmt"
	"strconv"

	"github.com/gyeh/perfstats/internal/normalize"
	"github.com/gyeh/perfstats/internal/parquetio"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

// RunInspect reads a snapshot back and prints its metadata and a per-column
// description of the table it holds.
func RunInspect(env *Env, path string) error {
	sha, err := normalize.FileHash(path)
	if err != nil {
		return &PhaseError{Phase: PhaseSnapshot, Err: err}
	}
	t, meta, err := parquetio.ReadSnapshot(path)
	if err != nil {
		return &PhaseError{Phase: PhaseSnapshot, Err: err}
	}

	out := env.Out
	fmt.Fprintln(out, "=== perfstats inspect ===")
	fmt.Fprintf(out, "File:     %s\n", path)
	fmt.Fprintf(out, "SHA-256:  %s\n", sha)
	fmt.Fprintf(out, "Run ID:   %s\n", meta.RunID)
	fmt.Fprintf(out, "Report:   %s\n", meta.Report)
	fmt.Fprintf(out, "Rows:     %d\n", t.Len())
	fmt.Fprintf(out, "Columns:  %d\n", len(t.Columns()))
	fmt.Fprintln(out)
	report.RenderTable(out, []string{"Column", "Role", "Values", "Distinct", "Mean", "Min", "Max"}, describeColumns(t))

	env.Log.Info().
		Str("path", path).
		Str("snapshot_run_id", meta.RunID).
		Int("rows", t.Len()).
		Msg("snapshot inspected")
	return nil
}

// describeColumns summarizes each column: non-NA count, distinct values
// for tags, and mean/min/max for numeric metrics.
func describeColumns(t *table.Table) [][]string {
	var rows [][]string
	for _, c := range t.Columns() {
		n := 0
		for i := 0; i < t.Len(); i++ {
			if !t.Value(i, c.Name).IsNA() {
				n++
			}
		}
		row := []string{c.Name, string(c.Role), strconv.Itoa(n), "", "", "", ""}
		if c.Role == table.RoleTag {
			row[3] = strconv.Itoa(len(t.Distinct(c.Name)))
		}
		if xs := t.Floats(c.Name); c.Role == table.RoleMetric && len(xs) > 0 {
			row[4] = normalize.FormatFixed(report.Reduce(report.Mean, 0, xs), 3)
			row[5] = normalize.FormatFixed(report.Reduce(report.Min, 0, xs), 3)
			row[6] = normalize.FormatFixed(report.Reduce(report.Max, 0, xs), 3)
		}
		rows = append(rows, row)
	}
	return rows
}
