package table

import (
	"errors"
	"sort"

	"github.com/gyeh/perfstats/internal/model"
)

// ErrNoData is returned when aggregation has nothing to work with.
var ErrNoData = errors.New("no valid data files found")

// Role says whether a column came from a record's tags or metrics.
type Role string

const (
	RoleTag    Role = "tag"
	RoleMetric Role = "metric"
)

// Column is one named column of a Table.
type Column struct {
	Name string
	Role Role
}

// Table is an ordered set of rows sharing the union schema of every record
// that went into it. A cell a record did not provide is model.NA.
type Table struct {
	cols    []Column
	index   map[string]int
	rows    [][]model.Value
	sources []string
}

// Aggregate concatenates records into one Table in input order. Columns
// appear in first-seen order; within a record, tags precede metrics and
// each group is sorted by name.
func Aggregate(records []model.Record) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	t := &Table{index: make(map[string]int)}
	for _, r := range records {
		t.addColumns(r.Tags, RoleTag)
		t.addColumns(r.Metrics, RoleMetric)
	}
	for _, r := range records {
		row := make([]model.Value, len(t.cols))
		for k, v := range r.Tags {
			row[t.index[k]] = v
		}
		for k, v := range r.Metrics {
			row[t.index[k]] = v
		}
		t.rows = append(t.rows, row)
		t.sources = append(t.sources, r.Source)
	}
	return t, nil
}

func (t *Table) addColumns(m map[string]model.Value, role Role) {
	names := make([]string, 0, len(m))
	for k := range m {
		if _, ok := t.index[k]; !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		t.index[n] = len(t.cols)
		t.cols = append(t.cols, Column{Name: n, Role: role})
	}
}

// FromRows builds a Table directly from columns and row values. Each row
// must have one value per column. It is used when reading snapshots back.
func FromRows(cols []Column, rows [][]model.Value, sources []string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, errors.New("duplicate column " + c.Name)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, errors.New("row width does not match column count")
		}
		t.rows = append(t.rows, append([]model.Value(nil), r...))
		src := ""
		if i < len(sources) {
			src = sources[i]
		}
		t.sources = append(t.sources, src)
	}
	return t, nil
}

// Columns returns the schema in column order.
func (t *Table) Columns() []Column { return append([]Column(nil), t.cols...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the cell at row i, column name. Unknown columns are NA.
func (t *Table) Value(i int, name string) model.Value {
	c, ok := t.index[name]
	if !ok {
		return model.NA()
	}
	return t.rows[i][c]
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []model.Value { return append([]model.Value(nil), t.rows[i]...) }

// Source returns the file row i was read from.
func (t *Table) Source(i int) string { return t.sources[i] }

// Floats returns the numeric values of a column, skipping NA and
// non-numeric cells.
func (t *Table) Floats(name string) []float64 {
	var out []float64
	for i := range t.rows {
		if f, ok := t.Value(i, name).Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Where returns a table holding only the rows for which keep returns true.
// The schema is unchanged. An empty result is ErrNoData.
func (t *Table) Where(keep func(row int) bool) (*Table, error) {
	out := &Table{cols: t.cols, index: t.index}
	for i := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, t.rows[i])
			out.sources = append(out.sources, t.sources[i])
		}
	}
	if len(out.rows) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// Equals is a Where predicate matching rows whose column name renders as value.
func (t *Table) Equals(name, value string) func(int) bool {
	return func(i int) bool {
		v := t.Value(i, name)
		return !v.IsNA() && v.String() == value
	}
}

// Distinct returns the distinct non-NA values of a column in sorted order.
func (t *Table) Distinct(name string) []model.Value {
	var out []model.Value
	for i := range t.rows {
		v := t.Value(i, name)
		if v.IsNA() {
			continue
		}
		dup := false
		for _, o := range out {
			if o.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Compare(out[b]) < 0 })
	return out
}
