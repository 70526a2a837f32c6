package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
	"github.com/gyeh/perfstats/internal/table"
)

// Reducer collapses a group's values for one metric into a single number.
type Reducer int

const (
	Mean Reducer = iota
	Min
	Max
	Std // population standard deviation
	Count
	Quantile
)

func (r Reducer) String() string {
	switch r {
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	case Std:
		return "std"
	case Count:
		return "count"
	case Quantile:
		return "quantile"
	}
	return "reducer(" + strconv.Itoa(int(r)) + ")"
}

// Agg is one output column of a summary: a reducer applied to a metric.
type Agg struct {
	Metric  string
	Reducer Reducer
	Q       float64 // for Quantile, in [0, 1]
	As      string  // output column name; defaults to metric_reducer
}

// Name returns the output column name.
func (a Agg) Name() string {
	if a.As != "" {
		return a.As
	}
	if a.Reducer == Quantile {
		return fmt.Sprintf("%s_p%s", a.Metric, strconv.FormatFloat(a.Q*100, 'f', -1, 64))
	}
	return a.Metric + "_" + a.Reducer.String()
}

// Reduce applies r to xs. xs is not modified. An empty input yields NaN,
// except for Count which yields 0.
func Reduce(r Reducer, q float64, xs []float64) float64 {
	if r == Count {
		return float64(len(xs))
	}
	if len(xs) == 0 {
		return math.NaN()
	}
	switch r {
	case Mean:
		return stat.Mean(xs, nil)
	case Min:
		return floats.Min(xs)
	case Max:
		return floats.Max(xs)
	case Std:
		_, v := stat.PopMeanVariance(xs, nil)
		return math.Sqrt(v)
	case Quantile:
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		return stat.Quantile(q, stat.LinInterp, sorted, nil)
	}
	return math.NaN()
}

// SummaryRow is one group of a Summary.
type SummaryRow struct {
	Group  []model.Value // one value per grouping key
	Count  int           // rows in the group
	Values []float64     // one value per Agg, NaN when the group had no data
}

// Summary is the result of grouping a table and reducing its metrics.
type Summary struct {
	Keys    []string
	Columns []string
	Rows    []SummaryRow
}

// Summarize groups t by keys and applies every agg to each group. Rows with
// an NA grouping value are left out. Groups are sorted by key, numerically
// for numeric keys and lexicographically otherwise.
func Summarize(t *table.Table, keys []string, aggs []Agg) (*Summary, error) {
	if t == nil || t.Len() == 0 {
		return nil, table.ErrNoData
	}
	for _, k := range keys {
		if !t.Has(k) {
			return nil, fmt.Errorf("unknown grouping column %q", k)
		}
	}
	for _, a := range aggs {
		if !t.Has(a.Metric) {
			return nil, fmt.Errorf("unknown metric column %q", a.Metric)
		}
		if a.Reducer == Quantile && !(a.Q >= 0 && a.Q <= 1) {
			return nil, fmt.Errorf("quantile %v out of range for %s", a.Q, a.Metric)
		}
	}

	type group struct {
		key  []model.Value
		rows []int
	}
	var groups []*group
rows:
	for i := 0; i < t.Len(); i++ {
		key := make([]model.Value, len(keys))
		for j, k := range keys {
			v := t.Value(i, k)
			if v.IsNA() {
				continue rows
			}
			key[j] = v
		}
		var g *group
		for _, cand := range groups {
			if sameKey(cand.key, key) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{key: key}
			groups = append(groups, g)
		}
		g.rows = append(g.rows, i)
	}
	if len(groups) == 0 {
		return nil, table.ErrNoData
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return compareKeys(groups[a].key, groups[b].key) < 0
	})

	s := &Summary{Keys: append([]string(nil), keys...)}
	for _, a := range aggs {
		s.Columns = append(s.Columns, a.Name())
	}
	for _, g := range groups {
		row := SummaryRow{Group: g.key, Count: len(g.rows), Values: make([]float64, len(aggs))}
		for j, a := range aggs {
			var xs []float64
			for _, i := range g.rows {
				if f, ok := t.Value(i, a.Metric).Float(); ok {
					xs = append(xs, f)
				}
			}
			row.Values[j] = Reduce(a.Reducer, a.Q, xs)
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

func sameKey(a, b []model.Value) bool {
	for i := range a {
		if a[i].Compare(b[i]) != 0 {
			return false
		}
	}
	return true
}

func compareKeys(a, b []model.Value) int {
	for i := range a {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Round rounds every value in place to the given decimal places.
func (s *Summary) Round(places int) *Summary {
	for i := range s.Rows {
		for j, v := range s.Rows[i].Values {
			s.Rows[i].Values[j] = normalize.Round(v, places)
		}
	}
	return s
}

// Index returns the position of a value column, or -1.
func (s *Summary) Index(col string) int {
	for i, name := range s.Columns {
		if name == col {
			return i
		}
	}
	return -1
}

// AddColumn appends a value column derived from each row.
func (s *Summary) AddColumn(name string, derive func(SummaryRow) float64) *Summary {
	s.Columns = append(s.Columns, name)
	for i := range s.Rows {
		s.Rows[i].Values = append(s.Rows[i].Values, derive(s.Rows[i]))
	}
	return s
}

// Lookup returns the value of column col in the group whose key renders as
// group, or ok=false.
func (s *Summary) Lookup(col string, group ...string) (float64, bool) {
	c := s.Index(col)
	if c < 0 || len(group) != len(s.Keys) {
		return 0, false
	}
next:
	for _, r := range s.Rows {
		for i, g := range group {
			if r.Group[i].String() != g {
				continue next
			}
		}
		return r.Values[c], true
	}
	return 0, false
}

// Header returns the grouping keys followed by the value columns.
func (s *Summary) Header() []string {
	return append(append([]string(nil), s.Keys...), s.Columns...)
}

// Records renders the summary as string rows matching Header, with values
// at the given precision.
func (s *Summary) Records(places int) [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		rec := make([]string, 0, len(r.Group)+len(r.Values))
		for _, g := range r.Group {
			rec = append(rec, g.String())
		}
		for _, v := range r.Values {
			rec = append(rec, formatValue(v, places))
		}
		out = append(out, rec)
	}
	return out
}

// formatValue renders v with up to places decimals and no trailing zeros.
func formatValue(v float64, places int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(normalize.Round(v, places), 'f', -1, 64)
}
