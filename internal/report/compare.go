package report

import (
	"math"
	"strings"

	"github.com/gyeh/perfstats/internal/normalize"
)

// deltaPlaces is the precision of every percentage delta.
const deltaPlaces = 2

// Direction says which way a metric improves.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// ComparisonRow is one metric measured under the baseline and the variant.
type ComparisonRow struct {
	TestType string
	Metric   string
	Baseline float64
	Variant  float64
	Delta    float64 // percent, NaN when the baseline is zero
	Places   int     // precision of Baseline and Variant
	Better   Direction
}

// Improved reports whether the variant beats the baseline.
func (r ComparisonRow) Improved() bool {
	if r.Better == LowerIsBetter {
		return r.Variant < r.Baseline
	}
	return r.Variant > r.Baseline
}

// Comparison lines up baseline and variant measurements row by row.
type Comparison struct {
	BaselineName string
	VariantName  string
	Rows         []ComparisonRow
}

// NewComparison returns an empty comparison between two named groups.
func NewComparison(baseline, variant string) *Comparison {
	return &Comparison{BaselineName: baseline, VariantName: variant}
}

// Add appends a row, computing the delta from a to b. It returns
// ErrZeroBaseline (with the row still added) when a is zero.
func (c *Comparison) Add(testType, metric string, a, b float64, places int, better Direction) error {
	d, err := PercentDelta(a, b)
	c.Rows = append(c.Rows, ComparisonRow{
		TestType: testType,
		Metric:   metric,
		Baseline: a,
		Variant:  b,
		Delta:    d,
		Places:   places,
		Better:   better,
	})
	return err
}

// Header returns the CSV header, e.g.
// Test Type,Metric,Unoptimized,Optimized,Difference (%).
func (c *Comparison) Header() []string {
	return []string{"Test Type", "Metric", title(c.BaselineName), title(c.VariantName), "Difference (%)"}
}

// Records renders every row at its precision.
func (c *Comparison) Records() [][]string {
	out := make([][]string, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = []string{
			r.TestType,
			r.Metric,
			normalize.FormatFixed(r.Baseline, r.Places),
			normalize.FormatFixed(r.Variant, r.Places),
			FormatDelta(r.Delta),
		}
	}
	return out
}

// FormatDelta renders a percentage delta at two decimals.
func FormatDelta(d float64) string {
	if math.IsNaN(d) {
		return "n/a"
	}
	return normalize.FormatFixed(d, deltaPlaces)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
