package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/report"
	"github.com/gyeh/perfstats/internal/table"
)

// Kind is the chart type drawn for a Spec.
type Kind int

const (
	Box Kind = iota
	Bar
	Line
	Scatter
	Hist
)

// Spec describes one chart over a table. Box and Bar charts treat X as a
// category; Line and Scatter treat it as numeric. Hue splits the data into
// coloured series.
type Spec struct {
	Kind   Kind
	Title  string
	XLabel string
	YLabel string
	X      string
	Y      string
	Hue    string
	LogX   bool // Line and Scatter only
	LogY   bool // Line and Scatter only
	Bins   int  // Hist only
}

// Fixed colours for well-known series so every chart agrees.
var seriesColors = map[string]color.Color{
	model.Optimized:   color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff},
	model.Unoptimized: color.RGBA{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	"improved":        color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff},
	"degraded":        color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
}

const (
	groupWidth = 0.8 // share of a category slot used by its boxes or bars
	defaultBin = 20
)

// Build renders spec over t into a gonum plot.
func Build(t *table.Table, spec Spec) (*gplot.Plot, error) {
	if !t.Has(spec.Y) {
		return nil, fmt.Errorf("chart %q: no column %s", spec.Title, spec.Y)
	}
	if spec.Kind != Hist && !t.Has(spec.X) {
		return nil, fmt.Errorf("chart %q: no column %s", spec.Title, spec.X)
	}

	// A log axis cannot show values <= 0: those rows are left off, and a
	// table with nothing positive is drawn on linear axes instead.
	logX, logY := spec.logAxes()
	if logX || logY {
		if kept, err := t.Where(func(i int) bool { return positiveRow(t, i, spec) }); err == nil {
			t = kept
		} else {
			logX, logY = false, false
		}
	}

	p := gplot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.Legend.Top = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.Add(plotter.NewGrid())

	hues := []string{""}
	if spec.Hue != "" {
		hues = hues[:0]
		for _, v := range t.Distinct(spec.Hue) {
			hues = append(hues, v.String())
		}
	}
	colors, err := paletteFor(hues)
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case Box, Bar:
		err = categorical(p, t, spec, hues, colors)
	case Line, Scatter:
		err = numeric(p, t, spec, hues, colors)
	case Hist:
		err = histogram(p, t, spec)
	default:
		err = fmt.Errorf("unknown chart kind %d", spec.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("chart %q: %w", spec.Title, err)
	}

	if logX {
		logAxis(&p.X)
	}
	if logY {
		logAxis(&p.Y)
	}
	return p, nil
}

// logAxis switches a to a log scale. An axis holding a single value gets a
// decade either side, since the default padding of one unit can reach zero.
func logAxis(a *gplot.Axis) {
	a.Scale = gplot.LogScale{}
	a.Tick.Marker = gplot.LogTicks{Prec: -1}
	if a.Min == a.Max {
		a.Min /= 10
		a.Max *= 10
	}
}

func (s Spec) logAxes() (x, y bool) {
	if s.Kind != Line && s.Kind != Scatter {
		return false, false
	}
	return s.LogX, s.LogY
}

// positiveRow reports whether row i has a positive number on every log axis.
func positiveRow(t *table.Table, i int, spec Spec) bool {
	logX, logY := spec.logAxes()
	if logX {
		if v, ok := t.Value(i, spec.X).Float(); !ok || v <= 0 {
			return false
		}
	}
	if logY {
		if v, ok := t.Value(i, spec.Y).Float(); !ok || v <= 0 {
			return false
		}
	}
	return true
}

// NonPositive counts the rows Build leaves off the chart's log axes because
// a value there is zero or negative. NA cells are not counted.
func NonPositive(t *table.Table, spec Spec) int {
	logX, logY := spec.logAxes()
	if !logX && !logY {
		return 0
	}
	n := 0
	for i := 0; i < t.Len(); i++ {
		x, xok := t.Value(i, spec.X).Float()
		y, yok := t.Value(i, spec.Y).Float()
		if (logX && xok && x <= 0) || (logY && yok && y <= 0) {
			n++
		}
	}
	return n
}

// Empty returns a titled chart without data, for a grid slot whose
// columns the table does not have.
func Empty(spec Spec) *gplot.Plot {
	p := gplot.New()
	p.Title.Text = spec.Title + " (no data)"
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	return p
}

// BuildOrEmpty is Build, falling back to Empty when t lacks a column the
// chart needs or has nothing to draw. Other errors are returned.
func BuildOrEmpty(t *table.Table, spec Spec) (*gplot.Plot, error) {
	if !t.Has(spec.Y) || (spec.Kind != Hist && !t.Has(spec.X)) || (spec.Hue != "" && !t.Has(spec.Hue)) {
		return Empty(spec), nil
	}
	p, err := Build(t, spec)
	if errors.Is(err, table.ErrNoData) {
		return Empty(spec), nil
	}
	return p, err
}

func paletteFor(hues []string) ([]color.Color, error) {
	n := max(len(hues), 3)
	pal, err := brewer.GetPalette(brewer.TypeQualitative, "Set2", min(n, 8))
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	base := pal.Colors()
	out := make([]color.Color, len(hues))
	for i, h := range hues {
		if c, ok := seriesColors[h]; ok {
			out[i] = c
			continue
		}
		out[i] = base[i%len(base)]
	}
	return out, nil
}

// series returns the row indexes belonging to hue h.
func series(t *table.Table, hueCol, h string) []int {
	var rows []int
	for i := 0; i < t.Len(); i++ {
		if hueCol == "" || t.Value(i, hueCol).String() == h {
			rows = append(rows, i)
		}
	}
	return rows
}

// categorical draws grouped boxes or mean bars, one slot per distinct X.
func categorical(p *gplot.Plot, t *table.Table, spec Spec, hues []string, colors []color.Color) error {
	cats := t.Distinct(spec.X)
	if len(cats) == 0 {
		return table.ErrNoData
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}

	// One category slot is one data unit wide; size widths from a nominal
	// 9in canvas so groups stay inside their slot.
	slot := vg.Length(9*vg.Inch) / vg.Length(len(cats)+1)
	width := slot * groupWidth / vg.Length(len(hues))

	drawn := false
	for j, h := range hues {
		rows := series(t, spec.Hue, h)
		offset := width*vg.Length(j) - width*vg.Length(len(hues)-1)/2

		if spec.Kind == Bar {
			vals := make(plotter.Values, len(cats))
			for i, c := range cats {
				vals[i] = cellMean(t, rows, spec.X, c, spec.Y)
				if math.IsNaN(vals[i]) {
					vals[i] = 0
				}
			}
			bc, err := plotter.NewBarChart(vals, width)
			if err != nil {
				return err
			}
			bc.Color = colors[j]
			bc.LineStyle.Width = 0
			bc.Offset = offset
			p.Add(bc)
			if h != "" {
				p.Legend.Add(h, bc)
			}
			drawn = true
			continue
		}

		for i, c := range cats {
			vals := cellValues(t, rows, spec.X, c, spec.Y)
			if len(vals) == 0 {
				continue
			}
			bp, err := plotter.NewBoxPlot(width, float64(i), vals)
			if err != nil {
				return err
			}
			bp.FillColor = colors[j]
			bp.Offset = offset
			p.Add(bp)
			drawn = true
		}
		if h != "" {
			p.Legend.Add(h, swatch{colors[j]})
		}
	}
	if !drawn {
		return table.ErrNoData
	}
	p.NominalX(names...)
	p.X.Min = -0.5
	p.X.Max = float64(len(cats)) - 0.5
	return nil
}

// numeric draws one line (of per-X means) or scatter per hue.
func numeric(p *gplot.Plot, t *table.Table, spec Spec, hues []string, colors []color.Color) error {
	drawn := false
	for j, h := range hues {
		rows := series(t, spec.Hue, h)
		var xys plotter.XYs
		if spec.Kind == Line {
			xys = meanByX(t, rows, spec.X, spec.Y)
		} else {
			for _, i := range rows {
				x, xok := t.Value(i, spec.X).Float()
				y, yok := t.Value(i, spec.Y).Float()
				if xok && yok {
					xys = append(xys, plotter.XY{X: x, Y: y})
				}
			}
		}
		if len(xys) == 0 {
			continue
		}

		if spec.Kind == Line {
			l, pts, err := plotter.NewLinePoints(xys)
			if err != nil {
				return err
			}
			l.Color = colors[j]
			pts.Color = colors[j]
			pts.Shape = draw.CircleGlyph{}
			p.Add(l, pts)
			if h != "" {
				p.Legend.Add(h, l, pts)
			}
		} else {
			s, err := plotter.NewScatter(xys)
			if err != nil {
				return err
			}
			s.Color = colors[j]
			s.Shape = draw.CircleGlyph{}
			p.Add(s)
			if h != "" {
				p.Legend.Add(h, s)
			}
		}
		drawn = true
	}
	if !drawn {
		return table.ErrNoData
	}
	return nil
}

func histogram(p *gplot.Plot, t *table.Table, spec Spec) error {
	vals := plotter.Values(t.Floats(spec.Y))
	if len(vals) == 0 {
		return table.ErrNoData
	}
	bins := spec.Bins
	if bins <= 0 {
		bins = defaultBin
	}
	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return err
	}
	p.Add(h)
	return nil
}

func cellValues(t *table.Table, rows []int, xCol string, x model.Value, yCol string) plotter.Values {
	var out plotter.Values
	for _, i := range rows {
		if t.Value(i, xCol).Compare(x) != 0 {
			continue
		}
		if y, ok := t.Value(i, yCol).Float(); ok {
			out = append(out, y)
		}
	}
	return out
}

func cellMean(t *table.Table, rows []int, xCol string, x model.Value, yCol string) float64 {
	return report.Reduce(report.Mean, 0, cellValues(t, rows, xCol, x, yCol))
}

func meanByX(t *table.Table, rows []int, xCol, yCol string) plotter.XYs {
	byX := make(map[float64][]float64)
	for _, i := range rows {
		x, xok := t.Value(i, xCol).Float()
		y, yok := t.Value(i, yCol).Float()
		if xok && yok {
			byX[x] = append(byX[x], y)
		}
	}
	xs := make([]float64, 0, len(byX))
	for x := range byX {
		xs = append(xs, x)
	}
	sort.Float64s(xs)
	out := make(plotter.XYs, len(xs))
	for i, x := range xs {
		out[i] = plotter.XY{X: x, Y: report.Reduce(report.Mean, 0, byX[x])}
	}
	return out
}

// swatch is a filled legend thumbnail for plotters that have none.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.color, c.ClipPolygonY(pts))
}
