package plot

import (
	"fmt"
	"os"
	"path/filepath"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Default image sizes.
const (
	ChartWidth  = 10 * vg.Inch
	ChartHeight = 6 * vg.Inch
	GridCell    = 8 * vg.Inch
)

// Save writes p to path; the image format follows the extension.
func Save(path string, p *gplot.Plot, w, h vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}

// SaveGrid lays plots out row by row in a grid with cols columns and
// writes the result as a PNG. Every row must be full.
func SaveGrid(path string, cols int, plots []*gplot.Plot, cellW, cellH vg.Length) error {
	if cols <= 0 || len(plots) == 0 || len(plots)%cols != 0 {
		return fmt.Errorf("grid of %d charts does not fill %d columns", len(plots), cols)
	}
	rows := len(plots) / cols
	grid := make([][]*gplot.Plot, rows)
	for r := range grid {
		grid[r] = plots[r*cols : (r+1)*cols]
	}

	img := vgimg.New(cellW*vg.Length(cols), cellH*vg.Length(rows))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
		PadX:      vg.Millimeter * 8,
		PadY:      vg.Millimeter * 8,
	}
	canvases := gplot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return f.Close()
}
