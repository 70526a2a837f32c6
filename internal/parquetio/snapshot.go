// Package parquetio persists aggregated result tables as Parquet snapshots
// in a long cell layout, one model.CellRow per table cell.
package parquetio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/table"
)

// Meta identifies the run a snapshot came from.
type Meta struct {
	RunID  string
	Report string
}

// Cells flattens t into snapshot cells in row-major order. Every cell is
// written, NA included, so the first row fixes the column order.
func Cells(meta Meta, t *table.Table) []model.CellRow {
	cols := t.Columns()
	out := make([]model.CellRow, 0, t.Len()*len(cols))
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		for j, c := range cols {
			cell := model.CellRow{
				RunID:    meta.RunID,
				Report:   meta.Report,
				RowIndex: int64(i),
				Source:   t.Source(i),
				Column:   c.Name,
				Role:     string(c.Role),
				Kind:     row[j].Kind.String(),
			}
			switch v := row[j]; {
			case v.Kind == model.KindString:
				s := v.Str
				cell.Text = &s
			case !v.IsNA():
				n := v.Num
				cell.Num = &n
			}
			out = append(out, cell)
		}
	}
	return out
}

// WriteSnapshot writes t to path, replacing any existing file, and returns
// the number of cells written.
func WriteSnapshot(path string, meta Meta, t *table.Table) (int, error) {
	if t == nil || t.Len() == 0 {
		return 0, table.ErrNoData
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}

	cells := Cells(meta, t)
	w := parquet.NewGenericWriter[model.CellRow](f)
	if _, err := w.Write(cells); err != nil {
		f.Close()
		return 0, fmt.Errorf("write snapshot cells: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("close snapshot writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close snapshot: %w", err)
	}
	return len(cells), nil
}

// ReadSnapshot reads a snapshot back into a table.
func ReadSnapshot(path string) (*table.Table, Meta, error) {
	r, err := Open(path)
	if err != nil {
		return nil, Meta{}, err
	}
	defer r.Close()

	var (
		meta    Meta
		cols    []table.Column
		rows    [][]model.Value
		sources []string
	)
	_, err = r.Each(512, func(c model.CellRow) error {
		if meta.RunID == "" {
			meta = Meta{RunID: c.RunID, Report: c.Report}
		}
		idx := int(c.RowIndex)
		if idx == 0 {
			cols = append(cols, table.Column{Name: c.Column, Role: table.Role(c.Role)})
		}
		for len(rows) <= idx {
			rows = append(rows, nil)
			sources = append(sources, c.Source)
		}
		v, err := cellValue(c)
		if err != nil {
			return err
		}
		rows[idx] = append(rows[idx], v)
		return nil
	})
	if err != nil {
		return nil, Meta{}, err
	}

	t, err := table.FromRows(cols, rows, sources)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("rebuild table: %w", err)
	}
	return t, meta, nil
}

func cellValue(c model.CellRow) (model.Value, error) {
	kind, ok := model.KindByName(c.Kind)
	if !ok {
		return model.Value{}, fmt.Errorf("row %d column %s: unknown kind %q", c.RowIndex, c.Column, c.Kind)
	}
	switch kind {
	case model.KindNA:
		return model.NA(), nil
	case model.KindString:
		if c.Text == nil {
			return model.NA(), nil
		}
		return model.String(*c.Text), nil
	}
	if c.Num == nil {
		return model.NA(), nil
	}
	return model.Value{Kind: kind, Num: *c.Num}, nil
}
