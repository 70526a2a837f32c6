package parquetio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/perfstats/internal/model"
)

// Reader streams the result cells of a snapshot in the order WriteSnapshot
// laid them out: row by row, columns in table order. inspect rebuilds a
// table from it and export copies its cells into Postgres.
type Reader struct {
	file  *os.File
	cells *parquet.GenericReader[model.CellRow]
}

// Open opens a snapshot and rejects files that lack the result cell
// columns, so a stray parquet file fails before any cell is read.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return &Reader{file: f, cells: parquet.NewGenericReader[model.CellRow](pf)}, nil
}

// NumRows returns the number of cells, which is rows times columns of the
// table the snapshot was taken from.
func (r *Reader) NumRows() int64 {
	return r.cells.NumRows()
}

// Read fills cells from the current position. It returns io.EOF once the
// last cell has been read.
func (r *Reader) Read(cells []model.CellRow) (int, error) {
	n, err := r.cells.Read(cells)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read snapshot cells: %w", err)
	}
	return n, err
}

// Each hands every remaining cell to fn, reading batch cells at a time, and
// returns how many cells were read. The first error from fn stops the scan.
func (r *Reader) Each(batch int, fn func(model.CellRow) error) (int64, error) {
	if batch <= 0 {
		batch = 512
	}
	buf := make([]model.CellRow, batch)
	var read int64
	for {
		n, err := r.Read(buf)
		for _, c := range buf[:n] {
			read++
			if ferr := fn(c); ferr != nil {
				return read, ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return read, nil
		}
		if err != nil {
			return read, fmt.Errorf("at cell %d: %w", read, err)
		}
	}
}

// Close releases the parquet reader and the file.
func (r *Reader) Close() error {
	if err := r.cells.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
