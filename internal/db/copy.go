package db

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gyeh/perfstats/internal/model"
)

// CellSource feeds snapshot cells to a COPY into perf.result_cells. Export
// reads the snapshot on its own goroutine and sends accepted cells down the
// channel; the COPY ends when the channel is closed.
type CellSource struct {
	ch      <-chan *model.CellRow
	current *model.CellRow
	err     error
}

// NewCellSource returns a CellSource draining ch.
func NewCellSource(ch <-chan *model.CellRow) *CellSource {
	return &CellSource{ch: ch}
}

func (s *CellSource) Next() bool {
	if s.err != nil {
		return false
	}
	cell, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = cell
	return true
}

// Values returns the current cell in model.CellColumns order. A cell
// without a column name cannot be keyed in result_cells and stops the COPY.
func (s *CellSource) Values() ([]any, error) {
	if s.current.Column == "" {
		s.err = fmt.Errorf("cell at row %d has no column name", s.current.RowIndex)
		return nil, s.err
	}
	return s.current.CopyValues(), nil
}

func (s *CellSource) Err() error {
	return s.err
}

var _ pgx.CopyFromSource = (*CellSource)(nil)
