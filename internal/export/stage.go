package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/perfstats/internal/db"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/parquetio"
	embedsql "github.com/gyeh/perfstats/internal/sql"
)

const readBatchSize = 1024

// StageResult holds metrics from the stage phase.
type StageResult struct {
	CellsRead     int64
	CellsCopied   int64
	CellsRejected int64
	Duration      time.Duration
}

// Stage streams cells from the snapshot and COPY-loads them into
// perf.result_cells through a channel-backed CopyFromSource. Cells stamped
// with another run id are rejected.
func Stage(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()

	reader, err := parquetio.Open(pf.Path)
	if err != nil {
		return nil, fmt.Errorf("stage open: %w", err)
	}
	defer reader.Close()

	ch := make(chan *model.CellRow, readBatchSize)
	errCh := make(chan error, 1)
	runID := pf.RunID.String()

	var cellsRead, cellsRejected int64

	go func() {
		defer close(ch)
		n, err := reader.Each(readBatchSize, func(c model.CellRow) error {
			if c.RunID != runID {
				cellsRejected++
				log.Warn().
					Str("cell_run_id", c.RunID).
					Int64("row_index", c.RowIndex).
					Str("column", c.Column).
					Msg("cell rejected: run id differs from snapshot")
				return nil
			}
			select {
			case ch <- &c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		cellsRead = n
		errCh <- err
	}()

	source := db.NewCellSource(ch)
	copied, err := pool.CopyFrom(ctx,
		pgx.Identifier{"perf", "result_cells"},
		model.CellColumns(),
		source,
	)
	if err != nil {
		// Drain so the producer can exit.
		for range ch {
		}
	}

	prodErr := <-errCh
	if prodErr != nil {
		return nil, fmt.Errorf("stage producer: %w", prodErr)
	}
	if err != nil {
		return nil, fmt.Errorf("stage copy: %w", err)
	}

	dur := time.Since(start)
	log.Info().
		Int64("cells_read", cellsRead).
		Int64("cells_copied", copied).
		Int64("cells_rejected", cellsRejected).
		Str("duration", dur.String()).
		Float64("cells_per_sec", float64(copied)/dur.Seconds()).
		Msg("stage complete")

	return &StageResult{
		CellsRead:     cellsRead,
		CellsCopied:   copied,
		CellsRejected: cellsRejected,
		Duration:      dur,
	}, nil
}

// UpdateStatus sets the status of a run in perf.runs.
func UpdateStatus(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID, status string) error {
	_, err := pool.Exec(ctx, embedsql.UpdateRunStatus, runID, status)
	return err
}
