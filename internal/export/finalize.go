package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/perfstats/internal/sql"
)

// Finalize marks the run exported with its cell count and runs ANALYZE.
func Finalize(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, runID uuid.UUID, cells int64) (time.Duration, error) {
	start := time.Now()

	if _, err := pool.Exec(ctx, embedsql.FinalizeRun, runID, cells); err != nil {
		return 0, fmt.Errorf("finalize run: %w", err)
	}
	if _, err := pool.Exec(ctx, embedsql.AnalyzeCells); err != nil {
		return 0, fmt.Errorf("analyze result cells: %w", err)
	}

	dur := time.Since(start)
	log.Info().Int64("cells", cells).Dur("duration", dur).Msg("run finalized")
	return dur, nil
}
