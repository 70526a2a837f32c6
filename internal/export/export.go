// Package export loads Parquet snapshots into Postgres: preflight registers
// the run, stage COPYs the cells, finalize marks the run exported.
package export

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/pipeline"
)

// Phases of an export, as reported in pipeline.PhaseError.
const (
	PhasePreflight = "preflight"
	PhaseStage     = "stage"
	PhaseFinalize  = "finalize"
)

// Run statuses stored in perf.runs.
const (
	StatusPending  = "pending"
	StatusStaging  = "staging"
	StatusStaged   = "staged"
	StatusExported = "exported"
	StatusFailed   = "failed"
)

// Run exports the snapshot at path: preflight -> stage -> finalize.
// A snapshot whose run is already exported with the same SHA-256 is skipped
// unless force is set.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, path string, force bool) (*model.ExportSummary, error) {
	totalStart := time.Now()

	log.Info().Str("snapshot", path).Msg("starting preflight")
	pf, err := Preflight(ctx, pool, log, path, force)
	if err != nil {
		return nil, &pipeline.PhaseError{Phase: PhasePreflight, Err: err}
	}
	log = log.With().Str("snapshot_run_id", pf.RunID.String()).Logger()

	if pf.AlreadyLoaded {
		log.Info().
			Str("sha256", pf.SHA256).
			Msg("snapshot already exported, skipping (use --force to re-export)")
		return &model.ExportSummary{
			SnapshotPath:   pf.Path,
			SnapshotSHA256: pf.SHA256,
			RunID:          pf.RunID.String(),
			Report:         pf.Report,
			AlreadyLoaded:  true,
			DurationTotal:  time.Since(totalStart),
		}, nil
	}

	log.Info().Int64("cells", pf.NumCells).Msg("starting stage")
	if err := UpdateStatus(ctx, pool, pf.RunID, StatusStaging); err != nil {
		return nil, &pipeline.PhaseError{Phase: PhaseStage, Err: err}
	}
	stage, err := Stage(ctx, pool, log, pf)
	if err != nil {
		_ = UpdateStatus(ctx, pool, pf.RunID, StatusFailed)
		return nil, &pipeline.PhaseError{Phase: PhaseStage, Err: err}
	}
	if err := UpdateStatus(ctx, pool, pf.RunID, StatusStaged); err != nil {
		return nil, &pipeline.PhaseError{Phase: PhaseStage, Err: err}
	}

	if _, err := Finalize(ctx, pool, log, pf.RunID, stage.CellsCopied); err != nil {
		_ = UpdateStatus(ctx, pool, pf.RunID, StatusFailed)
		return nil, &pipeline.PhaseError{Phase: PhaseFinalize, Err: err}
	}

	summary := &model.ExportSummary{
		SnapshotPath:   pf.Path,
		SnapshotSHA256: pf.SHA256,
		RunID:          pf.RunID.String(),
		Report:         pf.Report,
		CellsRead:      stage.CellsRead,
		CellsCopied:    stage.CellsCopied,
		CellsRejected:  stage.CellsRejected,
		DurationCopy:   stage.Duration,
		DurationTotal:  time.Since(totalStart),
	}

	log.Info().
		Int64("cells_read", summary.CellsRead).
		Int64("cells_copied", summary.CellsCopied).
		Int64("cells_rejected", summary.CellsRejected).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("export complete")

	return summary, nil
}
