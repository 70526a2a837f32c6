package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
	"github.com/gyeh/perfstats/internal/parquetio"
	embedsql "github.com/gyeh/perfstats/internal/sql"
)

// PreflightResult holds what preflight learned about the snapshot.
type PreflightResult struct {
	Path   string
	SHA256 string
	Size   int64
	// RunID and Report come from the snapshot's first cell.
	RunID  uuid.UUID
	Report string
	// NumCells is the cell count from the Parquet footer.
	NumCells int64
	// AlreadyLoaded is set when perf.runs holds this run with the same
	// SHA-256 in status exported and force is off.
	AlreadyLoaded bool
}

// Preflight hashes and validates the snapshot, then registers its run.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, path string, force bool) (*PreflightResult, error) {
	start := time.Now()

	sha, err := normalize.FileHash(path)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("preflight stat: %w", err)
	}

	reader, err := parquetio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	defer reader.Close()

	first := make([]model.CellRow, 1)
	n, err := reader.Read(first)
	if n == 0 {
		if err == nil {
			err = errors.New("no cells")
		}
		return nil, fmt.Errorf("preflight read first cell: %w", err)
	}
	runID, err := uuid.Parse(first[0].RunID)
	if err != nil {
		return nil, fmt.Errorf("preflight run id %q: %w", first[0].RunID, err)
	}

	pf := &PreflightResult{
		Path:     path,
		SHA256:   sha,
		Size:     stat.Size(),
		RunID:    runID,
		Report:   first[0].Report,
		NumCells: reader.NumRows(),
	}

	log.Info().
		Str("file", filepath.Base(path)).
		Str("sha256", sha).
		Str("report", pf.Report).
		Int64("cells", pf.NumCells).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	pf.AlreadyLoaded, err = registerRun(ctx, pool, log, pf, force)
	if err != nil {
		return nil, fmt.Errorf("preflight register run: %w", err)
	}
	return pf, nil
}

// registerRun inserts the run, or resets an existing one for re-export.
func registerRun(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult, force bool) (bool, error) {
	name := filepath.Base(pf.Path)
	var id uuid.UUID
	err := pool.QueryRow(ctx, embedsql.RegisterRun, pf.RunID, pf.Report, name, pf.SHA256, pf.Size).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("register run: %w", err)
	}

	var sha, status string
	if err := pool.QueryRow(ctx, embedsql.LookupRun, pf.RunID).Scan(&sha, &status); err != nil {
		return false, fmt.Errorf("lookup existing run: %w", err)
	}
	if !force && sha == pf.SHA256 && status == StatusExported {
		return true, nil
	}

	log.Info().
		Str("previous_sha256", sha).
		Str("previous_status", status).
		Msg("resetting run for re-export")
	if _, err := pool.Exec(ctx, embedsql.ResetRun, pf.RunID, name, pf.SHA256, pf.Size); err != nil {
		return false, fmt.Errorf("reset run: %w", err)
	}
	tag, err := pool.Exec(ctx, embedsql.DeleteRunCells, pf.RunID)
	if err != nil {
		return false, fmt.Errorf("delete previous cells: %w", err)
	}
	log.Info().Int64("cells_deleted", tag.RowsAffected()).Msg("previous cells removed")
	return false, nil
}
