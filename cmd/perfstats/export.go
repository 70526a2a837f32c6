package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/perfstats/internal/db"
	"github.com/gyeh/perfstats/internal/exitcode"
	"github.com/gyeh/perfstats/internal/export"
	"github.com/gyeh/perfstats/internal/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load a Parquet snapshot into Postgres",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&cfg.Snapshot, "snapshot", "", "Path to a snapshot written with --snapshot (required)")
	f.BoolVar(&cfg.Force, "force", false, "Re-export even if the snapshot SHA already exists")
	_ = exportCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	summary, err := export.Run(ctx, pool, log, cfg.Snapshot, cfg.Force)
	if err != nil {
		var pe *pipeline.PhaseError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("export failed")
		} else {
			log.Error().Err(err).Msg("export failed")
		}
		pool.Close()
		os.Exit(exitCode(err))
	}

	if summary.AlreadyLoaded {
		fmt.Printf("Snapshot already exported (run %s), nothing to do\n", summary.RunID)
		return nil
	}
	fmt.Printf("Export complete: %d cells copied, %d rejected (%.1fs)\n",
		summary.CellsCopied, summary.CellsRejected, summary.DurationTotal.Seconds())
	return nil
}
