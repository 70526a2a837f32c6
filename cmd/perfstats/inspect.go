package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/perfstats/internal/exitcode"
	"github.com/gyeh/perfstats/internal/pipeline"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.parquet>",
	Short: "Print the metadata and columns of a Parquet snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	log := setup()
	cfg.Snapshot = args[0]
	if err := cfg.ValidateSnapshot(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	env := pipeline.NewEnv(log, &cfg, os.Stdout)
	if err := pipeline.RunInspect(env, cfg.Snapshot); err != nil {
		log.Error().Err(err).Msg("inspect failed")
		os.Exit(exitcode.ValidationError)
	}
	return nil
}
