package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/perfstats/internal/config"
	"github.com/gyeh/perfstats/internal/exitcode"
	"github.com/gyeh/perfstats/internal/logging"
)

var (
	cfg        = config.Default()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "perfstats",
	Short: "Performance test result analyzer",
	Long: "Reads the result files of the reliable-UDP and gRPC benchmark suites, aggregates them " +
		"into tables and writes CSV summaries, charts, a markdown report and optional Parquet snapshots.",
	SilenceUsage: true,
}

func init() {
	// .env must be loaded before the flag defaults below read the environment.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.ResultsDir, "results-dir", envOr("PERFSTATS_RESULTS_DIR", cfg.ResultsDir), "Root directory of the result files (or set PERFSTATS_RESULTS_DIR)")
	pf.StringVar(&cfg.LogFormat, "log-format", envOr("PERFSTATS_LOG_FORMAT", cfg.LogFormat), "Log format: text or json")
	pf.StringVar(&configPath, "config", os.Getenv("PERFSTATS_CONFIG"), "Optional YAML config file")
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("PERFSTATS_DB_URL"), "Postgres connection string (or set PERFSTATS_DB_URL)")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// setup builds the logger, merges the config file and validates the result.
// Flags that override config file values are applied by the caller after it.
func setup() zerolog.Logger {
	log := logging.Setup(cfg.LogFormat)
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("config load failed")
			os.Exit(exitcode.UsageError)
		}
	}
	return log
}

func validate(log zerolog.Logger) {
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
}
