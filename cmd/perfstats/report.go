package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/perfstats/internal/exitcode"
	"github.com/gyeh/perfstats/internal/export"
	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/pipeline"
	"github.com/gyeh/perfstats/internal/table"
)

// reportFlags are the per-command overrides of report commands.
type reportFlags struct {
	out      bool // --out
	snapshot bool // --snapshot
	plots    bool // --no-plots
	pps      bool // --pps
	compare  bool // --baseline, --variant
}

var (
	noPlots          bool
	packetsPerSecond float64
	baseline         string
	variant          string
)

type runner func(*pipeline.Env) (*model.RunSummary, error)

func reportCmd(use, short string, run runner, flags reportFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, run)
		},
	}
	f := cmd.Flags()
	if flags.out {
		f.StringVar(&cfg.OutDir, "out", "", "Write outputs here instead of next to the inputs")
	}
	if flags.snapshot {
		f.StringVar(&cfg.Snapshot, "snapshot", "", "Also write the aggregated table as a Parquet snapshot")
	}
	if flags.plots {
		f.BoolVar(&noPlots, "no-plots", false, "Skip chart rendering")
	}
	if flags.pps {
		f.Float64Var(&packetsPerSecond, "pps", cfg.PacketsPerSecond, "Packets per second of the theoretical bandwidth model")
	}
	if flags.compare {
		f.StringVar(&baseline, "baseline", cfg.Baseline, "Baseline group name")
		f.StringVar(&variant, "variant", cfg.Variant, "Variant group name")
	}
	return cmd
}

func init() {
	all := reportFlags{out: true, snapshot: true, plots: true}
	rootCmd.AddCommand(
		reportCmd("analyze", "Analyze the latest optimization_tests_* run (UDP sender results)", pipeline.RunUDP, all),
		reportCmd("comprehensive", "Local vs remote UDP report with markdown summary", pipeline.RunComprehensive,
			reportFlags{out: true, snapshot: true, plots: true, pps: true}),
		reportCmd("suite", "Analyze the gRPC suite's JSON results (rtt, bandwidth, marshal)", pipeline.RunSuite, all),
		reportCmd("convert", "Convert the gRPC suite's JSON results to timestamped CSVs", pipeline.RunConvert,
			reportFlags{out: true}),
		reportCmd("compare", "Compare unoptimized and optimized suite logs", pipeline.RunCompare,
			reportFlags{out: true, snapshot: true, plots: true, compare: true}),
		reportCmd("plan", "Dry run: list result files, formats and parse outcomes (no writes)", pipeline.RunPlan,
			reportFlags{}),
	)
}

func runReport(cmd *cobra.Command, run runner) error {
	log := setup()
	f := cmd.Flags()
	if noPlots {
		cfg.Plots = false
	}
	if f.Changed("pps") {
		cfg.PacketsPerSecond = packetsPerSecond
	}
	if f.Changed("baseline") {
		cfg.Baseline = baseline
	}
	if f.Changed("variant") {
		cfg.Variant = variant
	}
	validate(log)

	env := pipeline.NewEnv(log, &cfg, os.Stdout)
	summary, err := run(env)
	if err != nil {
		if pipeline.IsNoInput(err) {
			fmt.Println(noInputGuidance(err))
			os.Exit(exitcode.Success)
		}
		var pe *pipeline.PhaseError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg(cmd.Name() + " failed")
		} else {
			log.Error().Err(err).Msg(cmd.Name() + " failed")
		}
		os.Exit(exitCode(err))
	}

	if cmd.Name() != "plan" {
		fmt.Printf("\n%s complete: %d files parsed, %d skipped, %d outputs (%.1fs)\n",
			cmd.Name(), summary.FilesParsed, summary.FilesSkipped, len(summary.Outputs), summary.DurationTotal.Seconds())
		for _, out := range summary.Outputs {
			fmt.Printf("  %s\n", out)
		}
	}
	return nil
}

// exitCode maps a runner or export error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil, pipeline.IsNoInput(err):
		return exitcode.Success
	case errors.Is(err, table.ErrNoData):
		return exitcode.NoData
	}
	var pe *pipeline.PhaseError
	if !errors.As(err, &pe) {
		return exitcode.ReportError
	}
	switch pe.Phase {
	case pipeline.PhaseLocate, pipeline.PhaseParse, export.PhasePreflight:
		return exitcode.ValidationError
	case pipeline.PhaseWrite, pipeline.PhaseSnapshot:
		return exitcode.OutputError
	case pipeline.PhaseExport, export.PhaseStage, export.PhaseFinalize:
		return exitcode.CopyError
	default:
		return exitcode.ReportError
	}
}

func noInputGuidance(err error) string {
	return fmt.Sprintf("Nothing to analyze: %v\n"+
		"Run the benchmark suite first so it writes its results under %s, or point --results-dir at them.",
		errors.Unwrap(err), cfg.ResultsDir)
}
