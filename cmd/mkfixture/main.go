// mkfixture writes a synthetic results tree in every input format the
// analyzer reads: UDP sender CSV or log files, remote runs, the gRPC suite's
// JSON results and its two `go test -v` logs.
// Usage: go run ./cmd/mkfixture --out testdata/results --remote --log-text
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gyeh/perfstats/internal/fixture"
)

func main() {
	opts := fixture.Default()
	out := flag.String("out", "testdata/results", "results root to create")
	flag.BoolVar(&opts.Remote, "remote", opts.Remote, "also write a remote_tests_* run")
	flag.BoolVar(&opts.LogText, "log-text", opts.LogText, "write UDP results as .log text instead of CSV")
	flag.BoolVar(&opts.Suite, "suite", opts.Suite, "write the gRPC suite's JSON results and logs")
	flag.IntVar(&opts.Samples, "samples", opts.Samples, "RTT samples per message size")
	stamp := flag.String("stamp", opts.Stamp.Format("20060102_150405"), "run directory timestamp (YYYYMMDD_HHMMSS)")
	flag.Parse()

	ts, err := time.Parse("20060102_150405", *stamp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --stamp: %v\n", err)
		os.Exit(1)
	}
	opts.Stamp = ts

	tree, err := fixture.Write(*out, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write fixture: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d files under %s\n", len(tree.Files), tree.Root)
	fmt.Printf("  local run:  %s\n", tree.LocalRun)
	if tree.RemoteRun != "" {
		fmt.Printf("  remote run: %s\n", tree.RemoteRun)
	}
}
