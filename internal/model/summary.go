package model

import "time"

// RunSummary captures metrics from a single report run.
type RunSummary struct {
	RunID          string
	Report         string
	ResultsDir     string
	FilesFound     int
	FilesParsed    int
	FilesSkipped   int
	RowsAggregated int
	Outputs        []string
	DurationParse  time.Duration
	DurationReport time.Duration
	DurationTotal  time.Duration
}

// ExportSummary captures metrics from loading one snapshot into Postgres.
type ExportSummary struct {
	SnapshotPath   string
	SnapshotSHA256 string
	RunID          string
	Report         string
	AlreadyLoaded  bool
	CellsRead      int64
	CellsCopied    int64
	CellsRejected  int64
	DurationCopy   time.Duration
	DurationTotal  time.Duration
}
