package model

// Format is the raw layout of a result file.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatLogText
	FormatCSV
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatLogText:
		return "log-text"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	}
	return "unknown"
}

// RawResultFile is a benchmark output file as produced by an external harness.
type RawResultFile struct {
	Path   string
	Format Format
}
