package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	CopyError       = 4
	ReportError     = 5
	NoData          = 6
	OutputError     = 7
)
