package model

// CellRow is one table cell in the long layout used by Parquet snapshots and
// the Postgres export. A table with R rows and C columns becomes R*C cells.
type CellRow struct {
	RunID    string   `parquet:"run_id"`
	Report   string   `parquet:"report"`
	RowIndex int64    `parquet:"row_index"`
	Source   string   `parquet:"source"`
	Column   string   `parquet:"column"`
	Role     string   `parquet:"role"`
	Kind     string   `parquet:"kind"`
	Num      *float64 `parquet:"num,optional"`
	Text     *string  `parquet:"text,optional"`
}

// CellColumns returns the ordered column names for COPY into perf.result_cells.
func CellColumns() []string {
	return []string{
		"run_id",
		"report",
		"row_index",
		"source",
		"column_name",
		"role",
		"kind",
		"num",
		"text",
	}
}

// CopyValues returns the cell values in the same order as CellColumns(),
// suitable for pgx CopyFromSource.
func (c *CellRow) CopyValues() []any {
	return []any{
		c.RunID,
		c.Report,
		c.RowIndex,
		c.Source,
		c.Column,
		c.Role,
		c.Kind,
		c.Num,
		c.Text,
	}
}
