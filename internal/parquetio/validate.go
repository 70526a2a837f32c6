package parquetio

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// snapshotColumns are the parquet column names every snapshot carries.
var snapshotColumns = []string{"run_id", "report", "row_index", "source", "column", "role", "kind", "num", "text"}

// ValidateSchema checks that the Parquet schema has every snapshot column.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	var missing []string
	for _, col := range snapshotColumns {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a perfstats snapshot; missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
