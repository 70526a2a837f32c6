package report

import (
	"io"
	"math"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// RenderTable writes rows as a bordered terminal table.
func RenderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)

	table.AppendBulk(rows)
	table.Render()
}

// RenderSummary writes a summary as a terminal table.
func RenderSummary(w io.Writer, s *Summary, places int) {
	RenderTable(w, s.Header(), s.Records(places))
}

// RenderComparison writes a comparison with each delta coloured green when
// the variant improved on the baseline and red when it degraded.
func RenderComparison(w io.Writer, c *Comparison) {
	rows := c.Records()
	for i, r := range c.Rows {
		rows[i][4] = colorDelta(r, rows[i][4])
	}
	RenderTable(w, c.Header(), rows)
}

func colorDelta(r ComparisonRow, text string) string {
	if color.NoColor || r.Delta == 0 || math.IsNaN(r.Delta) {
		return text
	}
	if r.Improved() {
		return color.GreenString(text)
	}
	return color.RedString(text)
}
