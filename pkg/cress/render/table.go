package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/query"
)

// TableFormatter renders results as bordered terminal tables. Grouped
// views render one table per bucket with the group label above it.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Format writes the result as one or more tables.
func (t *TableFormatter) Format(result *query.Result) error {
	if len(result.Groups) > 0 {
		for i, group := range result.Groups {
			if i > 0 {
				fmt.Fprintln(t.writer)
			}
			label := group.Label
			if label == "" {
				label = "(none)"
			}
			fmt.Fprintln(t.writer, label)
			t.writeTable(result, group.Rows, i == len(result.Groups)-1)
		}
		return nil
	}
	t.writeTable(result, result.Rows, true)
	return nil
}

func (t *TableFormatter) writeTable(result *query.Result, rows []*query.Row, last bool) {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(result.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = cellText(row, col)
		}
		table.Append(cells)
	}

	// The summary row belongs to the whole result, so it closes only
	// the final table of a grouped view.
	if last && len(result.Summaries.Keys) > 0 {
		footer := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			if val, ok := result.Summaries.Get(col); ok {
				footer[i] = evaluator.DisplayString(val)
			}
		}
		table.SetFooter(footer)
	}

	table.Render()
}
