package render

import (
	"encoding/csv"
	"io"

	"github.com/sambeau/cress/pkg/cress/query"
)

// CSVFormatter outputs rows as CSV with a header row. Grouping adds a
// leading column holding the group label; summaries are a table
// concern and are not written.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// Format writes the result as CSV.
func (c *CSVFormatter) Format(result *query.Result) error {
	csvWriter := csv.NewWriter(c.writer)
	defer csvWriter.Flush()

	grouped := len(result.Groups) > 0
	header := result.Columns
	if grouped {
		header = append([]string{"group"}, header...)
	}
	if err := csvWriter.Write(header); err != nil {
		return err
	}

	writeRow := func(prefix []string, row *query.Row) error {
		record := append([]string{}, prefix...)
		for _, col := range result.Columns {
			record = append(record, cellText(row, col))
		}
		return csvWriter.Write(record)
	}

	if grouped {
		for _, group := range result.Groups {
			for _, row := range group.Rows {
				if err := writeRow([]string{group.Label}, row); err != nil {
					return err
				}
			}
		}
	} else {
		for _, row := range result.Rows {
			if err := writeRow(nil, row); err != nil {
				return err
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
