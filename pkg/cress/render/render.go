// Package render turns query results into terminal tables, JSON or
// CSV.
//
// Example usage:
//
//	formatter := render.NewTableFormatter(os.Stdout)
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
package render

import (
	"fmt"
	"io"

	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/query"
)

// Formatter writes one query result in a specific format.
type Formatter interface {
	Format(result *query.Result) error
}

// New returns the formatter for a format name: table, json or csv.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "table", "":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// cellText renders one cell for tabular output.
func cellText(row *query.Row, column string) string {
	val, ok := row.Cells.Get(column)
	if !ok {
		return ""
	}
	return evaluator.DisplayString(val)
}
