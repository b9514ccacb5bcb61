package render

import (
	"encoding/json"
	"io"

	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/query"
)

// JSONFormatter outputs the whole result as one JSON document.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

type jsonGroup struct {
	Key  any              `json:"key"`
	Rows []map[string]any `json:"rows"`
}

type jsonResult struct {
	View        string           `json:"view"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows,omitempty"`
	Groups      []jsonGroup      `json:"groups,omitempty"`
	Summaries   map[string]any   `json:"summaries,omitempty"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
}

// Format writes the result as an indented JSON document.
func (j *JSONFormatter) Format(result *query.Result) error {
	out := jsonResult{
		View:        result.View,
		Columns:     result.Columns,
		Diagnostics: result.Diagnostics,
	}
	if len(result.Groups) > 0 {
		for _, g := range result.Groups {
			out.Groups = append(out.Groups, jsonGroup{
				Key:  jsonValue(g.Key),
				Rows: jsonRows(g.Rows),
			})
		}
	} else {
		out.Rows = jsonRows(result.Rows)
	}
	if len(result.Summaries.Keys) > 0 {
		out.Summaries = map[string]any{}
		for _, key := range result.Summaries.Keys {
			val, _ := result.Summaries.Get(key)
			out.Summaries[key] = jsonValue(val)
		}
	}

	encoder := json.NewEncoder(j.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func jsonRows(rows []*query.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := map[string]any{}
		for _, key := range row.Cells.Keys {
			val, _ := row.Cells.Get(key)
			m[key] = jsonValue(val)
		}
		out = append(out, m)
	}
	return out
}

// jsonValue converts a dynamic value to its plain Go shape.
func jsonValue(obj evaluator.Object) any {
	switch val := obj.(type) {
	case nil, *evaluator.Null:
		return nil
	case *evaluator.Boolean:
		return val.Value
	case *evaluator.Number:
		return val.Value
	case *evaluator.String:
		return val.Value
	case *evaluator.Datetime:
		return val.Time.Format("2006-01-02T15:04:05")
	case *evaluator.List:
		elems := make([]any, 0, len(val.Elements))
		for _, e := range val.Elements {
			elems = append(elems, jsonValue(e))
		}
		return elems
	case *evaluator.Record:
		m := map[string]any{}
		for _, key := range val.Keys {
			v, _ := val.Get(key)
			m[key] = jsonValue(v)
		}
		return m
	case *evaluator.File:
		return val.Path
	}
	return evaluator.DisplayString(obj)
}
