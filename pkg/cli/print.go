package cli

import (
	"io"

	"github.com/getmockd/entityd/pkg/cli/internal/output"
	"github.com/getmockd/entityd/pkg/entity"
)

// printResult outputs a single operation result.
//
// Contract: when --json is active, ONLY the JSON encoding of data is written
// to w. textFn is called only in text mode.
func printResult(w io.Writer, data any, textFn func() error) error {
	if jsonOutput {
		return output.JSON(w, data)
	}
	return textFn()
}

// printEntities writes entities as a table, or as JSON with --json.
func printEntities(w io.Writer, data any, items []entity.Entity) error {
	return printResult(w, data, func() error {
		rows := make([]map[string]any, len(items))
		for i, e := range items {
			rows[i] = e.ToMap()
		}
		return output.Records(w, rows)
	})
}
