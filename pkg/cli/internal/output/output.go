// Package output provides common output formatting utilities.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// JSON writes indented JSON to w.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table creates an aligned table writer for w.
// Remember to call Flush() when done writing.
func Table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Warn prints a warning message to w.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "Warning: "+format+"\n", args...)
}

// Columns returns the union of keys across rows with "id" first and the rest
// sorted.
func Columns(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var rest []string
	for _, row := range rows {
		for k := range row {
			if k == "id" || seen[k] {
				continue
			}
			seen[k] = true
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append([]string{"id"}, rest...)
}

// Records writes rows as an aligned table with title-cased headers. Missing
// values are shown as "-".
func Records(w io.Writer, rows []map[string]any) error {
	cols := Columns(rows)
	title := cases.Title(language.English, cases.NoLower)

	tw := Table(w)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = title.String(c)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = Cell(row[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Cell renders one value for a table: scalars as text, nested values as
// compact JSON.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
