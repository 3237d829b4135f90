package entity

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
)

// DefaultPageSize is used when a page number is given without a page size.
const DefaultPageSize = 20

// Reserved query parameter names. Any other parameter is an exact-match filter.
const (
	ParamPage     = "page"
	ParamPageSize = "pageSize"
	ParamSort     = "sort"
	ParamFilter   = "filter"
)

// SortField is one key of a sort specification.
type SortField struct {
	// Field is a top-level field name or a JSONPath starting with "$".
	Field string
	// Desc reverses the order for this key.
	Desc bool

	path jp.Expr
}

// Query selects, orders and pages entities. The zero value (or nil) selects
// the full collection in ID order as a single page.
type Query struct {
	// Page is the 1-based page number (0 means not paged)
	Page int
	// PageSize is the maximum items per page (0 means not paged)
	PageSize int
	// Sort lists the sort keys in priority order (default: id ascending)
	Sort []SortField
	// Filter is an expr-lang boolean expression over the entity's fields
	Filter string
	// Match contains exact-match filters by field name
	Match map[string]string

	program *vm.Program
}

// ParseQuery builds a Query from URL query parameters. pageSize is capped at
// maxPageSize when maxPageSize is positive.
func ParseQuery(values url.Values, maxPageSize int) (*Query, error) {
	q := &Query{Match: make(map[string]string)}

	if v := values.Get(ParamPage); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, &ValidationError{Field: ParamPage, Message: "must be a positive integer"}
		}
		q.Page = n
	}

	if v := values.Get(ParamPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, &ValidationError{Field: ParamPageSize, Message: "must be a positive integer"}
		}
		if maxPageSize > 0 && n > maxPageSize {
			n = maxPageSize
		}
		q.PageSize = n
	}

	if v := values.Get(ParamSort); v != "" {
		sort, err := ParseSort(v)
		if err != nil {
			return nil, err
		}
		q.Sort = sort
	}

	q.Filter = values.Get(ParamFilter)
	if err := q.compile(); err != nil {
		return nil, err
	}

	for key, vals := range values {
		switch key {
		case ParamPage, ParamPageSize, ParamSort, ParamFilter:
			continue
		}
		if len(vals) > 0 {
			q.Match[key] = vals[0]
		}
	}

	return q, nil
}

// ParseSort parses a comma-separated list of "field[:asc|:desc]" keys.
func ParseSort(s string) ([]SortField, error) {
	var fields []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		sf := SortField{Field: part}
		if i := strings.LastIndex(part, ":"); i > 0 {
			switch strings.ToLower(part[i+1:]) {
			case "asc":
				sf.Field = part[:i]
			case "desc":
				sf.Field = part[:i]
				sf.Desc = true
			}
		}

		if strings.HasPrefix(sf.Field, "$") {
			path, err := jp.ParseString(sf.Field)
			if err != nil {
				return nil, &ValidationError{Field: ParamSort, Message: fmt.Sprintf("invalid JSONPath %q: %v", sf.Field, err)}
			}
			sf.path = path
		}
		fields = append(fields, sf)
	}
	return fields, nil
}

func (q *Query) compile() error {
	if q.Filter == "" || q.program != nil {
		return nil
	}
	program, err := expr.Compile(q.Filter)
	if err != nil {
		return &ValidationError{Field: ParamFilter, Message: err.Error()}
	}
	q.program = program
	return nil
}

type queryRow struct {
	entity Entity
	env    map[string]any
}

// Apply filters, sorts and pages items.
func (q *Query) Apply(items []Entity) (*Page, error) {
	if q == nil {
		return PageOf(items), nil
	}
	if err := q.compile(); err != nil {
		return nil, err
	}

	rows := make([]queryRow, 0, len(items))
	for _, e := range items {
		env := Normalize(e.ToMap()).(map[string]any)

		ok, err := q.matches(env)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, queryRow{entity: e, env: env})
		}
	}

	if len(q.Sort) > 0 {
		slices.SortStableFunc(rows, func(a, b queryRow) int {
			for _, sf := range q.Sort {
				c := CompareValues(sf.value(a.env), sf.value(b.env))
				if sf.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return cmp.Compare(a.entity.ID, b.entity.ID)
		})
	}

	filtered := make([]Entity, len(rows))
	for i, row := range rows {
		filtered[i] = row.entity
	}
	return q.paginate(filtered), nil
}

func (q *Query) matches(env map[string]any) (bool, error) {
	for field, want := range q.Match {
		if fmt.Sprintf("%v", env[field]) != want {
			return false, nil
		}
	}

	if q.program == nil {
		return true, nil
	}
	out, err := expr.Run(q.program, env)
	if err != nil {
		return false, &ValidationError{Field: ParamFilter, Message: err.Error()}
	}
	b, ok := out.(bool)
	if !ok {
		return false, &ValidationError{Field: ParamFilter, Message: fmt.Sprintf("expression must evaluate to a boolean, got %T", out)}
	}
	return b, nil
}

func (q *Query) paginate(items []Entity) *Page {
	if q.Page <= 0 && q.PageSize <= 0 {
		return PageOf(items)
	}

	total := len(items)
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	lastPage := (total + size - 1) / size
	if lastPage < 1 {
		lastPage = 1
	}

	start := total
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := min(start+size, total)

	out := make([]Entity, end-start)
	copy(out, items[start:end])
	return &Page{
		Items:      out,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		LastPage:   lastPage,
	}
}

func (sf SortField) value(env map[string]any) any {
	if sf.path == nil {
		return env[sf.Field]
	}
	results := sf.path.Get(env)
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// CompareValues orders two decoded JSON values. nil sorts first, numbers
// compare numerically and anything else falls back to string comparison.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Normalize converts json.Number values (recursively) into int64 or float64
// so they can be used in expressions and comparisons.
func Normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}
