package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// IDField is the JSON field holding the entity identifier.
const IDField = "id"

// Entity is a single record within a Store.
type Entity struct {
	// ID is the unique identifier and the store key.
	ID int64
	// Fields contains the payload (arbitrary JSON) without the id.
	Fields map[string]any
}

// New creates an Entity. The fields map is copied and any "id" key is dropped.
func New(id int64, fields map[string]any) Entity {
	e := Entity{ID: id, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		if k == IDField {
			continue
		}
		e.Fields[k] = v
	}
	return e
}

// Clone returns a copy of the entity with its own top-level fields map.
func (e Entity) Clone() Entity {
	return New(e.ID, e.Fields)
}

// ToMap flattens the entity into a JSON-compatible map with id at the root.
func (e Entity) ToMap() map[string]any {
	result := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		result[k] = v
	}
	result[IDField] = e.ID
	return result
}

// MarshalJSON writes the entity as a flat JSON object.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// UnmarshalJSON reads a flat JSON object. The id field is required and must
// be an integral number.
func (e *Entity) UnmarshalJSON(data []byte) error {
	m, err := DecodeMap(data)
	if err != nil {
		return err
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// DecodeMap decodes a JSON object, keeping numbers as json.Number so that
// payload values round-trip exactly.
func DecodeMap(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, &ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	if m == nil {
		return nil, &ValidationError{Message: "body must be a JSON object"}
	}
	return m, nil
}

// FromMap creates an Entity from a flat map, extracting the id field.
func FromMap(m map[string]any) (Entity, error) {
	raw, ok := m[IDField]
	if !ok || raw == nil {
		return Entity{}, &ValidationError{Field: IDField, Message: "required"}
	}
	id, err := ParseID(raw)
	if err != nil {
		return Entity{}, &ValidationError{Field: IDField, Message: err.Error()}
	}
	return New(id, m), nil
}

// ParseID converts a decoded JSON, YAML or path value into an entity ID.
func ParseID(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		// Exact decimal parse; "3.0" and "1e3" are integers, 2^63 is not an int64.
		r, ok := new(big.Rat).SetString(n.String())
		if !ok || !r.IsInt() {
			return 0, fmt.Errorf("must be an integer, got %q", n.String())
		}
		if !r.Num().IsInt64() {
			return 0, fmt.Errorf("out of range: %s", n.String())
		}
		return r.Num().Int64(), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", n)
		}
		return i, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("out of range: %d", n)
		}
		return int64(n), nil
	case float64:
		return floatID(n)
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}

func floatID(f float64) (int64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, fmt.Errorf("must be an integer, got %v", f)
	}
	return int64(f), nil
}

// Page is the response envelope for collection queries.
type Page struct {
	// Items contains the entities on this page
	Items []Entity `json:"items"`
	// TotalCount is the number of entities matching the query before paging
	TotalCount int `json:"totalCount"`
	// Page is the 1-based page number
	Page int `json:"page"`
	// PageSize is the maximum number of items per page
	PageSize int `json:"pageSize"`
	// LastPage is the number of the final page (at least 1)
	LastPage int `json:"lastPage"`
}

// PageOf wraps a full collection in a single page, the way a list without
// paging parameters is returned.
func PageOf(items []Entity) *Page {
	if items == nil {
		items = []Entity{}
	}
	return &Page{
		Items:      items,
		TotalCount: len(items),
		Page:       1,
		PageSize:   len(items),
		LastPage:   1,
	}
}
