package types

import (
	"encoding/json"
	"maps"
)

// Reserved record fields.
const (
	FieldID          = "id"
	FieldCreatedAt   = "created_at"
	FieldCreatedDate = "created_date"
	FieldUserID      = "user_id"
)

// immutableFields cannot be changed once a record is stored.
var immutableFields = map[string]bool{
	FieldID:          true,
	FieldCreatedAt:   true,
	FieldCreatedDate: true,
}

// Record is a single stored entity: field name to JSON value.
type Record map[string]any

// ID returns the record's id, or "" when it is absent or not a string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Clone returns a shallow copy of the record. Nested maps and slices are
// shared; callers treat them as read-only.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Patch is an explicit set of field changes applied to a stored record.
// Only the fields present in the patch change; all others are retained.
type Patch struct {
	fields map[string]any
}

// NewPatch builds a patch from a field map.
func NewPatch(fields map[string]any) Patch {
	return Patch{fields: maps.Clone(fields)}
}

// Set returns a patch that additionally sets field to value.
func (p Patch) Set(field string, value any) Patch {
	next := maps.Clone(p.fields)
	if next == nil {
		next = make(map[string]any, 1)
	}
	next[field] = value
	return Patch{fields: next}
}

// Fields returns a copy of the fields carried by the patch.
func (p Patch) Fields() map[string]any {
	return maps.Clone(p.fields)
}

// Value returns the new value for field and whether the patch sets it.
func (p Patch) Value(field string) (any, bool) {
	v, ok := p.fields[field]
	return v, ok
}

// Len returns the number of fields in the patch.
func (p Patch) Len() int {
	return len(p.fields)
}

// Apply returns a copy of rec with the patch merged in. id, created_at and
// created_date keep their stored values.
func (p Patch) Apply(rec Record) Record {
	out := rec.Clone()
	if out == nil {
		out = make(Record, len(p.fields))
	}
	for k, v := range p.fields {
		if immutableFields[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// ParseMatchValue reads a value typed on a command line or in a query string
// for matching with DeleteBy. JSON numbers and booleans keep their type, so
// 3 matches the number 3 and true the boolean. A JSON string literal forces
// a string: "3" (with quotes) matches the string "3". Anything else,
// including null, objects and arrays, is matched as the raw text.
func ParseMatchValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case float64, bool, string:
		return v
	default:
		return raw
	}
}
