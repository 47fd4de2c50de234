package store

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Value kinds in ascending sort order.
const (
	kindNull = iota
	kindBool
	kindNumber
	kindString
	kindOther
)

// sortRecords orders rows in place by the field named in sortField. A leading
// "-" sorts descending. The sort is stable: records with equal values keep
// insertion order in both directions.
func sortRecords(rows []types.Record, sortField string) {
	desc := strings.HasPrefix(sortField, "-")
	field := strings.TrimPrefix(sortField, "-")
	if field == "" {
		return
	}

	slices.SortStableFunc(rows, func(a, b types.Record) int {
		c := compareValues(a[field], b[field])
		if desc {
			return -c
		}
		return c
	})
}

// compareValues orders two JSON values: numbers numerically, strings
// lexicographically, false before true, null or missing first. Values of
// different kinds order by kind.
func compareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}

	switch ka {
	case kindNull:
		return 0
	case kindBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case kindNumber:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return cmp.Compare(af, bf)
	case kindString:
		return strings.Compare(a.(string), b.(string))
	default:
		// Composite values have no natural order; compare their encodings so
		// the result is at least deterministic.
		ae, _ := json.Marshal(a)
		be, _ := json.Marshal(b)
		return strings.Compare(string(ae), string(be))
	}
}

func kindOf(v any) int {
	if v == nil {
		return kindNull
	}
	if _, ok := toFloat(v); ok {
		return kindNumber
	}
	switch v.(type) {
	case bool:
		return kindBool
	case string:
		return kindString
	default:
		return kindOther
	}
}

// valuesEqual reports strict equality of two scalar values. Numbers compare
// by value regardless of Go type; maps and slices never match.
func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// toFloat converts the numeric types that can reach the store to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
