// ABOUTME: Record type and the value semantics used when rendering cells.
// ABOUTME: Truthiness and loose equality follow the JSON values the API returns.

package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Record is one row of a list or the data source of a form.
type Record map[string]any

// ID returns the record's identity value, or nil.
func (r Record) ID() any {
	if r == nil {
		return nil
	}
	return r["id"]
}

// IDString returns the identity formatted for URLs and form values.
func (r Record) IDString() string {
	id := r.ID()
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}

// Empty reports whether the record carries no keys at all.
func (r Record) Empty() bool {
	return len(r) == 0
}

// Truthy applies JavaScript truthiness: nil, false, zero, NaN and "" are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val != ""
		}
		return f != 0 && !math.IsNaN(f)
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ValuesEqual compares two option values without mutating either. Numbers compare
// numerically across representations, booleans count as 1 and 0, and anything
// else compares by its printed form.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, okA := Number(a)
	fb, okB := Number(b)
	if okA && okB {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Number converts numeric values, numeric strings and booleans to float64.
func Number(v any) (float64, bool) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return numeric(v)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
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
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
