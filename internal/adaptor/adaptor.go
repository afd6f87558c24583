// ABOUTME: Field adaptors between API record values and form working values.
// ABOUTME: Converts fetched records for form controls and form values back for writes.

package adaptor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/2389/basiclist/internal/layout"
)

// Values is the working representation of a form: datetimes are time.Time,
// switches are bool and tree selections are []string.
type Values map[string]any

// Clone returns a shallow copy with slices duplicated.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		switch s := val.(type) {
		case []string:
			out[k] = append([]string(nil), s...)
		case []time.Time:
			out[k] = append([]time.Time(nil), s...)
		default:
			out[k] = val
		}
	}
	return out
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InvalidValue marks user input that could not be parsed for its field kind.
// It never reaches a write payload.
type InvalidValue struct {
	Raw string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime interprets strings in the common API layouts and numbers as unix
// seconds. Strings without an offset are read in loc.
func ParseTime(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch val := v.(type) {
	case nil, bool:
		return time.Time{}, false
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, !val.IsZero()
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, l := range timeLayouts {
			if t, err := time.ParseInLocation(l, s, loc); err == nil {
				return t, true
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			return time.Unix(n, 0).In(loc), true
		}
		return time.Time{}, false
	case json.Number:
		return ParseTime(val.String(), loc)
	}
	if f, ok := layout.Number(v); ok && f > 0 {
		return time.Unix(int64(f), 0).In(loc), true
	}
	return time.Time{}, false
}

// Strings normalises a tree selection: lists keep their order, and a plain string
// is split on commas.
func Strings(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		out := []string{}
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

// SetFields maps a fetched form screen's data source into the shape its controls
// expect. Fields the layout does not declare are copied unchanged.
func SetFields(page *layout.PageData, loc *time.Location) Values {
	out := Values{}
	if page == nil {
		return out
	}
	for k, v := range page.DataSource {
		out[k] = v
	}
	for _, field := range page.Layout.FormFields() {
		raw, ok := page.DataSource[field.Key]
		if !ok {
			continue
		}
		switch field.Kind() {
		case layout.KindDatetime:
			if t, ok := ParseTime(raw, loc); ok {
				out[field.Key] = t
			} else {
				delete(out, field.Key)
			}
		case layout.KindSwitch:
			out[field.Key] = layout.Truthy(raw)
		case layout.KindTree:
			out[field.Key] = Strings(raw)
		case layout.KindText, layout.KindActions, layout.KindUnknown:
		}
	}
	return out
}

// SubmitFields maps form values into the payload the write endpoint expects.
func SubmitFields(values Values) map[string]any {
	out := map[string]any{}
	for k, v := range values {
		switch val := v.(type) {
		case nil, InvalidValue:
			continue
		case time.Time:
			if val.IsZero() {
				continue
			}
			out[k] = val.Format(time.RFC3339)
		case []time.Time:
			strs := make([]string, 0, len(val))
			for _, t := range val {
				strs = append(strs, t.Format(time.RFC3339))
			}
			out[k] = strs
		case []string:
			out[k] = append([]string{}, val...)
		default:
			out[k] = v
		}
	}
	return out
}

// DecodeForm reads an HTML form post into working values for the given fields.
// Keys not declared by a field are ignored, except id.
func DecodeForm(fields []layout.Field, form url.Values, loc *time.Location) Values {
	out := Values{}
	if form == nil {
		return out
	}
	if id := form.Get("id"); id != "" {
		out["id"] = id
	}
	for _, field := range fields {
		key := field.Key
		switch field.Kind() {
		case layout.KindText:
			if vals, ok := form[key]; ok && len(vals) > 0 {
				out[key] = vals[0]
			}
		case layout.KindDatetime:
			if _, ok := form[key]; !ok {
				continue
			}
			raw := strings.TrimSpace(form.Get(key))
			if raw == "" {
				out[key] = nil
			} else if t, ok := ParseTime(raw, loc); ok {
				out[key] = t
			} else {
				out[key] = InvalidValue{Raw: raw}
			}
		case layout.KindSwitch:
			out[key] = checked(form.Get(key))
		case layout.KindTree:
			out[key] = nonEmpty(form[key])
		case layout.KindActions, layout.KindUnknown:
		}
	}
	return out
}

// DecodeSearch reads the search panel post. Datetime fields are ranges posted
// as <key>_from and <key>_to; empty inputs are left out.
func DecodeSearch(fields []layout.Field, form url.Values, loc *time.Location) Values {
	out := Values{}
	if form == nil {
		return out
	}
	if id := strings.TrimSpace(form.Get("id")); id != "" {
		out["id"] = id
	}
	for _, field := range fields {
		key := field.Key
		switch field.Kind() {
		case layout.KindText:
			if s := strings.TrimSpace(form.Get(key)); s != "" {
				out[key] = s
			}
		case layout.KindDatetime:
			from, okFrom := ParseTime(form.Get(key+"_from"), loc)
			to, okTo := ParseTime(form.Get(key+"_to"), loc)
			if okFrom && okTo {
				out[key] = []time.Time{from, to}
			}
		case layout.KindSwitch:
			if s := form.Get(key); s != "" {
				out[key] = s
			}
		case layout.KindTree:
			if vals := nonEmpty(form[key]); len(vals) > 0 {
				out[key] = vals
			}
		case layout.KindActions, layout.KindUnknown:
		}
	}
	return out
}

func checked(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "1", "checked", "yes":
		return true
	}
	return false
}

func nonEmpty(vals []string) []string {
	out := []string{}
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
