// ABOUTME: Request parsing helpers shared by the resource plugins.
// ABOUTME: Paging, comma separated filters, time ranges and destructive write bodies.

package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Paging defaults for list endpoints.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// WriteBody is the body of a delete, deletePermanently or restore request.
type WriteBody struct {
	Type string `json:"type"`
	IDs  []any  `json:"ids"`
}

// DecodeWriteBody reads a WriteBody and converts its ids.
func DecodeWriteBody(r *http.Request) (string, []int64, error) {
	var body WriteBody
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return "", nil, fmt.Errorf("invalid request body: %w", err)
	}
	ids, err := ParseIDs(body.IDs)
	if err != nil {
		return "", nil, err
	}
	if len(ids) == 0 {
		return "", nil, fmt.Errorf("ids must not be empty")
	}
	return body.Type, ids, nil
}

// ParseIDs converts numbers and numeric strings to ids.
func ParseIDs(raw []any) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := ParseID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseID converts one id value. Ids are positive.
func ParseID(v any) (int64, error) {
	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	case float64:
		text = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		text = strconv.Itoa(t)
	case int64:
		text = strconv.FormatInt(t, 10)
	default:
		return 0, fmt.Errorf("invalid id %v", v)
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", text)
	}
	return id, nil
}

// PageParams reads page and per_page, clamping them to sane values.
func PageParams(r *http.Request) (page, perPage int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// SortParams reads sort and order. order=desc (or descend) selects descending.
func SortParams(r *http.Request) (field string, desc bool) {
	q := r.URL.Query()
	order := strings.ToLower(q.Get("order"))
	return q.Get("sort"), order == "desc" || order == "descend"
}

// SplitList splits a comma separated filter value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseTimeRange reads "from,to" in RFC 3339. Either side may be empty.
func ParseTimeRange(v string) (from, to time.Time, err error) {
	if strings.TrimSpace(v) == "" {
		return from, to, nil
	}
	parts := strings.SplitN(v, ",", 2)
	parse := func(s string) (time.Time, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339, s)
	}
	if from, err = parse(parts[0]); err != nil {
		return from, to, fmt.Errorf("invalid range start: %w", err)
	}
	if len(parts) == 2 {
		if to, err = parse(parts[1]); err != nil {
			return from, to, fmt.Errorf("invalid range end: %w", err)
		}
	}
	return from, to, nil
}

// ParseBool accepts the switch encodings a client may send: true/false, 1/0
// and on/off. ok is false for anything else, including an empty value.
func ParseBool(v any) (value, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f != 0, err == nil
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "on", "yes":
			return true, true
		case "0", "false", "off", "no":
			return false, true
		}
	}
	return false, false
}
