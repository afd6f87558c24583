// ABOUTME: Tests for the field adaptors.
// ABOUTME: Verifies both directions are total and shape values per field kind.

package adaptor

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/2389/basiclist/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage() *layout.PageData {
	return &layout.PageData{
		Layout: layout.PageLayout{
			Tabs: []layout.Tab{{
				Title: "Basic",
				Data: []layout.Field{
					{Key: "username", Title: "Username", Type: "text"},
					{Key: "create_time", Title: "Created", Type: "datetime"},
					{Key: "status", Title: "Status", Type: "switch"},
					{Key: "groups", Title: "Groups", Type: "tree"},
				},
			}},
		},
		DataSource: layout.Record{
			"id":          json.Number("7"),
			"username":    "alice",
			"create_time": "2024-03-01T10:20:30+00:00",
			"status":      json.Number("0"),
			"groups":      []any{json.Number("1"), json.Number("3")},
			"extra":       "kept",
		},
	}
}

func TestSetFields(t *testing.T) {
	values := SetFields(testPage(), time.UTC)

	assert.Equal(t, "alice", values["username"])
	assert.Equal(t, false, values["status"])
	assert.Equal(t, []string{"1", "3"}, values["groups"])
	assert.Equal(t, "kept", values["extra"])
	assert.Equal(t, json.Number("7"), values["id"])

	created, ok := values["create_time"].(time.Time)
	require.True(t, ok, "create_time should be a time.Time")
	assert.True(t, created.Equal(time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)))
}

func TestSetFieldsDropsUnparseableDatetime(t *testing.T) {
	page := testPage()
	page.DataSource["create_time"] = "not a date"

	values := SetFields(page, time.UTC)
	_, present := values["create_time"]
	assert.False(t, present)
}

func TestSetFieldsNilInput(t *testing.T) {
	values := SetFields(nil, nil)
	assert.NotNil(t, values)
	assert.Empty(t, values)

	values = SetFields(&layout.PageData{}, nil)
	assert.Empty(t, values)
}

func TestSubmitFields(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)
	out := SubmitFields(Values{
		"username":    "alice",
		"create_time": ts,
		"range":       []time.Time{ts, ts.Add(time.Hour)},
		"status":      true,
		"groups":      []string{"1", "3"},
		"empty":       nil,
		"zero_time":   time.Time{},
	})

	assert.Equal(t, "alice", out["username"])
	assert.Equal(t, "2024-03-01T10:20:30Z", out["create_time"])
	assert.Equal(t, []string{"2024-03-01T10:20:30Z", "2024-03-01T11:20:30Z"}, out["range"])
	assert.Equal(t, true, out["status"])
	assert.Equal(t, []string{"1", "3"}, out["groups"])
	assert.NotContains(t, out, "empty")
	assert.NotContains(t, out, "zero_time")
}

func TestSubmitFieldsNilInput(t *testing.T) {
	out := SubmitFields(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRoundTripThroughAdaptors(t *testing.T) {
	values := SetFields(testPage(), time.UTC)
	out := SubmitFields(values)
	assert.Equal(t, "2024-03-01T10:20:30Z", out["create_time"])
	assert.Equal(t, false, out["status"])
}

func TestDecodeForm(t *testing.T) {
	fields := testPage().Layout.FormFields()
	form := url.Values{
		"id":          {"7"},
		"username":    {"alice"},
		"create_time": {"2024-03-01T10:20"},
		"groups":      {"1", "", "3"},
		"uri":         {"/api/admins/7"},
	}

	values := DecodeForm(fields, form, time.UTC)

	assert.Equal(t, "7", values["id"])
	assert.Equal(t, "alice", values["username"])
	assert.Equal(t, false, values["status"], "absent checkbox means off")
	assert.Equal(t, []string{"1", "3"}, values["groups"])
	assert.NotContains(t, values, "uri")

	created := values["create_time"].(time.Time)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC), created)
}

func TestDecodeFormSwitchOn(t *testing.T) {
	fields := []layout.Field{{Key: "status", Type: "switch"}}
	values := DecodeForm(fields, url.Values{"status": {"on"}}, time.UTC)
	assert.Equal(t, true, values["status"])
}

func TestDecodeFormDatetimeInput(t *testing.T) {
	fields := []layout.Field{{Key: "create_time", Type: "datetime"}}

	values := DecodeForm(fields, url.Values{"create_time": {""}}, time.UTC)
	assert.Nil(t, values["create_time"])
	assert.Contains(t, values, "create_time")

	values = DecodeForm(fields, url.Values{"create_time": {"tomorrow"}}, time.UTC)
	assert.Equal(t, InvalidValue{Raw: "tomorrow"}, values["create_time"])
	assert.NotContains(t, SubmitFields(values), "create_time")
}

func TestDecodeFormNilInput(t *testing.T) {
	assert.Empty(t, DecodeForm(nil, nil, nil))
}

func TestDecodeSearch(t *testing.T) {
	fields := []layout.Field{
		{Key: "username", Type: "text"},
		{Key: "create_time", Type: "datetime"},
		{Key: "status", Type: "switch"},
		{Key: "actions", Type: "actions"},
	}
	form := url.Values{
		"id":               {" 5 "},
		"username":         {""},
		"create_time_from": {"2024-01-01"},
		"create_time_to":   {"2024-02-01"},
		"status":           {"1"},
	}

	values := DecodeSearch(fields, form, time.UTC)

	assert.Equal(t, "5", values["id"])
	assert.NotContains(t, values, "username")
	assert.Equal(t, "1", values["status"])
	rng := values["create_time"].([]time.Time)
	require.Len(t, rng, 2)
	assert.Equal(t, 2024, rng[0].Year())
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"rfc3339", "2024-03-01T10:20:30+08:00", true},
		{"space layout", "2024-03-01 10:20:30", true},
		{"date only", "2024-03-01", true},
		{"unix number", json.Number("1700000000"), true},
		{"unix int", 1700000000, true},
		{"empty", "", false},
		{"garbage", "yesterday", false},
		{"bool", true, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseTime(tt.in, time.UTC)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{}, Strings(nil))
	assert.Equal(t, []string{"a", "b"}, Strings("a, b,"))
	assert.Equal(t, []string{"1", "2"}, Strings([]any{1, nil, 2}))
	assert.Equal(t, []string{"5"}, Strings(5))
}

func TestValuesClone(t *testing.T) {
	orig := Values{"groups": []string{"1"}}
	clone := orig.Clone()
	clone["groups"].([]string)[0] = "2"
	assert.Equal(t, []string{"1"}, orig["groups"])
	assert.Equal(t, []string{"groups"}, orig.Keys())
}
