// ABOUTME: Tests for the schema-driven HTML renderer.
// ABOUTME: Checks cells, triggers, form and search controls, pagination and select boxes.

package admin

import (
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCell(t *testing.T) {
	tests := []struct {
		name    string
		cell    builder.Cell
		want    []string
		notWant []string
	}{
		{
			name: "text is escaped",
			cell: builder.TextCell{Text: "<b>bold</b>"},
			want: []string{"&lt;b&gt;bold&lt;/b&gt;"},
		},
		{
			name:    "badge on",
			cell:    builder.BadgeCell{Color: builder.BadgeOn, Label: "Enabled"},
			want:    []string{"bg-blue-100 text-blue-800", `data-color="blue"`, ">Enabled<"},
			notWant: []string{"bg-red-100"},
		},
		{
			name: "badge off",
			cell: builder.BadgeCell{Color: builder.BadgeOff, Label: "Disabled"},
			want: []string{"bg-red-100 text-red-800", `data-color="red"`},
		},
		{
			name: "row triggers post their position and the row id",
			cell: builder.ActionsCell{Triggers: []builder.Trigger{
				{Action: layout.Action{Title: "Edit", Action: "page"}},
				{Action: layout.Action{Title: "Delete", Action: "delete"}, Style: builder.StyleDanger, Disabled: true},
			}},
			want: []string{
				`action="/basic-list/admins/action"`,
				`<input type="hidden" name="id" value="7">`,
				`<input type="hidden" name="index" value="0">`,
				`<input type="hidden" name="index" value="1">`,
				`<input type="hidden" name="source" value="row">`,
				`data-action="delete" disabled>Delete</button>`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(RenderCell(tt.cell, "/basic-list/admins/action", "7"))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, got, nw)
			}
		})
	}
}

func TestRenderTriggerButton(t *testing.T) {
	got := RenderTriggerButton(builder.Trigger{
		Action: layout.Action{Title: "Submit", Action: "submit"},
		Style:  builder.StylePrimary,
	}, "action", "0:2")
	assert.Contains(t, got, `type="submit" name="action" value="0:2"`)
	assert.Contains(t, got, ">Submit</button>")
	assert.NotContains(t, got, "disabled")
}

func TestRenderFormItem(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name    string
		item    builder.FormItem
		values  adaptor.Values
		want    []string
		notWant []string
	}{
		{
			name:   "text",
			item:   builder.FormItem{Key: "username", Title: "Username", Widget: builder.TextInput{}},
			values: adaptor.Values{"username": `a"b`},
			want:   []string{`for="f-username">Username</label>`, `name="username" value="a&#34;b"`},
		},
		{
			name:   "disabled text is readonly",
			item:   builder.FormItem{Key: "path", Title: "Path", Widget: builder.TextInput{Disabled: true}},
			values: adaptor.Values{"path": "/api/admins"},
			want:   []string{`value="/api/admins" readonly`},
		},
		{
			name:   "datetime",
			item:   builder.FormItem{Key: "create_time", Title: "Create Time", Widget: builder.DateTimePicker{}},
			values: adaptor.Values{"create_time": time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)},
			want:   []string{`type="datetime-local" step="1" id="f-create_time" name="create_time" value="2024-06-01T09:30:00"`},
		},
		{
			name:   "invalid datetime keeps the raw text",
			item:   builder.FormItem{Key: "create_time", Title: "Create Time", Widget: builder.DateTimePicker{}},
			values: adaptor.Values{"create_time": adaptor.InvalidValue{Raw: "yesterday"}},
			want:   []string{`value="yesterday"`, "border-red-500", "Invalid date"},
		},
		{
			name:    "switch",
			item:    builder.FormItem{Key: "status", Title: "Status", Widget: builder.Switch{}},
			values:  adaptor.Values{"status": true},
			want:    []string{`name="status" value="1" checked`},
			notWant: []string{`type="hidden"`},
		},
		{
			name:   "disabled switch posts a hidden value",
			item:   builder.FormItem{Key: "status", Title: "Status", Widget: builder.Switch{Disabled: true}},
			values: adaptor.Values{"status": false},
			want:   []string{`<input type="hidden" name="status" value="0">`, `disabled class`},
		},
		{
			name: "tree",
			item: builder.FormItem{Key: "groups", Title: "Groups", Widget: builder.TreeSelect{Options: []layout.Option{
				{Value: 1, Title: "Ops", Children: []layout.Option{{Value: 2, Title: "On-call"}}},
				{Value: 3, Title: "Dev"},
			}}},
			values: adaptor.Values{"groups": []string{"2"}},
			want: []string{
				`name="groups" value="1" class`,
				`name="groups" value="2" checked`,
				`<div class="ml-5">`,
				">On-call</label>",
			},
		},
		{
			name: "disabled tree posts hidden values",
			item: builder.FormItem{Key: "groups", Title: "Groups", Widget: builder.TreeSelect{Disabled: true, Options: []layout.Option{
				{Value: 1, Title: "Ops"},
			}}},
			values: adaptor.Values{"groups": []any{1}},
			want:   []string{`<input type="hidden" name="groups" value="1">`, `disabled value="1" checked`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(RenderFormItem(tt.item, tt.values, loc))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, got, nw)
			}
		})
	}
}

func TestUntouchedDatetimeSubmitsUnchanged(t *testing.T) {
	field := layout.Field{Key: "create_time", Title: "Create Time", Type: "datetime"}
	page := &layout.PageData{
		Layout:     layout.PageLayout{Tabs: []layout.Tab{{Title: "Basic", Data: []layout.Field{field}}}},
		DataSource: layout.Record{"id": 1, "create_time": "2024-01-02T10:00:45Z"},
	}
	valueAttr := regexp.MustCompile(`name="create_time" value="([^"]*)"`)

	for _, loc := range []*time.Location{time.UTC, time.FixedZone("UTC+2", 2*3600)} {
		t.Run(loc.String(), func(t *testing.T) {
			values := adaptor.SetFields(page, loc)
			items := builder.FormItems(page.Layout.FormFields(), nil)
			require.Len(t, items, 1)

			m := valueAttr.FindStringSubmatch(string(RenderFormItem(items[0], values, loc)))
			require.Len(t, m, 2)

			decoded := adaptor.DecodeForm([]layout.Field{field}, url.Values{"create_time": {m[1]}}, loc)
			submitted, ok := adaptor.SubmitFields(decoded)["create_time"].(string)
			require.True(t, ok)

			got, err := time.Parse(time.RFC3339, submitted)
			require.NoError(t, err)
			assert.True(t, got.Equal(time.Date(2024, 1, 2, 10, 0, 45, 0, time.UTC)), "submitted %s", submitted)
		})
	}
}

func TestRenderSearchItem(t *testing.T) {
	loc := time.UTC

	got := string(RenderSearchItem(builder.IDSearchItem(), adaptor.Values{"id": "4"}, loc))
	assert.Contains(t, got, `type="number" name="id" value="4"`)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)
	got = string(RenderSearchItem(
		builder.SearchItem{Key: "create_time", Title: "Create Time", Widget: builder.RangePicker{}},
		adaptor.Values{"create_time": []time.Time{from, to}}, loc))
	assert.Contains(t, got, `name="create_time_from" value="2024-01-01T00:00:00"`)
	assert.Contains(t, got, `name="create_time_to" value="2024-01-31T23:59:00"`)

	got = string(RenderSearchItem(
		builder.SearchItem{Key: "status", Title: "Status", Widget: builder.Select{Options: []layout.Option{
			{Value: 1, Title: "Enabled"},
			{Value: 0, Title: "Disabled"},
		}}},
		adaptor.Values{"status": "0"}, loc))
	assert.Contains(t, got, `<option value="">Any</option>`)
	assert.Contains(t, got, `<option value="0" selected>Disabled</option>`)
	assert.Contains(t, got, `<option value="1">Enabled</option>`)
}

func TestRenderPagination(t *testing.T) {
	got := string(RenderPagination(layout.Meta{Total: 95, Page: 5, PerPage: 10}, "/basic-list/admins"))

	assert.Contains(t, got, "Total 95 items")
	assert.Contains(t, got, `aria-current="page">5</span>`)
	assert.Contains(t, got, `href="/basic-list/admins/paginate?page=4&amp;per_page=10"`)
	assert.Contains(t, got, `href="/basic-list/admins/paginate?page=6&amp;per_page=10"`)
	assert.Contains(t, got, `<option value="10" selected>10 / page</option>`)
	assert.Contains(t, got, `max="10"`)
	// window of three pages around the current one
	assert.Contains(t, got, ">2</a>")
	assert.Contains(t, got, ">8</a>")
	assert.NotContains(t, got, ">1</a>")
	assert.NotContains(t, got, ">9</a>")
}

func TestRenderPaginationEmpty(t *testing.T) {
	got := string(RenderPagination(layout.Meta{}, "/basic-list/logs"))
	assert.Contains(t, got, "Total 0 items")
	assert.Contains(t, got, `aria-current="page">1</span>`)
	assert.Equal(t, 0, strings.Count(got, "&lsaquo;")+strings.Count(got, "&rsaquo;"))
}

func TestRenderSelectBox(t *testing.T) {
	got := string(RenderSelectBox("/basic-list/admins", "3", true))
	assert.Contains(t, got, `name="ids" value="3" form="selection" checked`)
	assert.Contains(t, got, `hx-post="/basic-list/admins/select"`)

	got = string(RenderSelectBox("/basic-list/admins", "3", false))
	assert.NotContains(t, got, "checked")
}
