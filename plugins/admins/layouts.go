// ABOUTME: Default screen layouts for the admins resource.
// ABOUTME: Each layout can be replaced by a JSON file in the layouts directory.

package admins

import (
	"strconv"
	"strings"

	"github.com/2389/basiclist/internal/layout"
)

// Layout override names, matching <name>.json in the layouts directory.
const (
	LayoutList  = "admins.list"
	LayoutTrash = "admins.trash"
	LayoutAdd   = "admins.add"
	LayoutEdit  = "admins.edit"
)

var statusOptions = []layout.Option{
	{Value: 1, Title: "Enabled"},
	{Value: 0, Title: "Disabled"},
}

func columns(rowActions []layout.Action) []layout.Field {
	return []layout.Field{
		{Key: "username", Title: "Username", Type: "text"},
		{Key: "display_name", Title: "Display Name", Type: "text"},
		{Key: "groups", Title: "Groups", Type: "tree", HideInColumn: true},
		{Key: "create_time", Title: "Create Time", Type: "datetime"},
		{Key: "update_time", Title: "Update Time", Type: "datetime"},
		{Key: "status", Title: "Status", Type: "switch", Data: statusOptions},
		{Key: "actions", Title: "Actions", Type: "actions", Actions: rowActions},
	}
}

func defaultListLayout() layout.PageLayout {
	return layout.PageLayout{
		TableColumn: columns([]layout.Action{
			{Title: "Edit", Action: "modal", URI: "/api/admins/:id"},
			{Title: "Edit in Page", Action: "page", URI: "/api/admins/:id"},
			{Title: "Delete", Action: "delete", URI: "/api/admins/delete", Method: "post"},
		}),
		TableToolBar: []layout.Action{
			{Title: "Add", Action: "modal", URI: "/api/admins/add"},
			{Title: "Add in Page", Action: "page", URI: "/api/admins/add"},
			{Title: "Reload", Action: "reload"},
		},
		BatchToolBar: []layout.Action{
			{Title: "Delete", Action: "delete", URI: "/api/admins/delete", Method: "post"},
			{Title: "Delete Permanently", Action: "deletePermanently", URI: "/api/admins/delete", Method: "post"},
		},
	}
}

func defaultTrashLayout() layout.PageLayout {
	return layout.PageLayout{
		TableColumn: columns([]layout.Action{
			{Title: "Restore", Action: "restore", URI: "/api/admins/restore", Method: "post"},
			{Title: "Delete Permanently", Action: "deletePermanently", URI: "/api/admins/delete", Method: "post"},
		}),
		TableToolBar: []layout.Action{
			{Title: "Reload", Action: "reload"},
		},
		BatchToolBar: []layout.Action{
			{Title: "Restore", Action: "restore", URI: "/api/admins/restore", Method: "post"},
			{Title: "Delete Permanently", Action: "deletePermanently", URI: "/api/admins/delete", Method: "post"},
		},
	}
}

// defaultFormLayout is shared by add and edit; only the submit target differs.
func defaultFormLayout(submitURI, method string) layout.PageLayout {
	return layout.PageLayout{
		Tabs: []layout.Tab{
			{Title: "Basic", Data: []layout.Field{
				{Key: "username", Title: "Username", Type: "text"},
				{Key: "display_name", Title: "Display Name", Type: "text"},
				{Key: "groups", Title: "Groups", Type: "tree"},
				{Key: "status", Title: "Status", Type: "switch", Data: statusOptions},
			}},
			{Title: "Dates", Data: []layout.Field{
				{Key: "create_time", Title: "Create Time", Type: "datetime"},
				{Key: "update_time", Title: "Update Time", Type: "datetime"},
			}},
		},
		Actions: []layout.ActionGroup{
			{Title: "Actions", Data: []layout.Action{
				{Title: "Reset", Action: "reset"},
				{Title: "Cancel", Action: "cancel"},
				{Title: "Submit", Action: "submit", URI: submitURI, Method: method},
			}},
		},
	}
}

// groupTree nests groups under their parents. Orphans become roots.
func groupTree(groups []Group) []layout.Option {
	children := map[int64][]Group{}
	known := map[int64]bool{}
	for _, g := range groups {
		known[g.ID] = true
	}
	for _, g := range groups {
		parent := g.ParentID
		if !known[parent] {
			parent = 0
		}
		children[parent] = append(children[parent], g)
	}
	var build func(parent int64, depth int) []layout.Option
	build = func(parent int64, depth int) []layout.Option {
		if depth > len(groups) {
			return nil
		}
		var opts []layout.Option
		for _, g := range children[parent] {
			if g.ID == parent {
				continue
			}
			opts = append(opts, layout.Option{Value: g.ID, Title: g.Name, Children: build(g.ID, depth+1)})
		}
		return opts
	}
	return build(0, 0)
}

// decorate fills empty tree option sets with the group tree and binds :id in
// action URIs, so overrides can leave both out.
func decorate(l layout.PageLayout, groups []layout.Option, id int64) layout.PageLayout {
	idText := strconv.FormatInt(id, 10)
	fill := func(fields []layout.Field) []layout.Field {
		out := make([]layout.Field, len(fields))
		for i, f := range fields {
			if f.Kind() == layout.KindTree && len(f.Data) == 0 {
				f.Data = groups
			}
			out[i] = f
		}
		return out
	}
	l.TableColumn = fill(l.TableColumn)
	tabs := make([]layout.Tab, len(l.Tabs))
	for i, t := range l.Tabs {
		tabs[i] = layout.Tab{Title: t.Title, Data: fill(t.Data)}
	}
	l.Tabs = tabs
	if id > 0 {
		groupsOut := make([]layout.ActionGroup, len(l.Actions))
		for i, g := range l.Actions {
			acts := make([]layout.Action, len(g.Data))
			for j, a := range g.Data {
				a.URI = strings.ReplaceAll(a.URI, ":id", idText)
				acts[j] = a
			}
			groupsOut[i] = layout.ActionGroup{Title: g.Title, Data: acts}
		}
		l.Actions = groupsOut
	}
	return l
}
