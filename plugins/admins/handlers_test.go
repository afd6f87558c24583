// ABOUTME: HTTP handler tests for the admins endpoints.
// ABOUTME: Drives the chi routes with an in-memory database and layout overrides.

package admins

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/internal/layoutfs"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestPlugin(t *testing.T) (*AdminsPlugin, http.Handler) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	plugin := &AdminsPlugin{}
	plugin.SetLogger(zapNop())
	if err := plugin.SetDB(db); err != nil {
		t.Fatalf("Failed to initialize plugin: %v", err)
	}
	r := chi.NewRouter()
	plugin.RegisterRoutes(r)
	return plugin, r
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHandleListEmpty(t *testing.T) {
	_, h := setupTestPlugin(t)

	w := doJSON(t, h, "GET", "/api/admins", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data, err := layout.DecodeList(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "Admins", data.Page.Title)
	assert.Empty(t, data.DataSource)
	assert.Equal(t, layout.Meta{Total: 0, Page: 1, PerPage: 10}, data.Meta)
	require.NotEmpty(t, data.Layout.TableColumn)
	assert.Equal(t, "actions", data.Layout.TableColumn[len(data.Layout.TableColumn)-1].Type)
	assert.NotEmpty(t, data.Layout.TableToolBar)
	assert.NotEmpty(t, data.Layout.BatchToolBar)
}

func TestHandleListRecordsAndFilters(t *testing.T) {
	p, h := setupTestPlugin(t)
	ctx := context.Background()
	g, _ := p.store.CreateGroup(ctx, "Editors", 0)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err := p.store.Create(ctx, AdminInput{Username: "alice", DisplayName: "Alice", Status: true, Groups: []int64{g}, CreateTime: created})
	require.NoError(t, err)
	_, err = p.store.Create(ctx, AdminInput{Username: "bob", DisplayName: "Bob"})
	require.NoError(t, err)

	w := doJSON(t, h, "GET", "/api/admins?status=1&per_page=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data, err := layout.DecodeList(w.Body)
	require.NoError(t, err)

	require.Len(t, data.DataSource, 1)
	rec := data.DataSource[0]
	assert.Equal(t, "1", rec.IDString())
	assert.Equal(t, "alice", rec["username"])
	assert.Equal(t, json.Number("1"), rec["status"])
	assert.Equal(t, "2024-01-02T03:04:05Z", rec["create_time"])
	assert.Equal(t, []any{json.Number("1")}, rec["groups"])
	assert.Equal(t, layout.Meta{Total: 1, Page: 1, PerPage: 5}, data.Meta)

	var tree *layout.Field
	for i, f := range data.Layout.TableColumn {
		if f.Key == "groups" {
			tree = &data.Layout.TableColumn[i]
		}
	}
	require.NotNil(t, tree)
	require.Len(t, tree.Data, 1)
	assert.Equal(t, "Editors", tree.Data[0].Title)
}

func TestHandleListBadFilter(t *testing.T) {
	_, h := setupTestPlugin(t)
	for _, target := range []string{
		"/api/admins?id=abc",
		"/api/admins?status=maybe",
		"/api/admins?create_time=yesterday,today",
		"/api/admins?groups=1,x",
	} {
		w := doJSON(t, h, "GET", target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestHandleListTrash(t *testing.T) {
	p, h := setupTestPlugin(t)
	id, _ := p.store.Create(context.Background(), AdminInput{Username: "gone", DisplayName: "Gone"})
	p.store.SoftDelete(context.Background(), []int64{id})

	w := doJSON(t, h, "GET", "/api/admins?trash=onlyTrashed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, err := layout.DecodeList(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "Admins Trash", data.Page.Title)
	require.Len(t, data.DataSource, 1)
	assert.NotEmpty(t, data.DataSource[0]["delete_time"])
	assert.Equal(t, "restore", data.Layout.BatchToolBar[0].Action)
}

func TestHandleAddAndEdit(t *testing.T) {
	p, h := setupTestPlugin(t)

	w := doJSON(t, h, "GET", "/api/admins/add", nil)
	require.Equal(t, http.StatusOK, w.Code)
	add, err := layout.DecodePage(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "Add Admin", add.Page.Title)
	assert.True(t, add.DataSource.Empty())
	submit := add.Layout.FirstActions()[2]
	assert.Equal(t, "/api/admins", submit.URI)
	assert.Equal(t, "post", submit.Method)

	id, _ := p.store.Create(context.Background(), AdminInput{Username: "alice", DisplayName: "Alice", Status: true})
	w = doJSON(t, h, "GET", "/api/admins/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	edit, err := layout.DecodePage(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "alice", edit.DataSource["username"])
	submit = edit.Layout.FirstActions()[2]
	assert.Equal(t, "/api/admins/1", submit.URI)
	assert.Equal(t, "put", submit.Method)
	assert.Equal(t, int64(1), id)

	w = doJSON(t, h, "GET", "/api/admins/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, h, "GET", "/api/admins/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreate(t *testing.T) {
	p, h := setupTestPlugin(t)
	g, _ := p.store.CreateGroup(context.Background(), "Editors", 0)

	w := doJSON(t, h, "POST", "/api/admins", map[string]any{
		"username":     "alice",
		"display_name": "Alice",
		"status":       true,
		"groups":       []string{"1"},
		"create_time":  "2024-01-02T03:04:05+02:00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Add successfully.", body["message"])

	a, err := p.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, a.Status)
	assert.Equal(t, []int64{g}, a.Groups)
	assert.True(t, a.CreateTime.Equal(time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)))

	w = doJSON(t, h, "POST", "/api/admins", map[string]any{"username": "alice", "display_name": "Dup"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username", decodeBody(t, w)["field"])
}

func TestHandleCreateValidation(t *testing.T) {
	_, h := setupTestPlugin(t)
	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing username", map[string]any{"display_name": "A"}, "username"},
		{"blank display name", map[string]any{"username": "a", "display_name": "  "}, "display_name"},
		{"bad status", map[string]any{"username": "a", "display_name": "A", "status": "sometimes"}, "status"},
		{"groups not a list", map[string]any{"username": "a", "display_name": "A", "groups": "1"}, "groups"},
		{"bad group id", map[string]any{"username": "a", "display_name": "A", "groups": []any{"x"}}, "groups"},
		{"bad create_time", map[string]any{"username": "a", "display_name": "A", "create_time": "soon"}, "create_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, "POST", "/api/admins", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			if got := decodeBody(t, w)["field"]; got != tt.field {
				t.Errorf("field = %v, want %s", got, tt.field)
			}
		})
	}

	req := httptest.NewRequest("POST", "/api/admins", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
}

func TestHandleUpdate(t *testing.T) {
	p, h := setupTestPlugin(t)
	id, _ := p.store.Create(context.Background(), AdminInput{Username: "alice", DisplayName: "Alice", Status: true})

	w := doJSON(t, h, "PUT", "/api/admins/1", map[string]any{"username": "alice", "display_name": "Alice B", "status": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Edit successfully.", decodeBody(t, w)["message"])

	a, err := p.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", a.DisplayName)
	assert.False(t, a.Status)

	w = doJSON(t, h, "PUT", "/api/admins/42", map[string]any{"username": "x", "display_name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteAndRestore(t *testing.T) {
	p, h := setupTestPlugin(t)
	ctx := context.Background()
	a, _ := p.store.Create(ctx, AdminInput{Username: "a", DisplayName: "A"})
	b, _ := p.store.Create(ctx, AdminInput{Username: "b", DisplayName: "B"})

	w := doJSON(t, h, "POST", "/api/admins/delete", map[string]any{"type": "delete", "ids": []any{a, "2"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Delete successfully.", decodeBody(t, w)["message"])
	trashed, _, _ := p.store.List(ctx, ListQuery{Trash: OnlyTrashed})
	assert.Len(t, trashed, 2)

	w = doJSON(t, h, "POST", "/api/admins/restore", map[string]any{"type": "restore", "ids": []any{a}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Restore successfully.", decodeBody(t, w)["message"])
	_, err := p.store.Get(ctx, a)
	assert.NoError(t, err)

	w = doJSON(t, h, "POST", "/api/admins/delete", map[string]any{"type": "deletePermanently", "ids": []any{b}})
	require.Equal(t, http.StatusOK, w.Code)
	all, _, _ := p.store.List(ctx, ListQuery{Trash: WithTrashed})
	assert.Len(t, all, 1)

	w = doJSON(t, h, "POST", "/api/admins/delete", map[string]any{"type": "shred", "ids": []any{a}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, h, "POST", "/api/admins/delete", map[string]any{"type": "delete", "ids": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlersWithoutStore(t *testing.T) {
	p := &AdminsPlugin{}
	p.SetLogger(zapNop())
	r := chi.NewRouter()
	p.RegisterRoutes(r)

	w := doJSON(t, r, "GET", "/api/admins", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unavailable", p.Health().Status)
}

func TestLayoutOverride(t *testing.T) {
	dir := t.TempDir()
	override := layout.PageLayout{
		TableColumn: []layout.Field{{Key: "username", Title: "Login", Type: "text"}},
	}
	raw, _ := json.Marshal(override)
	require.NoError(t, os.WriteFile(filepath.Join(dir, LayoutList+".json"), raw, 0o644))
	layouts, err := layoutfs.Open(dir)
	require.NoError(t, err)

	p, h := setupTestPlugin(t)
	p.SetLayouts(layouts)

	w := doJSON(t, h, "GET", "/api/admins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, err := layout.DecodeList(w.Body)
	require.NoError(t, err)
	require.Len(t, data.Layout.TableColumn, 1)
	assert.Equal(t, "Login", data.Layout.TableColumn[0].Title)
}
