// ABOUTME: HTTP handlers for the admins resource.
// ABOUTME: Serves list and form layouts with their data, and the write endpoints.

package admins

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/2389/basiclist/internal/errors"
	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/plugins/core"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (p *AdminsPlugin) handleList(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}

	q, err := listQuery(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, err.Error())
		return
	}

	admins, total, err := p.store.List(r.Context(), q)
	if err != nil {
		p.log.Error("list admins", zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to list admins")
		return
	}
	groups, err := p.groupOptions(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to list groups")
		return
	}

	title, name, def := "Admins", LayoutList, defaultListLayout()
	if q.Trash == OnlyTrashed {
		title, name, def = "Admins Trash", LayoutTrash, defaultTrashLayout()
	}

	records := make([]layout.Record, 0, len(admins))
	for _, a := range admins {
		records = append(records, toRecord(a))
	}
	apierrors.WriteData(w, layout.ListData{
		Page:       &layout.PageInfo{Title: title, Type: "basicList"},
		Layout:     decorate(p.layouts.Resolve(name, def), groups, 0),
		DataSource: records,
		Meta:       layout.Meta{Total: total, Page: q.Page, PerPage: q.PerPage},
	})
}

func (p *AdminsPlugin) handleAdd(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	groups, err := p.groupOptions(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to list groups")
		return
	}
	apierrors.WriteData(w, layout.PageData{
		Page:       layout.PageInfo{Title: "Add Admin", Type: "page"},
		Layout:     decorate(p.layouts.Resolve(LayoutAdd, defaultFormLayout("/api/admins", "post")), groups, 0),
		DataSource: layout.Record{},
	})
}

func (p *AdminsPlugin) handleEdit(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	admin, err := p.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, fmt.Sprintf("admin %d not found", id))
		return
	}
	if err != nil {
		p.log.Error("get admin", zap.Int64("id", id), zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to load admin")
		return
	}
	groups, err := p.groupOptions(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to list groups")
		return
	}
	apierrors.WriteData(w, layout.PageData{
		Page:       layout.PageInfo{Title: "Edit Admin", Type: "page"},
		Layout:     decorate(p.layouts.Resolve(LayoutEdit, defaultFormLayout("/api/admins/:id", "put")), groups, id),
		DataSource: toRecord(*admin),
	})
}

func (p *AdminsPlugin) handleCreate(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	id, err := p.store.Create(r.Context(), in)
	if errors.Is(err, ErrDuplicateUsername) {
		apierrors.WriteErrorWithField(w, http.StatusConflict, apierrors.ErrConflict, err.Error(), "username")
		return
	}
	if err != nil {
		p.log.Error("create admin", zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to create admin")
		return
	}
	p.log.Info("admin created", zap.Int64("id", id), zap.String("username", in.Username))
	apierrors.WriteMessage(w, "Add successfully.")
}

func (p *AdminsPlugin) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	err := p.store.Update(r.Context(), id, in)
	switch {
	case errors.Is(err, ErrNotFound):
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, fmt.Sprintf("admin %d not found", id))
		return
	case errors.Is(err, ErrDuplicateUsername):
		apierrors.WriteErrorWithField(w, http.StatusConflict, apierrors.ErrConflict, err.Error(), "username")
		return
	case err != nil:
		p.log.Error("update admin", zap.Int64("id", id), zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to update admin")
		return
	}
	apierrors.WriteMessage(w, "Edit successfully.")
}

func (p *AdminsPlugin) handleDelete(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	typ, ids, err := core.DecodeWriteBody(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, err.Error())
		return
	}

	var (
		n   int64
		msg string
	)
	switch typ {
	case "delete":
		n, err = p.store.SoftDelete(r.Context(), ids)
		msg = "Delete successfully."
	case "deletePermanently":
		n, err = p.store.DeletePermanently(r.Context(), ids)
		msg = "Delete permanently successfully."
	default:
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrValidationFailed,
			fmt.Sprintf("unsupported type %q", typ), "type")
		return
	}
	if err != nil {
		p.log.Error("delete admins", zap.String("type", typ), zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to delete admins")
		return
	}
	p.log.Info("admins deleted", zap.String("type", typ), zap.Int64("rows", n))
	apierrors.WriteMessage(w, msg)
}

func (p *AdminsPlugin) handleRestore(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	_, ids, err := core.DecodeWriteBody(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, err.Error())
		return
	}
	n, err := p.store.Restore(r.Context(), ids)
	if err != nil {
		p.log.Error("restore admins", zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to restore admins")
		return
	}
	p.log.Info("admins restored", zap.Int64("rows", n))
	apierrors.WriteMessage(w, "Restore successfully.")
}

func (p *AdminsPlugin) groupOptions(r *http.Request) ([]layout.Option, error) {
	groups, err := p.store.Groups(r.Context())
	if err != nil {
		p.log.Error("list groups", zap.Error(err))
		return nil, err
	}
	return groupTree(groups), nil
}

func urlID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "invalid admin id")
		return 0, false
	}
	return id, true
}

func listQuery(r *http.Request) (ListQuery, error) {
	v := r.URL.Query()
	q := ListQuery{Trash: ParseTrash(v.Get("trash"))}
	q.Page, q.PerPage = core.PageParams(r)
	q.Sort, q.Desc = core.SortParams(r)
	q.Username = strings.TrimSpace(v.Get("username"))
	q.DisplayName = strings.TrimSpace(v.Get("display_name"))

	if raw := v.Get("id"); raw != "" {
		id, err := core.ParseID(raw)
		if err != nil {
			return q, err
		}
		q.ID = id
	}
	if raw := v.Get("status"); raw != "" {
		status, ok := core.ParseBool(raw)
		if !ok {
			return q, fmt.Errorf("invalid status %q", raw)
		}
		q.Status = &status
	}
	from, to, err := core.ParseTimeRange(v.Get("create_time"))
	if err != nil {
		return q, fmt.Errorf("create_time: %w", err)
	}
	q.CreateFrom, q.CreateTo = from, to
	for _, raw := range core.SplitList(v.Get("groups")) {
		id, err := core.ParseID(raw)
		if err != nil {
			return q, fmt.Errorf("groups: %w", err)
		}
		q.Groups = append(q.Groups, id)
	}
	return q, nil
}

// decodeInput reads a create or update body. Writes the error response and
// returns false when the body is unusable.
func decodeInput(w http.ResponseWriter, r *http.Request) (AdminInput, bool) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "invalid request body")
		return AdminInput{}, false
	}

	in := AdminInput{
		Username:    strings.TrimSpace(stringValue(body["username"])),
		DisplayName: strings.TrimSpace(stringValue(body["display_name"])),
	}
	if in.Username == "" {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "username is required", "username")
		return in, false
	}
	if in.DisplayName == "" {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "display_name is required", "display_name")
		return in, false
	}
	if raw, ok := body["status"]; ok && raw != nil {
		status, ok := core.ParseBool(raw)
		if !ok {
			apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "invalid status", "status")
			return in, false
		}
		in.Status = status
	}
	if raw, ok := body["groups"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "groups must be a list", "groups")
			return in, false
		}
		ids, err := core.ParseIDs(list)
		if err != nil {
			apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrValidationFailed, err.Error(), "groups")
			return in, false
		}
		in.Groups = ids
	}
	if raw := stringValue(body["create_time"]); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "invalid create_time", "create_time")
			return in, false
		}
		in.CreateTime = t
	}
	return in, true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

// toRecord renders an admin the way the screens read it: status as 1 or 0,
// groups as ids and times in RFC 3339.
func toRecord(a Admin) layout.Record {
	rec := layout.Record{
		"id":           a.ID,
		"username":     a.Username,
		"display_name": a.DisplayName,
		"status":       boolInt(a.Status),
		"groups":       a.Groups,
		"create_time":  formatTime(a.CreateTime),
		"update_time":  formatTime(a.UpdateTime),
	}
	if a.DeleteTime != nil {
		rec["delete_time"] = formatTime(*a.DeleteTime)
	}
	return rec
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
