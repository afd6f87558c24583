// ABOUTME: HTTP handlers for the request log resource.
// ABOUTME: Lists logs with filters, shows one log read-only and deletes logs.

package requestlog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/2389/basiclist/internal/errors"
	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/internal/store"
	"github.com/2389/basiclist/plugins/core"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func defaultListLayout() layout.PageLayout {
	return layout.PageLayout{
		TableColumn: []layout.Field{
			{Key: "method", Title: "Method", Type: "text"},
			{Key: "path", Title: "Path", Type: "text"},
			{Key: "plugin_name", Title: "Plugin", Type: "text"},
			{Key: "status_code", Title: "Status", Type: "text"},
			{Key: "duration_ms", Title: "Duration (ms)", Type: "text", HideInColumn: true},
			{Key: "timestamp", Title: "Time", Type: "datetime"},
			{Key: "actions", Title: "Actions", Type: "actions", Actions: []layout.Action{
				{Title: "View", Action: "modal", URI: "/api/logs/:id"},
				{Title: "Delete Permanently", Action: "deletePermanently", URI: "/api/logs/delete", Method: "post"},
			}},
		},
		TableToolBar: []layout.Action{
			{Title: "Reload", Action: "reload"},
		},
		BatchToolBar: []layout.Action{
			{Title: "Delete Permanently", Action: "deletePermanently", URI: "/api/logs/delete", Method: "post"},
		},
	}
}

func detailLayout() layout.PageLayout {
	field := func(key, title, typ string) layout.Field {
		return layout.Field{Key: key, Title: title, Type: typ, Disabled: true}
	}
	return layout.PageLayout{
		Tabs: []layout.Tab{
			{Title: "Request", Data: []layout.Field{
				field("method", "Method", "text"),
				field("path", "Path", "text"),
				field("status_code", "Status", "text"),
				field("duration_ms", "Duration (ms)", "text"),
				field("user_id", "User", "text"),
				field("ip_address", "IP Address", "text"),
				field("user_agent", "User Agent", "text"),
				field("error", "Error", "text"),
				field("timestamp", "Time", "datetime"),
			}},
			{Title: "Bodies", Data: []layout.Field{
				field("request_body", "Request Body", "text"),
				field("response_body", "Response Body", "text"),
			}},
		},
		Actions: []layout.ActionGroup{
			{Title: "Actions", Data: []layout.Action{{Title: "Close", Action: "cancel"}}},
		},
	}
}

func (p *RequestLogPlugin) handleList(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	q, page, perPage, err := listQuery(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, err.Error())
		return
	}

	logs, total, err := p.store.ListRequestLogs(r.Context(), q)
	if err != nil {
		p.log.Error("list request logs", zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to list request logs")
		return
	}

	records := make([]layout.Record, 0, len(logs))
	for _, l := range logs {
		records = append(records, summaryRecord(l))
	}
	apierrors.WriteData(w, layout.ListData{
		Page:       &layout.PageInfo{Title: "Request Logs", Type: "basicList"},
		Layout:     p.layouts.Resolve(LayoutList, defaultListLayout()),
		DataSource: records,
		Meta:       layout.Meta{Total: total, Page: page, PerPage: perPage},
	})
}

func (p *RequestLogPlugin) handleView(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "invalid log id")
		return
	}
	logs, _, err := p.store.ListRequestLogs(r.Context(), store.RequestLogQuery{ID: id, Limit: 1})
	if err != nil {
		p.log.Error("get request log", zap.Int64("id", id), zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to load request log")
		return
	}
	if len(logs) == 0 {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, fmt.Sprintf("request log %d not found", id))
		return
	}
	rec := summaryRecord(logs[0])
	rec["user_id"] = logs[0].UserID
	rec["ip_address"] = logs[0].IPAddress
	rec["user_agent"] = logs[0].UserAgent
	rec["error"] = logs[0].Error
	rec["request_body"] = logs[0].RequestBody
	rec["response_body"] = logs[0].ResponseBody

	apierrors.WriteData(w, layout.PageData{
		Page:       layout.PageInfo{Title: fmt.Sprintf("Request %d", id), Type: "page"},
		Layout:     detailLayout(),
		DataSource: rec,
	})
}

func (p *RequestLogPlugin) handleDelete(w http.ResponseWriter, r *http.Request) {
	if p.store == nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "store not initialized")
		return
	}
	typ, ids, err := core.DecodeWriteBody(r)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, err.Error())
		return
	}
	if typ != "deletePermanently" {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrValidationFailed,
			"request logs can only be deleted permanently", "type")
		return
	}
	n, err := p.store.DeleteRequestLogs(r.Context(), ids)
	if err != nil {
		p.log.Error("delete request logs", zap.Error(err))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "failed to delete request logs")
		return
	}
	p.log.Info("request logs deleted", zap.Int64("rows", n))
	apierrors.WriteMessage(w, "Delete permanently successfully.")
}

func listQuery(r *http.Request) (q store.RequestLogQuery, page, perPage int, err error) {
	v := r.URL.Query()
	page, perPage = core.PageParams(r)
	q.Limit = perPage
	q.Offset = (page - 1) * perPage
	q.Sort, q.Desc = core.SortParams(r)
	q.Method = strings.ToUpper(strings.TrimSpace(v.Get("method")))
	q.PathPrefix = strings.TrimSpace(v.Get("path"))
	q.PluginName = strings.TrimSpace(v.Get("plugin_name"))

	if raw := v.Get("id"); raw != "" {
		if q.ID, err = core.ParseID(raw); err != nil {
			return q, page, perPage, err
		}
	}
	if raw := strings.TrimSpace(v.Get("status_code")); raw != "" {
		if q.StatusCode, err = strconv.Atoi(raw); err != nil {
			return q, page, perPage, fmt.Errorf("invalid status_code %q", raw)
		}
	}
	if q.Since, q.Until, err = core.ParseTimeRange(v.Get("timestamp")); err != nil {
		return q, page, perPage, fmt.Errorf("timestamp: %w", err)
	}
	return q, page, perPage, nil
}

func summaryRecord(l *store.RequestLog) layout.Record {
	return layout.Record{
		"id":          l.ID,
		"method":      l.Method,
		"path":        l.Path,
		"plugin_name": l.PluginName,
		"status_code": l.StatusCode,
		"duration_ms": l.DurationMs,
		"timestamp":   l.Timestamp.UTC().Format(time.RFC3339),
	}
}
