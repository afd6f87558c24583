// ABOUTME: HTTP handlers for the admin UI: the dashboard, list screens and form pages.
// ABOUTME: Every post runs one screen operation and redirects to where the screen navigated.

package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/dispatch"
	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/internal/metrics"
	"github.com/2389/basiclist/internal/screen"
	"github.com/2389/basiclist/internal/store"
	"github.com/2389/basiclist/plugins/core"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// basePath prefixes every list and page URL of the UI.
const basePath = "/basic-list"

// Config wires the admin UI.
type Config struct {
	API        screen.API
	Store      *store.Store
	Location   *time.Location
	Logger     *zap.Logger
	Metrics    *metrics.Collector
	SessionTTL time.Duration
}

type Handlers struct {
	store    *store.Store
	sessions *Sessions
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewHandlers(cfg Config) *Handlers {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	log := cfg.Logger.Named("admin")
	return &Handlers{
		store: cfg.Store,
		sessions: NewSessions(screen.Deps{
			API:      cfg.API,
			Location: cfg.Location,
			Logger:   log,
			Metrics:  cfg.Metrics,
		}, cfg.SessionTTL),
		log: log,
		loc: cfg.Location,
		now: time.Now,
	}
}

// Sessions exposes the session table so the caller can run its sweeper.
func (h *Handlers) Sessions() *Sessions {
	return h.sessions
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/admin", h.dashboard)
	r.Get("/admin/", h.dashboard)

	r.Route(basePath, func(r chi.Router) {
		r.Get("/", h.home)
		r.Get("/api/*", h.pageView)
		r.Post("/api/*", h.pageAction)

		r.Route("/{resource}", func(r chi.Router) {
			r.Get("/", h.listView)
			r.Get("/paginate", h.listPaginate)
			r.Get("/sort", h.listSort)
			r.Post("/select", h.listSelect)
			r.Post("/search", h.listSearch)
			r.Post("/search/clear", h.listSearchClear)
			r.Post("/search/toggle", h.listSearchToggle)
			r.Post("/action", h.listAction)
			r.Post("/confirm", h.listConfirm)
			r.Post("/confirm/cancel", h.listConfirmCancel)
			r.Post("/modal/action", h.modalAction)
			r.Post("/modal/close", h.modalClose)
		})
	})
}

type navItem struct {
	Name   string
	URL    string
	Active bool
}

// chrome is what the layout renders around every page.
type chrome struct {
	Title   string
	Nav     []navItem
	Flashes []Flash
}

type listPage struct {
	chrome
	Base string
	View screen.ListView
	Loc  *time.Location
}

type formPage struct {
	chrome
	Action string
	View   screen.FormView
	Loc    *time.Location
}

type pluginRow struct {
	Name         string
	Health       core.HealthStatus
	RequestCount int
	ErrorRate    float64
	Resources    []navItem
}

type dashboardPage struct {
	chrome
	Plugins  []pluginRow
	Stats    *store.RequestLogStats
	Sessions int
}

func (h *Handlers) chrome(sess *Session, title, active string) chrome {
	c := chrome{Title: title, Flashes: sess.takeFlashes()}
	for _, res := range core.AllResources() {
		url := resourceURL(res)
		c.Nav = append(c.Nav, navItem{Name: res.Name, URL: url, Active: url == active})
	}
	return c
}

func resourceURL(res core.Resource) string {
	return basePath + "/" + res.Slug
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(w, r)
	sess.begin(homePath, h.now())

	since := h.now().Add(-24 * time.Hour)
	data := dashboardPage{Sessions: h.sessions.Len()}
	for _, p := range core.All() {
		row := pluginRow{Name: p.Name(), Health: p.Health()}
		if h.store != nil {
			if n, err := h.store.GetPluginRequestCount(p.Name(), since); err == nil {
				row.RequestCount = n
			}
			if rate, err := h.store.GetPluginErrorRate(p.Name(), since); err == nil {
				row.ErrorRate = rate
			}
		}
		for _, res := range p.Resources() {
			row.Resources = append(row.Resources, navItem{Name: res.Name, URL: resourceURL(res)})
		}
		data.Plugins = append(data.Plugins, row)
	}
	if h.store != nil {
		stats, err := h.store.GetRequestLogStats()
		if err != nil {
			h.log.Warn("request log stats failed", zap.Error(err))
		}
		data.Stats = stats
	}
	data.chrome = h.chrome(sess, "Dashboard", homePath)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, "dashboard", data); err != nil {
		h.log.Error("render dashboard", zap.Error(err))
	}
	sess.visit(homePath)
}

// home opens the first resource.
func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	resources := core.AllResources()
	if len(resources) == 0 {
		http.Redirect(w, r, homePath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, resourceURL(resources[0]), http.StatusSeeOther)
}

// listRequest is a request against one resource list of a session.
type listRequest struct {
	sess *Session
	res  core.Resource
	list *screen.ListScreen
	base string
}

func (h *Handlers) listFor(w http.ResponseWriter, r *http.Request) (*listRequest, bool) {
	res, _, ok := core.FindResource(chi.URLParam(r, "resource"))
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	sess := h.sessions.Get(w, r)
	base := resourceURL(res)
	sess.begin(base, h.now())
	return &listRequest{sess: sess, res: res, list: sess.List(res.Path), base: base}, true
}

func (h *Handlers) listView(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	lr.sess.closePage()
	if !lr.sess.takeFresh(lr.base) || !lr.list.View().Loaded {
		if err := lr.list.Load(r.Context()); err != nil {
			if target := lr.sess.takeRedirect(lr.base); target != lr.base {
				h.redirect(w, r, target)
				return
			}
		}
	}
	h.renderList(w, r, lr)
}

func (h *Handlers) renderList(w http.ResponseWriter, r *http.Request, lr *listRequest) {
	data := listPage{
		chrome: h.chrome(lr.sess, lr.res.Name, lr.base),
		Base:   lr.base,
		View:   lr.list.View(),
		Loc:    h.loc,
	}
	if data.View.Title == "" {
		data.View.Title = lr.res.Name
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var err error
	if isHTMX(r) {
		err = renderPartial(w, "screen", data)
	} else {
		err = renderPage(w, "list", data)
	}
	if err != nil {
		h.log.Error("render list", zap.String("resource", lr.res.Slug), zap.Error(err))
	}
	lr.sess.visit(lr.base)
}

// finishList reports err and sends the browser wherever the screen navigated,
// back to the list by default.
func (h *Handlers) finishList(w http.ResponseWriter, r *http.Request, lr *listRequest, err error) {
	flashError(lr.sess, err)
	target := lr.sess.takeRedirect(lr.base)
	if target != lr.base {
		h.redirect(w, r, target)
		return
	}
	if isHTMX(r) {
		h.renderList(w, r, lr)
		return
	}
	lr.sess.markFresh(lr.base)
	http.Redirect(w, r, lr.base, http.StatusSeeOther)
}

func (h *Handlers) listPaginate(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	err := lr.list.Paginate(r.Context(), page, perPage)
	h.finishList(w, r, lr, err)
}

func (h *Handlers) listSort(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	err := lr.list.Sort(r.Context(), r.URL.Query().Get("key"))
	h.finishList(w, r, lr, err)
}

func (h *Handlers) listSelect(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	lr.list.Select(r.PostForm["ids"])
	h.finishList(w, r, lr, nil)
}

func (h *Handlers) listSearch(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	values := adaptor.DecodeSearch(lr.list.SearchFields(), r.PostForm, h.loc)
	err := lr.list.Search(r.Context(), values)
	h.finishList(w, r, lr, err)
}

func (h *Handlers) listSearchClear(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	err := lr.list.ClearSearch(r.Context())
	h.finishList(w, r, lr, err)
}

func (h *Handlers) listSearchToggle(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	lr.list.ToggleSearch()
	h.finishList(w, r, lr, nil)
}

// listAction activates a toolbar, batch or row trigger by position.
func (h *Handlers) listAction(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(r.PostForm.Get("index"))
	if err != nil || index < 0 {
		http.Error(w, "Invalid action index", http.StatusBadRequest)
		return
	}

	view := lr.list.View()
	var triggers []builder.Trigger
	switch r.PostForm.Get("source") {
	case "toolbar":
		triggers = view.TableToolBar
	case "batch":
		triggers = view.BatchToolBar
	case "row":
		if rec, ok := lr.list.Record(r.PostForm.Get("id")); ok {
			triggers = rowTriggers(view.Columns, rec)
		}
	default:
		http.Error(w, "Invalid action source", http.StatusBadRequest)
		return
	}
	if index >= len(triggers) {
		lr.sess.Error("That action is no longer available.")
		h.finishList(w, r, lr, nil)
		return
	}
	err = triggers[index].Activate(r.Context())
	h.finishList(w, r, lr, err)
}

func rowTriggers(cols []builder.Column, rec layout.Record) []builder.Trigger {
	for _, col := range cols {
		if col.Kind != layout.KindActions {
			continue
		}
		if cell, ok := col.Render(rec).(builder.ActionsCell); ok {
			return cell.Triggers
		}
	}
	return nil
}

func (h *Handlers) listConfirm(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	err := lr.list.Confirm(r.Context())
	h.finishList(w, r, lr, err)
}

func (h *Handlers) listConfirmCancel(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	lr.list.CancelConfirmation()
	h.finishList(w, r, lr, nil)
}

// modalAction applies the posted modal form and activates a footer trigger.
func (h *Handlers) modalAction(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	modal := lr.list.Modal()
	if !modal.Visible() {
		h.finishList(w, r, lr, nil)
		return
	}
	modal.Input(r.PostForm)
	index, err := strconv.Atoi(r.PostForm.Get("index"))
	footer := modal.View().Footer
	if err != nil || index < 0 || index >= len(footer) {
		http.Error(w, "Invalid action index", http.StatusBadRequest)
		return
	}
	err = footer[index].Activate(r.Context())
	h.finishList(w, r, lr, err)
}

func (h *Handlers) modalClose(w http.ResponseWriter, r *http.Request) {
	lr, ok := h.listFor(w, r)
	if !ok {
		return
	}
	lr.list.Modal().Hide(r.Context(), false)
	h.finishList(w, r, lr, nil)
}

// pageURI maps a UI URL such as /basic-list/api/admins/7 to its API path.
func pageURI(r *http.Request) string {
	uri := strings.TrimPrefix(r.URL.Path, basePath)
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}
	return uri
}

func (h *Handlers) pageView(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(w, r)
	current := r.URL.RequestURI()
	sess.begin(current, h.now())

	uri := pageURI(r)
	page := sess.Page()
	// A page that is already loaded keeps its unsaved input, as after a
	// failed submit.
	if page.URI() != uri || !page.View().Loaded {
		if err := page.Load(r.Context(), uri); err != nil {
			h.redirect(w, r, sess.takeRedirect(homePath))
			return
		}
	}

	data := formPage{
		chrome: h.chrome(sess, "", ""),
		Action: current,
		View:   page.View(),
		Loc:    h.loc,
	}
	data.Title = data.View.Title
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, "page", data); err != nil {
		h.log.Error("render page", zap.String("uri", uri), zap.Error(err))
	}
	sess.visit(current)
}

// pageAction applies the posted form and activates the trigger in the
// posted "group:index" slot.
func (h *Handlers) pageAction(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(w, r)
	current := r.URL.RequestURI()
	sess.begin(current, h.now())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	page := sess.Page()
	if page.URI() != pageURI(r) {
		h.redirect(w, r, current)
		return
	}
	page.Input(r.PostForm)

	group, index, ok := parseSlot(r.PostForm.Get("action"))
	actions := page.View().Actions
	if !ok || group >= len(actions) || index >= len(actions[group].Triggers) {
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}
	err := actions[group].Triggers[index].Activate(r.Context())
	flashError(sess, err)

	target := sess.takeRedirect(current)
	if target != current {
		page.Close()
	}
	h.redirect(w, r, target)
}

func parseSlot(v string) (group, index int, ok bool) {
	g, i, found := strings.Cut(v, ":")
	if !found {
		return 0, 0, false
	}
	group, err := strconv.Atoi(g)
	if err != nil || group < 0 {
		return 0, 0, false
	}
	index, err = strconv.Atoi(i)
	if err != nil || index < 0 {
		return 0, 0, false
	}
	return group, index, true
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// flashError reports errors the screens do not notify on their own.
func flashError(sess *Session, err error) {
	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrNoTargets),
		errors.Is(err, dispatch.ErrBusy),
		errors.Is(err, dispatch.ErrNothingPending),
		errors.Is(err, dispatch.ErrConfirmationPending),
		errors.Is(err, screen.ErrNotSortable),
		errors.Is(err, builder.ErrTriggerDisabled):
		sess.Error(err.Error())
	}
}
