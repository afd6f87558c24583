// ABOUTME: Common read and submit cycle of the modal and page form screens.
// ABOUTME: Fetches PageData, initializes the form and writes it back on submit.

package screen

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/client"
	"github.com/2389/basiclist/internal/dispatch"
	"github.com/2389/basiclist/internal/layout"
	"go.uber.org/zap"
)

// errSuperseded marks a read whose result was dropped for a newer one.
var errSuperseded = errors.New("read superseded")

// FormView is what the presentation layer renders for a form screen.
type FormView struct {
	URI     string
	Title   string
	Loaded  bool
	Busy    bool
	Tabs    []TabView
	Actions []ActionGroupView
	Footer  []builder.Trigger
	Values  adaptor.Values
}

// TabView is one tab of controls.
type TabView struct {
	Title string
	Items []builder.FormItem
}

// ActionGroupView is one titled card of triggers.
type ActionGroupView struct {
	Title    string
	Triggers []builder.Trigger
}

type formHooks struct {
	// firstTabOnly limits the controls to the first tab, as the modal does.
	firstTabOnly bool
	readFailed   func(ctx context.Context)
	submitted    func(ctx context.Context)
	cancelled    func()
}

type formScreen struct {
	name  string
	deps  Deps
	log   *zap.Logger
	form  *Form
	hooks formHooks

	dispatcher *dispatch.Dispatcher

	mu     sync.Mutex
	uri    string
	page   *layout.PageData
	gen    uint64
	loaded bool
}

func newFormScreen(name string, deps Deps, hooks formHooks) *formScreen {
	deps = deps.withDefaults()
	log := deps.Logger.Named(name)
	fs := &formScreen{
		name:  name,
		deps:  deps,
		log:   log,
		form:  NewForm(log),
		hooks: hooks,
	}
	fs.dispatcher = dispatch.New(dispatch.Effects{
		Submit: fs.submit,
		Cancel: fs.cancel,
		Reset:  fs.form.Reset,
	}, deps.Notify, dispatch.WithLogger(log), dispatch.WithMetrics(deps.Metrics))
	return fs
}

// open resets the form and loads uri. A failed read runs the readFailed hook.
func (fs *formScreen) open(ctx context.Context, uri string) error {
	fs.mu.Lock()
	fs.gen++
	gen := fs.gen
	fs.uri = uri
	fs.page = nil
	fs.loaded = false
	fs.mu.Unlock()
	fs.form.Clear()

	page, err := fs.deps.API.Page(ctx, uri)

	fs.mu.Lock()
	if gen != fs.gen {
		fs.mu.Unlock()
		fs.deps.Metrics.RecordSupersededRead(fs.name)
		return errSuperseded
	}
	if err != nil {
		fs.mu.Unlock()
		fs.log.Warn("form read failed", zap.String("uri", uri), zap.Error(err))
		fs.deps.Notify.Error(err.Error())
		if fs.hooks.readFailed != nil {
			fs.hooks.readFailed(ctx)
		}
		return err
	}
	fs.page = page
	fs.loaded = true
	fs.mu.Unlock()

	fs.form.Init(fs.fields(page), DefaultValues(fs.deps.Now().In(fs.deps.Location)), adaptor.SetFields(page, fs.deps.Location))
	return nil
}

func (fs *formScreen) fields(page *layout.PageData) []layout.Field {
	if page == nil {
		return nil
	}
	if fs.hooks.firstTabOnly {
		if len(page.Layout.Tabs) == 0 {
			return nil
		}
		return page.Layout.Tabs[0].Data
	}
	return page.Layout.FormFields()
}

// close forgets the loaded page and bumps the generation so late reads are dropped.
func (fs *formScreen) close() {
	fs.mu.Lock()
	fs.gen++
	fs.uri = ""
	fs.page = nil
	fs.loaded = false
	fs.mu.Unlock()
	fs.form.Clear()
}

func (fs *formScreen) submit(ctx context.Context, uri, method string) error {
	fs.form.SetHidden(uri, method)
	if err := fs.form.Validate(); err != nil {
		fs.deps.Notify.Error(err.Error())
		return err
	}
	res, err := fs.deps.API.Write(ctx, client.WriteRequest{Method: method, URI: uri, Body: fs.form.Payload()})
	if err != nil {
		fs.log.Warn("form write failed", zap.String("uri", uri), zap.Error(err))
		fs.deps.Notify.Error(err.Error())
		return err
	}
	fs.deps.Notify.Success(res.Message)
	if fs.hooks.submitted != nil {
		fs.hooks.submitted(ctx)
	}
	return nil
}

func (fs *formScreen) cancel() {
	if fs.hooks.cancelled != nil {
		fs.hooks.cancelled()
	}
}

func (fs *formScreen) dispatchFunc() builder.DispatchFunc {
	return func(ctx context.Context, action layout.Action, _ layout.Record) error {
		return fs.dispatcher.Dispatch(ctx, action, nil)
	}
}

// view renders the current state.
func (fs *formScreen) view() FormView {
	fs.mu.Lock()
	page := fs.page
	v := FormView{URI: fs.uri, Loaded: fs.loaded}
	fs.mu.Unlock()

	v.Busy = fs.dispatcher.Busy()
	v.Values = fs.form.Values()
	if page == nil {
		return v
	}
	v.Title = page.Page.Title

	fn := fs.dispatchFunc()
	tabs := page.Layout.Tabs
	if fs.hooks.firstTabOnly && len(tabs) > 1 {
		tabs = tabs[:1]
	}
	for _, tab := range tabs {
		v.Tabs = append(v.Tabs, TabView{Title: tab.Title, Items: builder.FormItems(tab.Data, fs.log)})
	}
	for _, group := range page.Layout.Actions {
		v.Actions = append(v.Actions, ActionGroupView{
			Title:    group.Title,
			Triggers: builder.Triggers(group.Data, fn, v.Busy, nil),
		})
	}
	v.Footer = builder.Triggers(page.Layout.FirstActions(), fn, v.Busy, nil)
	return v
}

// fieldsForInput returns the declared fields that a form post should decode.
func (fs *formScreen) fieldsForInput() []layout.Field {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.fields(fs.page)
}
