// ABOUTME: List screen controller: paging, search, selection, modal and confirmations.
// ABOUTME: Owns the column cache and drops read results superseded by newer reads.

package screen

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/client"
	"github.com/2389/basiclist/internal/dispatch"
	"github.com/2389/basiclist/internal/layout"
	"go.uber.org/zap"
)

// ErrNotSortable means a sort was requested on a column that does not sort.
var ErrNotSortable = errors.New("that column cannot be sorted")

// ListView is the render state of a list screen.
type ListView struct {
	Path         string
	Title        string
	Loaded       bool
	Busy         bool
	Columns      []builder.Column
	Records      []layout.Record
	Meta         layout.Meta
	SortKey      string
	SortDesc     bool
	Selected     map[string]bool
	TableToolBar []builder.Trigger
	// BatchToolBar is empty unless rows are selected.
	BatchToolBar []builder.Trigger
	SearchOpen   bool
	SearchItems  []builder.SearchItem
	Search       adaptor.Values
	Confirmation *Overview
	Modal        ModalView
}

// Overview describes the records a pending destructive action will touch.
type Overview struct {
	Action    layout.Action
	Operation string
	Columns   []builder.Column
	Records   []layout.Record
}

// ListScreen drives one resource list such as /api/admins.
type ListScreen struct {
	path string
	deps Deps
	log  *zap.Logger

	dispatcher *dispatch.Dispatcher
	modal      *ModalScreen

	mu           sync.Mutex
	query        client.Query
	search       adaptor.Values
	data         *layout.ListData
	columnSource []layout.Field
	columns      []builder.Column
	columnsBuilt bool
	selected     []string
	searchOpen   bool
	gen          uint64
}

// NewListScreen builds the controller for path.
func NewListScreen(path string, deps Deps) *ListScreen {
	deps = deps.withDefaults()
	s := &ListScreen{
		path:  path,
		deps:  deps,
		log:   deps.Logger.Named("list").With(zap.String("path", path)),
		query: client.Query{Page: 1, PerPage: DefaultPerPage},
	}
	s.modal = NewModalScreen(deps, s.modalHidden)
	s.dispatcher = dispatch.New(dispatch.Effects{
		OpenModal: s.modal.Open,
		Navigate:  deps.Nav.Push,
		Reload:    s.Load,
		Write:     s.write,
		Refresh:   s.Load,
		Selection: s.Selection,
	}, deps.Notify, dispatch.WithLogger(s.log), dispatch.WithMetrics(deps.Metrics))
	return s
}

// Path is the resource path of the list.
func (s *ListScreen) Path() string {
	return s.path
}

// Modal returns the list's modal screen.
func (s *ListScreen) Modal() *ModalScreen {
	return s.modal
}

// Load reads the current query. Only the newest read's result is applied; a
// failed read sends the user back.
func (s *ListScreen) Load(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	q := s.query
	q.Filters = copyFilters(s.query.Filters)
	s.mu.Unlock()

	data, err := s.deps.API.List(ctx, s.path, q)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug("dropping superseded list read", zap.Uint64("generation", gen))
		s.deps.Metrics.RecordSupersededRead("list")
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("list read failed", zap.Error(err))
		s.deps.Notify.Error(err.Error())
		s.deps.Nav.Back()
		return err
	}
	s.data = data
	if !s.columnsBuilt || !reflect.DeepEqual(data.Layout.TableColumn, s.columnSource) {
		s.columnSource = data.Layout.TableColumn
		s.columns = builder.Columns(data.Layout.TableColumn, s.dispatchFunc(), builder.Options{
			Location: s.deps.Location,
			Busy:     s.dispatcher.Busy,
			Logger:   s.log,
		})
		s.columnsBuilt = true
	}
	s.selected = presentIDs(s.selected, data.DataSource)
	s.mu.Unlock()
	return nil
}

// Paginate moves to page with perPage rows. Non-positive values keep the
// current setting.
func (s *ListScreen) Paginate(ctx context.Context, page, perPage int) error {
	s.mu.Lock()
	if page > 0 {
		s.query.Page = page
	}
	if perPage > 0 {
		s.query.PerPage = perPage
	}
	s.mu.Unlock()
	return s.Load(ctx)
}

// Sort orders the list by a sortable column. Sorting by the current column
// again flips the direction.
func (s *ListScreen) Sort(ctx context.Context, key string) error {
	s.mu.Lock()
	sortable := false
	for _, c := range s.columns {
		if c.Key == key && c.Sortable {
			sortable = true
			break
		}
	}
	if !sortable {
		s.mu.Unlock()
		return ErrNotSortable
	}
	if s.query.Sort == key {
		s.query.Desc = !s.query.Desc
	} else {
		s.query.Sort = key
		s.query.Desc = false
	}
	s.mu.Unlock()
	return s.Load(ctx)
}

// Search applies filters from the search panel and goes back to page one.
// Filters stay in effect across paging until ClearSearch.
func (s *ListScreen) Search(ctx context.Context, values adaptor.Values) error {
	s.mu.Lock()
	s.search = values.Clone()
	s.query.Filters = adaptor.SubmitFields(values)
	s.query.Page = 1
	s.mu.Unlock()
	return s.Load(ctx)
}

// ClearSearch drops every filter and reloads.
func (s *ListScreen) ClearSearch(ctx context.Context) error {
	s.mu.Lock()
	s.search = nil
	s.query.Filters = nil
	s.mu.Unlock()
	return s.Load(ctx)
}

// ToggleSearch shows or hides the search panel.
func (s *ListScreen) ToggleSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchOpen = !s.searchOpen
}

// SearchFields returns the column fields the search panel decodes.
func (s *ListScreen) SearchFields() []layout.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]layout.Field(nil), s.columnSource...)
}

// Select replaces the row selection. Unknown ids are ignored.
func (s *ListScreen) Select(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []layout.Record
	if s.data != nil {
		rows = s.data.DataSource
	}
	s.selected = presentIDs(ids, rows)
}

// Selection returns the selected records in list order.
func (s *ListScreen) Selection() []layout.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil || len(s.selected) == 0 {
		return nil
	}
	want := make(map[string]bool, len(s.selected))
	for _, id := range s.selected {
		want[id] = true
	}
	var out []layout.Record
	for _, r := range s.data.DataSource {
		if want[r.IDString()] {
			out = append(out, r)
		}
	}
	return out
}

// Record finds a row of the current page by id.
func (s *ListScreen) Record(id string) (layout.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil || id == "" {
		return nil, false
	}
	for _, r := range s.data.DataSource {
		if r.IDString() == id {
			return r, true
		}
	}
	return nil, false
}

// Dispatch runs a row, toolbar or batch action.
func (s *ListScreen) Dispatch(ctx context.Context, action layout.Action, record layout.Record) error {
	return s.dispatcher.Dispatch(ctx, action, record)
}

// Confirm accepts the pending destructive action.
func (s *ListScreen) Confirm(ctx context.Context) error {
	return s.dispatcher.Confirm(ctx)
}

// CancelConfirmation discards the pending destructive action.
func (s *ListScreen) CancelConfirmation() {
	s.dispatcher.CancelConfirmation()
}

// State is the dispatcher state of the list.
func (s *ListScreen) State() dispatch.State {
	return s.dispatcher.State()
}

// BatchOverview describes the pending confirmation using the ID column and
// the first schema column.
func (s *ListScreen) BatchOverview() *Overview {
	pending := s.dispatcher.Pending()
	if pending == nil {
		return nil
	}
	s.mu.Lock()
	cols := s.columns
	s.mu.Unlock()
	if len(cols) > 2 {
		cols = cols[:2]
	}
	if len(cols) == 0 {
		cols = []builder.Column{builder.IDColumn()}
	}
	return &Overview{
		Action:    pending.Action,
		Operation: OperationName(pending.Action.Verb()),
		Columns:   append([]builder.Column(nil), cols...),
		Records:   pending.Targets,
	}
}

// Close tears the screen down and clears the column cache.
func (s *ListScreen) Close() {
	s.modal.Hide(context.Background(), false)
	s.dispatcher.CancelConfirmation()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.data = nil
	s.columns = nil
	s.columnSource = nil
	s.columnsBuilt = false
	s.selected = nil
}

// View returns the render state.
func (s *ListScreen) View() ListView {
	busy := s.dispatcher.Busy()
	overview := s.BatchOverview()
	modal := s.modal.View()
	fn := s.dispatchFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	v := ListView{
		Path:         s.path,
		Loaded:       s.data != nil,
		Busy:         busy,
		Columns:      s.columns,
		Selected:     make(map[string]bool, len(s.selected)),
		SearchOpen:   s.searchOpen,
		Search:       s.search.Clone(),
		Confirmation: overview,
		Modal:        modal,
		Meta:         layout.Meta{Page: s.query.Page, PerPage: s.query.PerPage},
		SortKey:      s.query.Sort,
		SortDesc:     s.query.Desc,
	}
	for _, id := range s.selected {
		v.Selected[id] = true
	}
	if s.data == nil {
		return v
	}
	if s.data.Page != nil {
		v.Title = s.data.Page.Title
	}
	v.Records = s.data.DataSource
	v.Meta = s.data.Meta
	if v.Meta.Page <= 0 {
		v.Meta.Page = 1
	}
	if v.Meta.PerPage <= 0 {
		v.Meta.PerPage = DefaultPerPage
	}
	v.TableToolBar = builder.Triggers(s.data.Layout.TableToolBar, fn, busy, nil)
	if len(s.selected) > 0 {
		v.BatchToolBar = builder.Triggers(s.data.Layout.BatchToolBar, fn, busy, nil)
	}
	v.SearchItems = append([]builder.SearchItem{builder.IDSearchItem()}, builder.SearchItems(s.data.Layout.TableColumn, s.log)...)
	return v
}

func (s *ListScreen) dispatchFunc() builder.DispatchFunc {
	return func(ctx context.Context, action layout.Action, record layout.Record) error {
		return s.dispatcher.Dispatch(ctx, action, record)
	}
}

func (s *ListScreen) write(ctx context.Context, req dispatch.WriteRequest) (string, error) {
	res, err := s.deps.API.Write(ctx, client.WriteRequest{Method: req.Method, URI: req.URI, Body: req.Body()})
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			s.log.Info("destructive write rejected", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message))
		}
		return "", err
	}
	return res.Message, nil
}

func (s *ListScreen) modalHidden(ctx context.Context, reload bool) {
	s.dispatcher.ModalClosed()
	if reload {
		if err := s.Load(ctx); err != nil {
			s.log.Warn("reload after modal failed", zap.Error(err))
		}
	}
}

func presentIDs(ids []string, rows []layout.Record) []string {
	if len(ids) == 0 {
		return nil
	}
	present := make(map[string]bool, len(rows))
	for _, r := range rows {
		present[r.IDString()] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, id := range ids {
		if present[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

func copyFilters(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
