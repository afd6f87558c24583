// ABOUTME: Action dispatcher interpreting symbolic verbs into screen side effects.
// ABOUTME: Tracks Idle, ModalOpen, Submitting and ConfirmingDestructive per screen.

package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrNoTargets means a destructive verb had neither a record nor a selection.
	ErrNoTargets = errors.New("no records selected")
	// ErrBusy means a submission or confirmed write is still in flight.
	ErrBusy = errors.New("a submission is in progress")
	// ErrNothingPending means Confirm was called with no confirmation open.
	ErrNothingPending = errors.New("no action awaiting confirmation")
	// ErrConfirmationPending means a destructive action must be confirmed or
	// cancelled before anything else runs.
	ErrConfirmationPending = errors.New("confirm or cancel the pending action first")
)

// State is the dispatcher's position in the screen lifecycle.
type State int

const (
	Idle State = iota
	ModalOpen
	Submitting
	ConfirmingDestructive
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ModalOpen:
		return "modal_open"
	case Submitting:
		return "submitting"
	case ConfirmingDestructive:
		return "confirming_destructive"
	}
	return "unknown"
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Effects are the screen's side effects. A nil callback marks the verb as
// unsupported on that screen.
type Effects struct {
	OpenModal func(ctx context.Context, uri string) error
	Navigate  func(uri string)
	Reload    func(ctx context.Context) error
	Write     func(ctx context.Context, req WriteRequest) (string, error)
	Refresh   func(ctx context.Context) error
	Submit    func(ctx context.Context, uri, method string) error
	Cancel    func()
	Reset     func()
	Selection func() []layout.Record
}

// WriteRequest is the destructive write issued after a confirmation.
type WriteRequest struct {
	URI    string
	Method string
	Type   string
	IDs    []any
}

// Body is the JSON payload of the write.
func (w WriteRequest) Body() map[string]any {
	return map[string]any{"type": w.Type, "ids": w.IDs}
}

// Confirmation is a destructive action waiting for the user's OK.
type Confirmation struct {
	Action  layout.Action
	Targets []layout.Record
	IDs     []any
}

// Request builds the write for this confirmation.
func (c Confirmation) Request() WriteRequest {
	return WriteRequest{
		URI:    c.Action.URI,
		Method: c.Action.Method,
		Type:   c.Action.Action,
		IDs:    append([]any(nil), c.IDs...),
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for unsupported verbs and write failures.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l.Named("dispatch")
		}
	}
}

// WithMetrics counts every dispatch in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = c }
}

// Dispatcher is the single action handler shared by every trigger on a screen.
type Dispatcher struct {
	effects Effects
	notify  Notifier
	log     *zap.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	state    State
	resume   State
	modalURI string
	pending  *Confirmation
}

// New builds a Dispatcher over the given effects.
func New(effects Effects, notify Notifier, opts ...Option) *Dispatcher {
	if notify == nil {
		notify = nopNotifier{}
	}
	d := &Dispatcher{effects: effects, notify: notify, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Busy reports whether triggers should be disabled.
func (d *Dispatcher) Busy() bool {
	return d.State() == Submitting
}

// ModalURI returns the resolved URI of the open modal, or "".
func (d *Dispatcher) ModalURI() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != ModalOpen && !(d.state == Submitting && d.resume == ModalOpen) {
		return ""
	}
	return d.modalURI
}

// Pending returns a copy of the open confirmation, or nil.
func (d *Dispatcher) Pending() *Confirmation {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return nil
	}
	c := *d.pending
	c.Targets = append([]layout.Record(nil), c.Targets...)
	c.IDs = append([]any(nil), c.IDs...)
	return &c
}

// Dispatch interprets one action against an optional record.
func (d *Dispatcher) Dispatch(ctx context.Context, action layout.Action, record layout.Record) error {
	verb := action.Verb()

	// gather targets before taking the lock; Selection calls back into the screen
	var targets []layout.Record
	if verb.Destructive() {
		targets = d.targets(record)
	}

	d.mu.Lock()
	if d.state == Submitting {
		d.mu.Unlock()
		d.record(verb, "busy")
		return ErrBusy
	}
	if d.state == ConfirmingDestructive {
		d.mu.Unlock()
		d.record(verb, "pending")
		return ErrConfirmationPending
	}

	switch verb {
	case layout.VerbModal:
		if d.effects.OpenModal == nil {
			return d.unsupported(verb)
		}
		uri := ResolveURI(action.URI, record)
		d.state = ModalOpen
		d.modalURI = uri
		d.mu.Unlock()
		return d.finish(verb, d.effects.OpenModal(ctx, uri))

	case layout.VerbPage:
		if d.effects.Navigate == nil {
			return d.unsupported(verb)
		}
		uri := ResolveURI(action.URI, record)
		d.state = Idle
		d.mu.Unlock()
		d.effects.Navigate(uri)
		d.record(verb, "ok")
		return nil

	case layout.VerbReload:
		if d.effects.Reload == nil {
			return d.unsupported(verb)
		}
		d.state = Idle
		d.mu.Unlock()
		return d.finish(verb, d.effects.Reload(ctx))

	case layout.VerbDelete, layout.VerbDeletePermanently, layout.VerbRestore:
		if d.effects.Write == nil {
			return d.unsupported(verb)
		}
		ids := idsOf(targets)
		if len(ids) == 0 {
			d.mu.Unlock()
			d.record(verb, "no_targets")
			return ErrNoTargets
		}
		d.pending = &Confirmation{Action: action, Targets: targets, IDs: ids}
		d.state = ConfirmingDestructive
		d.mu.Unlock()
		d.record(verb, "confirming")
		return nil

	case layout.VerbSubmit:
		if d.effects.Submit == nil {
			return d.unsupported(verb)
		}
		d.resume = d.state
		d.state = Submitting
		d.mu.Unlock()
		err := d.effects.Submit(ctx, action.URI, action.Method)
		d.mu.Lock()
		if d.state == Submitting {
			d.state = d.resume
		}
		d.mu.Unlock()
		return d.finish(verb, err)

	case layout.VerbCancel:
		if d.effects.Cancel == nil {
			return d.unsupported(verb)
		}
		d.state = Idle
		d.modalURI = ""
		d.mu.Unlock()
		d.effects.Cancel()
		d.record(verb, "ok")
		return nil

	case layout.VerbReset:
		if d.effects.Reset == nil {
			return d.unsupported(verb)
		}
		d.mu.Unlock()
		d.effects.Reset()
		d.record(verb, "ok")
		return nil

	case layout.VerbUnknown:
	}

	d.mu.Unlock()
	d.log.Debug("ignoring unknown action", zap.String("action", action.Action), zap.String("title", action.Title))
	d.record(verb, "unsupported")
	return nil
}

// Confirm issues the pending destructive write. On success the user is told the
// server's message, the dispatcher returns to Idle and the screen is refreshed
// exactly once. On failure the confirmation stays open.
func (d *Dispatcher) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if d.state == Submitting {
		d.mu.Unlock()
		return ErrBusy
	}
	if d.pending == nil {
		d.mu.Unlock()
		return ErrNothingPending
	}
	c := *d.pending
	d.state = Submitting
	d.mu.Unlock()

	verb := c.Action.Verb()
	msg, err := d.effects.Write(ctx, c.Request())
	if err != nil {
		d.mu.Lock()
		d.state = ConfirmingDestructive
		d.mu.Unlock()
		d.log.Warn("destructive write failed", zap.String("action", c.Action.Action), zap.Error(err))
		d.notify.Error(err.Error())
		d.record(verb, "error")
		return err
	}

	d.mu.Lock()
	d.pending = nil
	d.state = Idle
	d.mu.Unlock()

	d.notify.Success(msg)
	d.record(verb, "confirmed")
	if d.effects.Refresh != nil {
		if err := d.effects.Refresh(ctx); err != nil {
			d.log.Warn("refresh after write failed", zap.Error(err))
		}
	}
	return nil
}

// CancelConfirmation discards the pending action.
func (d *Dispatcher) CancelConfirmation() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Submitting {
		return
	}
	if d.pending != nil {
		d.pending = nil
		d.state = Idle
	}
}

// ModalClosed tells the dispatcher the modal went away.
func (d *Dispatcher) ModalClosed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case ModalOpen:
		d.state = Idle
	case Submitting:
		if d.resume == ModalOpen {
			d.resume = Idle
		}
	case Idle, ConfirmingDestructive:
	}
	d.modalURI = ""
}

func (d *Dispatcher) targets(record layout.Record) []layout.Record {
	if !record.Empty() {
		return []layout.Record{record}
	}
	if d.effects.Selection == nil {
		return nil
	}
	return d.effects.Selection()
}

func idsOf(records []layout.Record) []any {
	ids := make([]any, 0, len(records))
	for _, r := range records {
		if id := r.ID(); id != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// unsupported releases the lock taken by Dispatch.
func (d *Dispatcher) unsupported(verb layout.Verb) error {
	d.mu.Unlock()
	d.log.Debug("verb not supported on this screen", zap.Stringer("verb", verb))
	d.record(verb, "unsupported")
	return nil
}

func (d *Dispatcher) finish(verb layout.Verb, err error) error {
	if err != nil {
		d.record(verb, "error")
		return err
	}
	d.record(verb, "ok")
	return nil
}

func (d *Dispatcher) record(verb layout.Verb, outcome string) {
	d.metrics.RecordDispatch(verb.String(), outcome)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
