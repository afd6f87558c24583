// ABOUTME: Form model backing the modal and page screens.
// ABOUTME: Keeps the last-initialized snapshot so reset needs no network call.

package screen

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/layout"
	"go.uber.org/zap"
)

// ErrNoSubmitTarget means submit ran before the hidden uri was set.
var ErrNoSubmitTarget = errors.New("form has no submit target")

// FieldError is a validation failure on one field.
type FieldError struct {
	Key     string
	Title   string
	Message string
}

func (e *FieldError) Error() string {
	label := e.Title
	if label == "" {
		label = e.Key
	}
	return fmt.Sprintf("%s %s", label, e.Message)
}

// DefaultValues are the values a fresh form starts from.
func DefaultValues(now time.Time) adaptor.Values {
	return adaptor.Values{
		"create_time": now,
		"update_time": now,
		"status":      true,
	}
}

// Form holds the controls and values of one form screen.
type Form struct {
	log *zap.Logger

	mu      sync.Mutex
	items   []builder.FormItem
	initial adaptor.Values
	values  adaptor.Values
	uri     string
	method  string
}

// NewForm returns an empty form.
func NewForm(log *zap.Logger) *Form {
	if log == nil {
		log = zap.NewNop()
	}
	return &Form{log: log, initial: adaptor.Values{}, values: adaptor.Values{}}
}

// Init resolves the controls for fields and sets the values to defaults
// overlaid with loaded. That result becomes the reset snapshot.
func (f *Form) Init(fields []layout.Field, defaults, loaded adaptor.Values) {
	items := builder.FormItems(fields, f.log)
	initial := defaults.Clone()
	for k, v := range loaded {
		initial[k] = v
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
	f.initial = initial
	f.values = initial.Clone()
	f.uri, f.method = "", ""
}

// Clear drops controls, values and hidden fields.
func (f *Form) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.initial = adaptor.Values{}
	f.values = adaptor.Values{}
	f.uri, f.method = "", ""
}

// Update applies user input on top of the current values.
func (f *Form) Update(input adaptor.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range input {
		f.values[k] = v
	}
}

// Reset restores the last-initialized values, discarding edits.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.initial.Clone()
}

// SetHidden records where and how the form is submitted.
func (f *Form) SetHidden(uri, method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uri, f.method = uri, method
}

// Hidden returns the submit target.
func (f *Form) Hidden() (uri, method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uri, f.method
}

// Items returns the resolved controls.
func (f *Form) Items() []builder.FormItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]builder.FormItem(nil), f.items...)
}

// Values returns a copy of the current values.
func (f *Form) Values() adaptor.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

// Validate checks datetime input and the submit target.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.Kind != layout.KindDatetime {
			continue
		}
		if _, bad := f.values[item.Key].(adaptor.InvalidValue); bad {
			return &FieldError{Key: item.Key, Title: item.Title, Message: "is not a valid date and time"}
		}
	}
	if f.uri == "" {
		return ErrNoSubmitTarget
	}
	return nil
}

// Payload is the write body: the values of the rendered controls, shaped for
// the API.
func (f *Form) Payload() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	picked := adaptor.Values{}
	for _, item := range f.items {
		if v, ok := f.values[item.Key]; ok {
			picked[item.Key] = v
		}
	}
	return adaptor.SubmitFields(picked)
}
