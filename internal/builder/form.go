// ABOUTME: Form and search resolvers mapping field descriptors to input widgets.
// ABOUTME: Unrecognised kinds are omitted and the omission is logged.

package builder

import (
	"github.com/2389/basiclist/internal/layout"
	"go.uber.org/zap"
)

// Widget describes how to render one input control.
type Widget interface {
	widget()
}

// TextInput is a single-line text box.
type TextInput struct {
	Disabled bool
	Numeric  bool
}

// DateTimePicker edits one point in time.
type DateTimePicker struct {
	Disabled bool
}

// RangePicker edits a from/to pair of datetimes.
type RangePicker struct{}

// TreeSelect is a hierarchical multi-select.
type TreeSelect struct {
	Options   []layout.Option
	Checkable bool
	Disabled  bool
}

// Switch is a boolean toggle bound through ValueProp instead of a plain value.
type Switch struct {
	ValueProp string
	Disabled  bool
}

// Select picks one option from a flat set.
type Select struct {
	Options []layout.Option
}

func (TextInput) widget()      {}
func (DateTimePicker) widget() {}
func (RangePicker) widget()    {}
func (TreeSelect) widget()     {}
func (Switch) widget()         {}
func (Select) widget()         {}

// FormItem is one labelled control of a form.
type FormItem struct {
	Key    string
	Title  string
	Kind   layout.Kind
	Widget Widget
}

// SearchItem is one labelled control of the search panel.
type SearchItem struct {
	Key    string
	Title  string
	Kind   layout.Kind
	Widget Widget
}

// FormItems resolves the editable controls of a form, in order.
func FormItems(fields []layout.Field, l *zap.Logger) []FormItem {
	log := logger(l)
	out := make([]FormItem, 0, len(fields))
	var skipped []string
	for _, field := range fields {
		var w Widget
		switch field.Kind() {
		case layout.KindText:
			w = TextInput{Disabled: field.Disabled}
		case layout.KindDatetime:
			// the server stamps update_time itself
			if field.Key == "update_time" {
				continue
			}
			w = DateTimePicker{Disabled: field.Disabled}
		case layout.KindTree:
			w = TreeSelect{Options: field.Data, Checkable: true, Disabled: field.Disabled}
		case layout.KindSwitch:
			w = Switch{ValueProp: "checked", Disabled: field.Disabled}
		case layout.KindActions, layout.KindUnknown:
			skipped = append(skipped, field.Key+":"+field.Type)
			continue
		}
		out = append(out, FormItem{Key: field.Key, Title: field.Title, Kind: field.Kind(), Widget: w})
	}
	if len(skipped) > 0 {
		log.Debug("form fields omitted", zap.Strings("fields", skipped))
	}
	return out
}

// IDSearchItem is the numeric id input that leads every search panel.
func IDSearchItem() SearchItem {
	return SearchItem{Key: "id", Title: "ID", Kind: layout.KindText, Widget: TextInput{Numeric: true}}
}

// SearchItems resolves the search panel controls for the list columns.
func SearchItems(fields []layout.Field, l *zap.Logger) []SearchItem {
	log := logger(l)
	out := make([]SearchItem, 0, len(fields))
	var skipped []string
	for _, field := range fields {
		var w Widget
		switch field.Kind() {
		case layout.KindText:
			w = TextInput{}
		case layout.KindDatetime:
			w = RangePicker{}
		case layout.KindSwitch:
			w = Select{Options: field.Data}
		case layout.KindTree:
			w = TreeSelect{Options: field.Data, Checkable: true}
		case layout.KindActions, layout.KindUnknown:
			skipped = append(skipped, field.Key+":"+field.Type)
			continue
		}
		out = append(out, SearchItem{Key: field.Key, Title: field.Title, Kind: field.Kind(), Widget: w})
	}
	if len(skipped) > 0 {
		log.Debug("search fields omitted", zap.Strings("fields", skipped))
	}
	return out
}
