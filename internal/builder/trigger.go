// ABOUTME: Action resolver turning action descriptors into interactive triggers.
// ABOUTME: Every trigger routes through the single dispatch callback of its screen.

package builder

import (
	"context"
	"errors"

	"github.com/2389/basiclist/internal/layout"
)

// ErrTriggerDisabled is returned when a disabled trigger is activated.
var ErrTriggerDisabled = errors.New("trigger is disabled")

// DispatchFunc is the shared action handler of a screen.
type DispatchFunc func(ctx context.Context, action layout.Action, record layout.Record) error

// Style is the visual emphasis of a trigger.
type Style string

const (
	StyleDefault Style = "default"
	StylePrimary Style = "primary"
	StyleDanger  Style = "danger"
)

// Trigger is one button bound to an action and an optional record.
type Trigger struct {
	Action   layout.Action
	Record   layout.Record
	Disabled bool
	Style    Style

	dispatch DispatchFunc
}

// Title is the button label.
func (t Trigger) Title() string {
	return t.Action.Title
}

// Activate hands the action and record to the dispatcher.
func (t Trigger) Activate(ctx context.Context) error {
	if t.Disabled {
		return ErrTriggerDisabled
	}
	if t.dispatch == nil {
		return nil
	}
	return t.dispatch(ctx, t.Action, t.Record)
}

// Triggers builds one trigger per action. busy disables all of them at once
// while a submission is in flight.
func Triggers(actions []layout.Action, dispatch DispatchFunc, busy bool, record layout.Record) []Trigger {
	out := make([]Trigger, 0, len(actions))
	for _, action := range actions {
		out = append(out, Trigger{
			Action:   action,
			Record:   record,
			Disabled: busy,
			Style:    styleFor(action.Verb()),
			dispatch: dispatch,
		})
	}
	return out
}

func styleFor(v layout.Verb) Style {
	switch {
	case v == layout.VerbSubmit:
		return StylePrimary
	case v.Destructive():
		return StyleDanger
	default:
		return StyleDefault
	}
}
