// ABOUTME: Column resolver mapping list field descriptors to table columns.
// ABOUTME: Produces a render description per cell; HTML is produced by the admin package.

package builder

import (
	"fmt"
	"strings"
	"time"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/layout"
	"go.uber.org/zap"
)

// DateTimeFormat is how datetime cells are shown.
const DateTimeFormat = "2006-01-02 15:04:05"

// Badge colors for switch cells.
const (
	BadgeOn  = "blue"
	BadgeOff = "red"
)

// Cell describes how to render one table cell.
type Cell interface {
	cell()
}

// TextCell shows a plain value.
type TextCell struct {
	Text string
}

// BadgeCell shows a two-state colored tag.
type BadgeCell struct {
	Color string
	Label string
}

// ActionsCell shows the row's action triggers inline.
type ActionsCell struct {
	Triggers []Trigger
}

func (TextCell) cell()    {}
func (BadgeCell) cell()   {}
func (ActionsCell) cell() {}

// Options tunes column resolution.
type Options struct {
	// Location is the viewer's time zone. Defaults to time.Local.
	Location *time.Location
	// Busy reports whether row triggers should render disabled.
	Busy   func() bool
	Logger *zap.Logger
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) busy() bool {
	return o.Busy != nil && o.Busy()
}

// Column is one resolved table column.
type Column struct {
	Key      string
	Title    string
	Kind     layout.Kind
	Sortable bool

	field    layout.Field
	dispatch DispatchFunc
	opts     Options
}

// Field returns the descriptor the column was resolved from.
func (c Column) Field() layout.Field {
	return c.field
}

// Render builds the cell for one record.
func (c Column) Render(record layout.Record) Cell {
	value := record[c.Key]
	switch c.Kind {
	case layout.KindDatetime:
		if t, ok := adaptor.ParseTime(value, c.opts.location()); ok {
			return TextCell{Text: t.In(c.opts.location()).Format(DateTimeFormat)}
		}
		return TextCell{Text: FormatValue(value)}
	case layout.KindSwitch:
		return BadgeCell{Color: badgeColor(value), Label: OptionTitle(c.field.Data, value)}
	case layout.KindActions:
		return ActionsCell{Triggers: Triggers(c.field.Actions, c.dispatch, c.opts.busy(), record)}
	case layout.KindText, layout.KindTree, layout.KindUnknown:
		return TextCell{Text: FormatValue(value)}
	}
	return TextCell{Text: FormatValue(value)}
}

// IDColumn is the synthetic identity column every list starts with.
func IDColumn() Column {
	return Column{Key: "id", Title: "ID", Kind: layout.KindText, Sortable: true}
}

// Columns resolves the list columns: the ID column first, then every field not
// hidden in the table, in order.
func Columns(fields []layout.Field, dispatch DispatchFunc, opts Options) []Column {
	log := logger(opts.Logger)
	out := make([]Column, 0, len(fields)+1)
	out = append(out, IDColumn())

	var unknown []string
	for _, field := range fields {
		if field.HideInColumn {
			continue
		}
		kind := field.Kind()
		if kind == layout.KindUnknown {
			unknown = append(unknown, field.Key+":"+field.Type)
		}
		out = append(out, Column{
			Key:      field.Key,
			Title:    field.Title,
			Kind:     kind,
			field:    field,
			dispatch: dispatch,
			opts:     opts,
		})
	}
	if len(unknown) > 0 {
		log.Debug("unknown column types rendered as raw values", zap.Strings("fields", unknown))
	}
	return out
}

// OptionTitle returns the title of the first option whose value equals v, or "".
func OptionTitle(options []layout.Option, v any) string {
	for _, opt := range options {
		if layout.ValuesEqual(opt.Value, v) {
			return opt.Title
		}
	}
	return ""
}

// FormatValue prints a raw record value. Lists are comma-joined and nil is empty.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	}
	return fmt.Sprint(v)
}

func badgeColor(v any) string {
	if layout.Truthy(v) {
		return BadgeOn
	}
	return BadgeOff
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named("builder")
}
