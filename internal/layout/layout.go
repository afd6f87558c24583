// ABOUTME: Layout schema contract shared by the admin UI and the mock API.
// ABOUTME: Describes columns, form fields, actions and tabs delivered as JSON.

package layout

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind is the closed set of field widget kinds understood by the resolvers.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindDatetime
	KindTree
	KindSwitch
	KindActions
)

var kindNames = map[string]Kind{
	"text":     KindText,
	"datetime": KindDatetime,
	"tree":     KindTree,
	"switch":   KindSwitch,
	"actions":  KindActions,
}

// ParseKind maps a schema type string to a Kind. Unrecognised strings map to KindUnknown.
func ParseKind(s string) Kind {
	if k, ok := kindNames[s]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Verb is the closed set of symbolic actions an ActionDescriptor can carry.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbModal
	VerbPage
	VerbReload
	VerbDelete
	VerbDeletePermanently
	VerbRestore
	VerbSubmit
	VerbCancel
	VerbReset
)

var verbNames = []string{
	VerbUnknown:           "unknown",
	VerbModal:             "modal",
	VerbPage:              "page",
	VerbReload:            "reload",
	VerbDelete:            "delete",
	VerbDeletePermanently: "deletePermanently",
	VerbRestore:           "restore",
	VerbSubmit:            "submit",
	VerbCancel:            "cancel",
	VerbReset:             "reset",
}

// ParseVerb maps an action string to a Verb. Unrecognised strings map to VerbUnknown.
func ParseVerb(s string) Verb {
	for i, name := range verbNames {
		if i != int(VerbUnknown) && name == s {
			return Verb(i)
		}
	}
	return VerbUnknown
}

func (v Verb) String() string {
	if int(v) < 0 || int(v) >= len(verbNames) {
		return "unknown"
	}
	return verbNames[v]
}

// Destructive reports whether the verb needs a confirmation dialog before its write.
func (v Verb) Destructive() bool {
	return v == VerbDelete || v == VerbDeletePermanently || v == VerbRestore
}

// Option is one entry of a switch option set or a tree node.
type Option struct {
	Value    any      `json:"value"`
	Title    string   `json:"title"`
	Children []Option `json:"children,omitempty"`
}

// Action describes a trigger: its label, verb, URI template and HTTP method.
type Action struct {
	Title  string `json:"title"`
	Action string `json:"action"`
	URI    string `json:"uri,omitempty"`
	Method string `json:"method,omitempty"`
}

// Verb returns the closed variant of the action string.
func (a Action) Verb() Verb {
	return ParseVerb(a.Action)
}

// Field describes one column of the list or one control of a form.
type Field struct {
	Key          string   `json:"key"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	HideInColumn bool     `json:"hideInColumn,omitempty"`
	Disabled     bool     `json:"disabled,omitempty"`
	Data         []Option `json:"data,omitempty"`
	Actions      []Action `json:"actions,omitempty"`
}

// Kind returns the closed variant of the field's type string.
func (f Field) Kind() Kind {
	return ParseKind(f.Type)
}

// Tab groups form fields under a title.
type Tab struct {
	Title string  `json:"title"`
	Data  []Field `json:"data"`
}

// ActionGroup groups form actions under a title.
type ActionGroup struct {
	Title string   `json:"title"`
	Data  []Action `json:"data"`
}

// PageLayout is the layout of any screen. List screens use TableColumn and the
// toolbars; form screens use Tabs and Actions.
type PageLayout struct {
	TableColumn  []Field       `json:"tableColumn,omitempty"`
	TableToolBar []Action      `json:"tableToolBar,omitempty"`
	BatchToolBar []Action      `json:"batchToolBar,omitempty"`
	Tabs         []Tab         `json:"tabs,omitempty"`
	Actions      []ActionGroup `json:"actions,omitempty"`
}

// FormFields returns the fields of every tab in order.
func (l PageLayout) FormFields() []Field {
	var fields []Field
	for _, tab := range l.Tabs {
		fields = append(fields, tab.Data...)
	}
	return fields
}

// FirstActions returns the first action group's actions, or nil.
func (l PageLayout) FirstActions() []Action {
	if len(l.Actions) == 0 {
		return nil
	}
	return l.Actions[0].Data
}

// PageInfo carries the screen title.
type PageInfo struct {
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
}

// Meta is the pagination block of a list response.
type Meta struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// ListData is the payload of a list screen read.
type ListData struct {
	Page       *PageInfo  `json:"page,omitempty"`
	Layout     PageLayout `json:"layout"`
	DataSource []Record   `json:"dataSource"`
	Meta       Meta       `json:"meta"`
}

// PageData is the payload of a form screen read.
type PageData struct {
	Page       PageInfo   `json:"page"`
	Layout     PageLayout `json:"layout"`
	DataSource Record     `json:"dataSource"`
}

// Response is the envelope every endpoint answers with.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// DecodeList decodes a list read response. Numbers are kept as json.Number so
// record identities survive the round trip unchanged.
func DecodeList(r io.Reader) (*ListData, error) {
	var resp Response[ListData]
	if err := decode(r, &resp); err != nil {
		return nil, fmt.Errorf("decode list data: %w", err)
	}
	return &resp.Data, nil
}

// DecodePage decodes a form screen read response.
func DecodePage(r io.Reader) (*PageData, error) {
	var resp Response[PageData]
	if err := decode(r, &resp); err != nil {
		return nil, fmt.Errorf("decode page data: %w", err)
	}
	return &resp.Data, nil
}

func decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}
