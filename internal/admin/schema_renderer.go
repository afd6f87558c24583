// ABOUTME: Schema-driven HTML renderer for the admin screens.
// ABOUTME: Turns resolved cells, triggers, form items and search items into Tailwind-styled HTML.

package admin

import (
	"fmt"
	"html"
	"html/template"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/layout"
)

// inputTimeFormat is what <input type="datetime-local" step="1"> reads and
// writes. Seconds are kept so an untouched value posts back unchanged.
const inputTimeFormat = "2006-01-02T15:04:05"

// PageSizes are the choices of the page size changer.
var PageSizes = []int{10, 20, 50, 100}

const inputClass = "mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border"

// RenderCell renders one table cell. Row triggers post to action with the row id.
func RenderCell(cell builder.Cell, action, rowID string) template.HTML {
	switch c := cell.(type) {
	case builder.TextCell:
		return template.HTML(html.EscapeString(c.Text))
	case builder.BadgeCell:
		return template.HTML(RenderBadge(c))
	case builder.ActionsCell:
		var sb strings.Builder
		sb.WriteString(`<div class="flex gap-2 justify-end">`)
		for i, t := range c.Triggers {
			sb.WriteString(RenderTriggerForm(t, action, url.Values{
				"source": {"row"},
				"index":  {strconv.Itoa(i)},
				"id":     {rowID},
			}, true))
		}
		sb.WriteString(`</div>`)
		return template.HTML(sb.String())
	}
	return ""
}

// RenderBadge renders a switch value as a colored tag.
func RenderBadge(b builder.BadgeCell) string {
	class := "bg-red-100 text-red-800"
	if b.Color == builder.BadgeOn {
		class = "bg-blue-100 text-blue-800"
	}
	return fmt.Sprintf(`<span class="px-2 inline-flex text-xs leading-5 font-semibold rounded-full %s" data-color="%s">%s</span>`,
		class, html.EscapeString(b.Color), html.EscapeString(b.Label))
}

func triggerClass(t builder.Trigger, compact bool) string {
	size := "px-4 py-2 text-sm"
	if compact {
		size = "px-2 py-1 text-xs"
	}
	var color string
	switch t.Style {
	case builder.StylePrimary:
		color = "bg-purple-600 text-white hover:bg-purple-700"
	case builder.StyleDanger:
		color = "bg-red-600 text-white hover:bg-red-700"
	default:
		color = "bg-gray-200 text-gray-700 hover:bg-gray-300"
	}
	if t.Disabled {
		color += " opacity-50 cursor-not-allowed"
	}
	return size + " rounded " + color
}

// RenderTriggerButton renders a submit button for a trigger inside an
// enclosing form; name and value identify it in the post.
func RenderTriggerButton(t builder.Trigger, name, value string) string {
	disabled := ""
	if t.Disabled {
		disabled = " disabled"
	}
	return fmt.Sprintf(`<button type="submit" name="%s" value="%s" class="%s" data-action="%s"%s>%s</button>`,
		html.EscapeString(name), html.EscapeString(value), triggerClass(t, false),
		html.EscapeString(t.Action.Action), disabled, html.EscapeString(t.Title()))
}

// RenderTriggerForm renders a trigger as a self-contained form posting fields
// to action.
func RenderTriggerForm(t builder.Trigger, action string, fields url.Values, compact bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<form method="post" action="%s" class="inline">`, html.EscapeString(action))
	for _, k := range sortedKeys(fields) {
		for _, v := range fields[k] {
			fmt.Fprintf(&sb, `<input type="hidden" name="%s" value="%s">`, html.EscapeString(k), html.EscapeString(v))
		}
	}
	disabled := ""
	if t.Disabled {
		disabled = " disabled"
	}
	fmt.Fprintf(&sb, `<button type="submit" class="%s" data-action="%s"%s>%s</button>`,
		triggerClass(t, compact), html.EscapeString(t.Action.Action), disabled, html.EscapeString(t.Title()))
	sb.WriteString(`</form>`)
	return sb.String()
}

// RenderFormItem renders one labelled form control with its current value.
func RenderFormItem(item builder.FormItem, values adaptor.Values, loc *time.Location) template.HTML {
	var sb strings.Builder
	name := html.EscapeString(item.Key)
	value := values[item.Key]

	sb.WriteString(`<div>`)
	fmt.Fprintf(&sb, `<label class="block text-sm font-medium text-gray-700" for="f-%s">%s</label>`, name, html.EscapeString(item.Title))

	switch w := item.Widget.(type) {
	case builder.TextInput:
		fmt.Fprintf(&sb, `<input type="text" id="f-%s" name="%s" value="%s"%s class="%s">`,
			name, name, html.EscapeString(builder.FormatValue(value)), readonlyAttr(w.Disabled), inputClass)

	case builder.DateTimePicker:
		text, invalid := inputTime(value, loc)
		class := inputClass
		if invalid {
			class += " border-red-500"
		}
		fmt.Fprintf(&sb, `<input type="datetime-local" step="1" id="f-%s" name="%s" value="%s"%s class="%s">`,
			name, name, html.EscapeString(text), readonlyAttr(w.Disabled), class)
		if invalid {
			sb.WriteString(`<p class="mt-1 text-xs text-red-600">Invalid date</p>`)
		}

	case builder.Switch:
		on := layout.Truthy(value)
		if w.Disabled {
			fmt.Fprintf(&sb, `<input type="hidden" name="%s" value="%s">`, name, boolText(on))
			fmt.Fprintf(&sb, `<input type="checkbox" id="f-%s" disabled%s class="mt-1 rounded border-gray-300">`, name, checkedAttr(on))
		} else {
			fmt.Fprintf(&sb, `<input type="checkbox" id="f-%s" name="%s" value="1"%s class="mt-1 rounded border-gray-300">`, name, name, checkedAttr(on))
		}

	case builder.TreeSelect:
		selected := stringsOf(value)
		if w.Disabled {
			for _, v := range selected {
				fmt.Fprintf(&sb, `<input type="hidden" name="%s" value="%s">`, name, html.EscapeString(v))
			}
		}
		sb.WriteString(`<div class="mt-1 border rounded px-3 py-2">`)
		renderTree(&sb, item.Key, w.Options, selected, w.Disabled)
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</div>`)
	return template.HTML(sb.String())
}

// RenderSearchItem renders one control of the search panel.
func RenderSearchItem(item builder.SearchItem, values adaptor.Values, loc *time.Location) template.HTML {
	var sb strings.Builder
	name := html.EscapeString(item.Key)
	value := values[item.Key]

	sb.WriteString(`<div>`)
	fmt.Fprintf(&sb, `<label class="block text-xs font-medium text-gray-500 uppercase">%s</label>`, html.EscapeString(item.Title))

	switch w := item.Widget.(type) {
	case builder.TextInput:
		typ := "text"
		if w.Numeric {
			typ = "number"
		}
		fmt.Fprintf(&sb, `<input type="%s" name="%s" value="%s" class="%s">`, typ, name, html.EscapeString(builder.FormatValue(value)), inputClass)

	case builder.RangePicker:
		var from, to string
		if r, ok := value.([]time.Time); ok && len(r) == 2 {
			from, to = r[0].In(loc).Format(inputTimeFormat), r[1].In(loc).Format(inputTimeFormat)
		}
		sb.WriteString(`<div class="flex gap-1">`)
		fmt.Fprintf(&sb, `<input type="datetime-local" step="1" name="%s_from" value="%s" class="%s">`, name, html.EscapeString(from), inputClass)
		fmt.Fprintf(&sb, `<input type="datetime-local" step="1" name="%s_to" value="%s" class="%s">`, name, html.EscapeString(to), inputClass)
		sb.WriteString(`</div>`)

	case builder.Select:
		fmt.Fprintf(&sb, `<select name="%s" class="%s"><option value="">Any</option>`, name, inputClass)
		for _, opt := range w.Options {
			sel := ""
			if value != nil && layout.ValuesEqual(opt.Value, value) {
				sel = " selected"
			}
			fmt.Fprintf(&sb, `<option value="%s"%s>%s</option>`, html.EscapeString(builder.FormatValue(opt.Value)), sel, html.EscapeString(opt.Title))
		}
		sb.WriteString(`</select>`)

	case builder.TreeSelect:
		sb.WriteString(`<div class="mt-1 border rounded px-3 py-2 max-h-40 overflow-auto">`)
		renderTree(&sb, item.Key, w.Options, stringsOf(value), false)
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</div>`)
	return template.HTML(sb.String())
}

func renderTree(sb *strings.Builder, key string, options []layout.Option, selected []string, disabled bool) {
	if len(options) == 0 {
		return
	}
	sb.WriteString(`<ul class="space-y-1">`)
	for _, opt := range options {
		v := builder.FormatValue(opt.Value)
		on := false
		for _, s := range selected {
			if layout.ValuesEqual(opt.Value, s) {
				on = true
				break
			}
		}
		nameAttr := fmt.Sprintf(` name="%s"`, html.EscapeString(key))
		if disabled {
			nameAttr = " disabled"
		}
		fmt.Fprintf(sb, `<li><label class="inline-flex items-center gap-2 text-sm"><input type="checkbox"%s value="%s"%s class="rounded border-gray-300">%s</label>`,
			nameAttr, html.EscapeString(v), checkedAttr(on), html.EscapeString(opt.Title))
		if len(opt.Children) > 0 {
			sb.WriteString(`<div class="ml-5">`)
			renderTree(sb, key, opt.Children, selected, disabled)
			sb.WriteString(`</div>`)
		}
		sb.WriteString(`</li>`)
	}
	sb.WriteString(`</ul>`)
}

// RenderPagination renders page links, the size changer, the quick jumper and
// the item total. Links point at base/paginate.
func RenderPagination(meta layout.Meta, base string) template.HTML {
	perPage := meta.PerPage
	if perPage <= 0 {
		perPage = PageSizes[0]
	}
	pages := int(math.Ceil(float64(meta.Total) / float64(perPage)))
	if pages < 1 {
		pages = 1
	}
	current := min(max(meta.Page, 1), pages)
	link := func(page int) string {
		return fmt.Sprintf("%s/paginate?page=%d&per_page=%d", base, page, perPage)
	}

	var sb strings.Builder
	sb.WriteString(`<nav class="flex items-center gap-2 text-sm" aria-label="Pagination">`)
	fmt.Fprintf(&sb, `<span class="text-gray-600">Total %d items</span>`, meta.Total)
	if current > 1 {
		fmt.Fprintf(&sb, `<a href="%s" class="px-2 py-1 rounded border">&lsaquo;</a>`, html.EscapeString(link(current-1)))
	}
	first, last := max(current-3, 1), min(current+3, pages)
	for p := first; p <= last; p++ {
		if p == current {
			fmt.Fprintf(&sb, `<span class="px-2 py-1 rounded border border-purple-600 text-purple-700" aria-current="page">%d</span>`, p)
			continue
		}
		fmt.Fprintf(&sb, `<a href="%s" class="px-2 py-1 rounded border">%d</a>`, html.EscapeString(link(p)), p)
	}
	if current < pages {
		fmt.Fprintf(&sb, `<a href="%s" class="px-2 py-1 rounded border">&rsaquo;</a>`, html.EscapeString(link(current+1)))
	}

	fmt.Fprintf(&sb, `<form method="get" action="%s/paginate" class="inline-flex gap-1">`, html.EscapeString(base))
	sb.WriteString(`<input type="hidden" name="page" value="1">`)
	sb.WriteString(`<select name="per_page" onchange="this.form.submit()" class="rounded border px-1 py-1">`)
	for _, size := range PageSizes {
		sel := ""
		if size == perPage {
			sel = " selected"
		}
		fmt.Fprintf(&sb, `<option value="%d"%s>%d / page</option>`, size, sel, size)
	}
	sb.WriteString(`</select></form>`)

	fmt.Fprintf(&sb, `<form method="get" action="%s/paginate" class="inline-flex gap-1 items-center">`, html.EscapeString(base))
	fmt.Fprintf(&sb, `<input type="hidden" name="per_page" value="%d">`, perPage)
	fmt.Fprintf(&sb, `Go to <input type="number" name="page" min="1" max="%d" class="w-16 rounded border px-1 py-1">`, pages)
	sb.WriteString(`</form>`)

	sb.WriteString(`</nav>`)
	return template.HTML(sb.String())
}

func inputTime(v any, loc *time.Location) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if t.IsZero() {
			return "", false
		}
		return t.In(loc).Format(inputTimeFormat), false
	case adaptor.InvalidValue:
		return t.Raw, true
	}
	if t, ok := adaptor.ParseTime(v, loc); ok {
		return t.In(loc).Format(inputTimeFormat), false
	}
	return builder.FormatValue(v), true
}

func stringsOf(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, builder.FormatValue(item))
		}
		return out
	case nil:
		return nil
	}
	return []string{builder.FormatValue(v)}
}

func readonlyAttr(disabled bool) string {
	if disabled {
		return " readonly"
	}
	return ""
}

func checkedAttr(on bool) string {
	if on {
		return " checked"
	}
	return ""
}

func boolText(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

func sortedKeys(v url.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderSelectBox renders a row selection checkbox. htmx posts every checked
// box of the list to base/select when one changes.
func RenderSelectBox(base, id string, checked bool) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<input type="checkbox" name="ids" value="%s" form="selection"%s class="rounded border-gray-300" hx-post="%s/select" hx-include="[form=selection]" hx-trigger="change" hx-target="#screen" hx-swap="outerHTML">`,
		html.EscapeString(id), checkedAttr(checked), html.EscapeString(base)))
}
