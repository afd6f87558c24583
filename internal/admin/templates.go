// ABOUTME: Template loading and rendering for admin UI.
// ABOUTME: Embeds HTML templates and provides render helpers.

package admin

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/2389/basiclist/internal/builder"
	"github.com/2389/basiclist/internal/layout"
)

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

var (
	layoutTmpl   *template.Template
	pageTmpls    map[string]*template.Template
	partialTmpls *template.Template
)

// partialPaths are the fragments htmx swaps in without the page chrome.
var partialPaths = []string{
	"templates/partials/screen.html",
	"templates/partials/confirm.html",
	"templates/partials/modal.html",
}

// pageDefinitions maps page names to their template files
func getPageDefinitions() map[string]string {
	return map[string]string{
		"dashboard": "templates/dashboard.html",
		"list":      "templates/list.html",
		"page":      "templates/page.html",
	}
}

var funcs = template.FuncMap{
	"cell": func(col builder.Column, rec layout.Record, action string) template.HTML {
		return RenderCell(col.Render(rec), action, rec.IDString())
	},
	"formItem":   RenderFormItem,
	"searchItem": RenderSearchItem,
	"pagination": RenderPagination,
	"selectBox":  RenderSelectBox,
	"button": func(t builder.Trigger, name string, value string) template.HTML {
		return template.HTML(RenderTriggerButton(t, name, value))
	},
	"trigger": func(t builder.Trigger, action, source string, index int) template.HTML {
		return template.HTML(RenderTriggerForm(t, action, url.Values{
			"source": {source},
			"index":  {strconv.Itoa(index)},
		}, false))
	},
	"slot": func(group, index int) string {
		return strconv.Itoa(group) + ":" + strconv.Itoa(index)
	},
	"uiPath": UIPath,
}

// parsePartialTemplates creates a template bundle with the htmx fragments
func parsePartialTemplates() *template.Template {
	return template.Must(template.New("partials").Funcs(funcs).ParseFS(templateFS, partialPaths...))
}

// parsePageTemplates creates a map of page templates, each with layout and partials
func parsePageTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template)
	for name, path := range getPageDefinitions() {
		tmpl := template.Must(layoutTmpl.Clone())
		tmpl = template.Must(tmpl.ParseFS(templateFS, path))
		tmpl = template.Must(tmpl.ParseFS(templateFS, partialPaths...))
		templates[name] = tmpl
	}
	return templates
}

func init() {
	layoutTmpl = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	partialTmpls = parsePartialTemplates()
	pageTmpls = parsePageTemplates()
}

func renderPage(w io.Writer, page string, data any) error {
	tmpl, ok := pageTmpls[page]
	if !ok {
		return nil
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

func renderPartial(w io.Writer, name string, data any) error {
	return partialTmpls.ExecuteTemplate(w, name, data)
}
