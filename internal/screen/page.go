// ABOUTME: Standalone form page screen with tabs and action cards.
// ABOUTME: Goes back on read failure, on cancel and after a successful submit.

package screen

import (
	"context"
	"errors"
	"net/url"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/layout"
)

// PageScreen renders every tab of a form and all its action groups.
type PageScreen struct {
	fs *formScreen
}

// NewPageScreen builds a page screen.
func NewPageScreen(deps Deps) *PageScreen {
	p := &PageScreen{}
	p.fs = newFormScreen("page", deps, formHooks{
		readFailed: func(context.Context) { p.fs.deps.Nav.Back() },
		submitted:  func(context.Context) { p.fs.deps.Nav.Back() },
		cancelled:  func() { p.fs.deps.Nav.Back() },
	})
	return p
}

// Load fetches uri and initializes the form.
func (p *PageScreen) Load(ctx context.Context, uri string) error {
	err := p.fs.open(ctx, uri)
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

// URI is the API path the page was loaded from.
func (p *PageScreen) URI() string {
	p.fs.mu.Lock()
	defer p.fs.mu.Unlock()
	return p.fs.uri
}

// Input applies a form post to the page's values.
func (p *PageScreen) Input(form url.Values) {
	p.fs.form.Update(adaptor.DecodeForm(p.fs.fieldsForInput(), form, p.fs.deps.Location))
}

// Dispatch handles submit, cancel and reset.
func (p *PageScreen) Dispatch(ctx context.Context, action layout.Action) error {
	return p.fs.dispatcher.Dispatch(ctx, action, nil)
}

// Form exposes the underlying form model.
func (p *PageScreen) Form() *Form {
	return p.fs.form
}

// View returns the render state.
func (p *PageScreen) View() FormView {
	return p.fs.view()
}

// Close drops the loaded page.
func (p *PageScreen) Close() {
	p.fs.close()
}
