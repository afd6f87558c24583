// ABOUTME: Modal form screen layered over a list screen.
// ABOUTME: Closes itself on read failure and hides with a reload after a submit.

package screen

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/2389/basiclist/internal/adaptor"
	"github.com/2389/basiclist/internal/layout"
)

// ModalView is the render state of a modal.
type ModalView struct {
	FormView
	Visible bool
}

// ModalScreen is a form shown in a dialog. Only the first tab is rendered and
// the footer carries the first action group.
type ModalScreen struct {
	fs     *formScreen
	onHide func(ctx context.Context, reload bool)

	mu      sync.Mutex
	visible bool
}

// NewModalScreen builds a modal. onHide runs once every time it goes away.
func NewModalScreen(deps Deps, onHide func(ctx context.Context, reload bool)) *ModalScreen {
	m := &ModalScreen{onHide: onHide}
	m.fs = newFormScreen("modal", deps, formHooks{
		firstTabOnly: true,
		readFailed:   func(ctx context.Context) { m.Hide(ctx, false) },
		submitted:    func(ctx context.Context) { m.Hide(ctx, true) },
		cancelled:    func() { m.Hide(context.Background(), false) },
	})
	return m
}

// Open shows the modal and loads uri into its form.
func (m *ModalScreen) Open(ctx context.Context, uri string) error {
	m.mu.Lock()
	m.visible = true
	m.mu.Unlock()

	err := m.fs.open(ctx, uri)
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

// Hide closes the modal. reload asks the owner to refresh its data.
func (m *ModalScreen) Hide(ctx context.Context, reload bool) {
	m.mu.Lock()
	if !m.visible {
		m.mu.Unlock()
		return
	}
	m.visible = false
	m.mu.Unlock()

	m.fs.close()
	if m.onHide != nil {
		m.onHide(ctx, reload)
	}
}

// Visible reports whether the modal is showing.
func (m *ModalScreen) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// Input applies a form post to the modal's values.
func (m *ModalScreen) Input(form url.Values) {
	m.fs.form.Update(adaptor.DecodeForm(m.fs.fieldsForInput(), form, m.fs.deps.Location))
}

// Dispatch handles submit, cancel and reset from the modal footer.
func (m *ModalScreen) Dispatch(ctx context.Context, action layout.Action) error {
	return m.fs.dispatcher.Dispatch(ctx, action, nil)
}

// Form exposes the underlying form model.
func (m *ModalScreen) Form() *Form {
	return m.fs.form
}

// View returns the render state.
func (m *ModalScreen) View() ModalView {
	return ModalView{FormView: m.fs.view(), Visible: m.Visible()}
}
