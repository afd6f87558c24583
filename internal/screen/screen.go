// ABOUTME: Shared collaborators of the list, modal and page screens.
// ABOUTME: Screens reach the remote API, navigation and notices only through these.

package screen

import (
	"context"
	"time"

	"github.com/2389/basiclist/internal/client"
	"github.com/2389/basiclist/internal/dispatch"
	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/internal/metrics"
	"go.uber.org/zap"
)

// API is the remote read and write surface a screen needs.
type API interface {
	List(ctx context.Context, path string, q client.Query) (*layout.ListData, error)
	Page(ctx context.Context, uri string) (*layout.PageData, error)
	Write(ctx context.Context, w client.WriteRequest) (*client.Result, error)
}

// Navigator moves the user between screens. Routes are API paths such as
// /api/admins/7; the presentation layer maps them onto its own URLs.
type Navigator interface {
	Push(route string)
	Back()
}

// Notifier surfaces success and error notices.
type Notifier = dispatch.Notifier

// Deps bundles what every screen is built from.
type Deps struct {
	API      API
	Nav      Navigator
	Notify   Notifier
	Location *time.Location
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	// Now stamps form defaults. Defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Nav == nil {
		d.Nav = nopNavigator{}
	}
	if d.Notify == nil {
		d.Notify = nopNotifier{}
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// DefaultPerPage is the page size used before the API reports one.
const DefaultPerPage = 10

// OperationName is the human label of a destructive verb.
func OperationName(v layout.Verb) string {
	switch v {
	case layout.VerbDelete:
		return "Delete"
	case layout.VerbDeletePermanently:
		return "Delete Permanently"
	case layout.VerbRestore:
		return "Restore"
	default:
		return v.String()
	}
}

type nopNavigator struct{}

func (nopNavigator) Push(string) {}
func (nopNavigator) Back()       {}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
