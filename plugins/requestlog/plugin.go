// ABOUTME: Request log plugin exposing recorded mock API traffic as a list resource.
// ABOUTME: Read-only apart from permanent deletion.

package requestlog

import (
	"context"

	"github.com/2389/basiclist/internal/layoutfs"
	"github.com/2389/basiclist/internal/store"
	"github.com/2389/basiclist/plugins/core"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LayoutList names the list layout override file.
const LayoutList = "requestlog.list"

func init() {
	core.Register(&RequestLogPlugin{log: zap.NewNop()})
}

type RequestLogPlugin struct {
	store   *store.Store
	layouts *layoutfs.Dir
	log     *zap.Logger
}

func (p *RequestLogPlugin) Name() string {
	return "requestlog"
}

func (p *RequestLogPlugin) Health() core.HealthStatus {
	if p.store == nil {
		return core.HealthStatus{Status: "unavailable", Message: "Request log store not initialized"}
	}
	return core.HealthStatus{Status: "healthy", Message: "Request log plugin operational"}
}

func (p *RequestLogPlugin) RegisterRoutes(r chi.Router) {
	r.Route("/api/logs", func(r chi.Router) {
		r.Get("/", p.handleList)
		r.Post("/delete", p.handleDelete)
		r.Get("/{id}", p.handleView)
	})
}

func (p *RequestLogPlugin) Resources() []core.Resource {
	return []core.Resource{
		{Name: "Request Logs", Slug: "logs", Path: "/api/logs", Description: "Calls made to the mock API"},
	}
}

// Seed has nothing to create; the log fills up as the API is used.
func (p *RequestLogPlugin) Seed(ctx context.Context, size string) (core.SeedData, error) {
	return core.SeedData{
		Summary: "Request logs are recorded from live traffic",
		Records: map[string]int{},
	}, nil
}

func (p *RequestLogPlugin) SetStore(s *store.Store) {
	p.store = s
}

func (p *RequestLogPlugin) SetLayouts(dir *layoutfs.Dir) {
	p.layouts = dir
}

func (p *RequestLogPlugin) SetLogger(log *zap.Logger) {
	p.log = log.Named("requestlog")
}
