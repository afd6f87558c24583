// ABOUTME: Admins plugin for the mock admin API.
// ABOUTME: Serves the admins list, its trash view and the add/edit forms.

package admins

import (
	"database/sql"

	"github.com/2389/basiclist/internal/layoutfs"
	"github.com/2389/basiclist/plugins/core"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func init() {
	core.Register(&AdminsPlugin{log: zap.NewNop()})
}

type AdminsPlugin struct {
	store   *Store
	layouts *layoutfs.Dir
	log     *zap.Logger
}

func (p *AdminsPlugin) Name() string {
	return "admins"
}

func (p *AdminsPlugin) Health() core.HealthStatus {
	if p.store == nil {
		return core.HealthStatus{Status: "unavailable", Message: "Admins store not initialized"}
	}
	return core.HealthStatus{
		Status:  "healthy",
		Message: "Admins plugin operational",
	}
}

func (p *AdminsPlugin) RegisterRoutes(r chi.Router) {
	r.Route("/api/admins", func(r chi.Router) {
		r.Get("/", p.handleList)
		r.Post("/", p.handleCreate)
		r.Get("/add", p.handleAdd)
		r.Post("/delete", p.handleDelete)
		r.Post("/restore", p.handleRestore)
		r.Get("/{id}", p.handleEdit)
		r.Put("/{id}", p.handleUpdate)
	})
}

func (p *AdminsPlugin) Resources() []core.Resource {
	return []core.Resource{
		{Name: "Admins", Slug: "admins", Path: "/api/admins", Description: "Back-office accounts and their groups"},
		{Name: "Admins Trash", Slug: "admins-trash", Path: "/api/admins?trash=onlyTrashed", Description: "Soft-deleted admins"},
	}
}

// SetDB initializes the admins tables.
func (p *AdminsPlugin) SetDB(db *sql.DB) error {
	store, err := NewStore(db)
	if err != nil {
		return err
	}
	p.store = store
	return nil
}

// SetLayouts installs the layout overrides directory.
func (p *AdminsPlugin) SetLayouts(dir *layoutfs.Dir) {
	p.layouts = dir
}

func (p *AdminsPlugin) SetLogger(log *zap.Logger) {
	p.log = log.Named("admins")
}
