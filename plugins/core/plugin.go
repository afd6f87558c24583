// ABOUTME: Core plugin interface for the mock admin API.
// ABOUTME: Defines the contract every resource plugin implements.

package core

import (
	"context"
	"database/sql"

	"github.com/2389/basiclist/internal/layoutfs"
	"github.com/2389/basiclist/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Plugin serves one or more list resources under /api.
type Plugin interface {
	Name() string
	Health() HealthStatus

	// RegisterRoutes mounts the plugin's /api routes.
	RegisterRoutes(r chi.Router)

	// Resources lists what the admin UI can browse.
	Resources() []Resource

	Seed(ctx context.Context, size string) (SeedData, error)
}

// DatabasePlugin is a plugin that keeps its data in the shared SQLite database.
type DatabasePlugin interface {
	Plugin
	SetDB(db *sql.DB) error
}

// StorePlugin is a plugin that reads the server's own tables, such as the
// request log.
type StorePlugin interface {
	Plugin
	SetStore(s *store.Store)
}

// LayoutPlugin is a plugin whose layouts can be overridden from disk.
type LayoutPlugin interface {
	Plugin
	SetLayouts(dir *layoutfs.Dir)
}

// LoggingPlugin is a plugin that logs through the server's logger.
type LoggingPlugin interface {
	Plugin
	SetLogger(log *zap.Logger)
}

// Resource is a browsable list endpoint.
type Resource struct {
	Name        string // "Admins"
	Slug        string // "admins", the /basic-list/{slug} path segment
	Path        string // "/api/admins", the list read endpoint
	Description string
}

// HealthStatus represents plugin health
type HealthStatus struct {
	Status  string // "healthy", "degraded", "unavailable"
	Message string
}

// SeedData represents data generation results
type SeedData struct {
	Summary string         // Human-readable summary
	Records map[string]int // Resource counts: {"admins": 25}
}
