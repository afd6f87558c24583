// ABOUTME: Entry point for the basiclist admin server.
// ABOUTME: Wires store, plugins, the admin UI and its API client behind serve, seed and reset commands.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/2389/basiclist/internal/admin"
	"github.com/2389/basiclist/internal/auth"
	"github.com/2389/basiclist/internal/client"
	"github.com/2389/basiclist/internal/config"
	"github.com/2389/basiclist/internal/layoutfs"
	"github.com/2389/basiclist/internal/logging"
	"github.com/2389/basiclist/internal/metrics"
	"github.com/2389/basiclist/internal/store"
	_ "github.com/2389/basiclist/plugins/admins"     // Register admins plugin
	"github.com/2389/basiclist/plugins/core"
	_ "github.com/2389/basiclist/plugins/requestlog" // Register request log plugin
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg      *config.Config
	logger   *zap.Logger
	seedSize string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port, dbPath, apiURL, apiKey, layoutsDir, logLevel string
		dev                                                bool
	)

	rootCmd := &cobra.Command{
		Use:   "basiclist",
		Short: "basiclist - schema-driven admin screens over a JSON API",
		Long: `basiclist serves list, modal and page screens whose columns, toolbars, forms
and actions all come from layouts returned by the API.

It ships with a mock API backed by SQLite:
  • /api/admins   Admins with groups, soft delete and restore
  • /api/logs     The request log of the /api routes

Quick Start:
  basiclist seed          # Generate test data
  basiclist serve         # Start server on port 9000
  basiclist reset         # Wipe and reseed database`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("api-url") {
				cfg.APIURL = strings.TrimRight(apiURL, "/")
			}
			if flags.Changed("api-key") {
				cfg.APIKey = apiKey
			}
			if flags.Changed("layouts") {
				cfg.LayoutsDir = layoutsDir
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("dev") {
				cfg.Development = dev
			}
			if cfg.DBPath, err = validateAndCleanDBPath(cfg.DBPath); err != nil {
				return err
			}
			logger, err = logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.Development})
			return err
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&dbPath, "db", "d", "", "Database path (default from BASICLIST_DB_PATH or the data directory)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolVar(&dev, "dev", false, "Human-readable development logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the basiclist HTTP server.

The server provides:
  • The mock API under /api (X-API-KEY required when an API key is set)
  • Admin screens at http://localhost:PORT/basic-list
  • Dashboard at http://localhost:PORT/admin
  • Health check at /healthz and Prometheus metrics at /metrics

Environment Variables:
  BASICLIST_PORT          Server port (default: 9000)
  BASICLIST_API_URL       Remote API the screens talk to (default: this server)
  BASICLIST_API_KEY       Shared API key
  BASICLIST_LAYOUTS_DIR   Directory of JSON layout overrides, reloaded on change
  BASICLIST_TZ            Time zone dates are shown and entered in
  BASICLIST_SESSION_TTL   Idle time before a UI session is dropped (default: 30m)`,
		RunE: runServe,
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().StringVar(&apiURL, "api-url", "", "Base URL of the API the screens read and write")
	serveCmd.Flags().StringVar(&apiKey, "api-key", "", "API key required on /api and sent by the screens")
	serveCmd.Flags().StringVar(&layoutsDir, "layouts", "", "Directory of JSON layout overrides")

	seedCmd := &cobra.Command{
		Use:   "seed [plugin]",
		Short: "Seed the database with test data",
		Long: `Seed the database with test data for all plugins or a specific one.

Set OPENAI_API_KEY to generate admin names with AI; static data is used otherwise.

Usage:
  basiclist seed                # Seed all plugins
  basiclist seed admins         # Seed only the admins plugin
  basiclist seed --size large   # 60 admins instead of 25

Note: usernames are unique, so seeding twice skips admins that already exist.`,
		RunE: runSeed,
		Args: cobra.MaximumNArgs(1),
	}
	seedCmd.Flags().StringVar(&seedSize, "size", "medium", "Amount of data: small, medium or large")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database (wipe and reseed)",
		Long: `Drop every table, migrate a fresh schema and seed all plugins.

Warning: This permanently deletes all data in the database!`,
		RunE: runReset,
	}
	resetCmd.Flags().StringVar(&seedSize, "size", "medium", "Amount of data: small, medium or large")

	rootCmd.AddCommand(serveCmd, seedCmd, resetCmd)
	return rootCmd
}

// validateAndCleanDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}
	cleanPath = filepath.Clean(cleanPath)

	if cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	badPatterns := []string{
		".git",
		".svn",
		"node_modules",
		".env",
		"credentials",
		"secret",
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

// server is the assembled HTTP handler plus the background work it needs.
type server struct {
	handler  http.Handler
	store    *store.Store
	layouts  *layoutfs.Dir
	sessions *admin.Sessions
	log      *zap.Logger
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// start runs the layout watcher and the session sweeper until ctx is done.
func (s *server) start(ctx context.Context) error {
	if err := s.layouts.Watch(ctx); err != nil {
		return err
	}
	go s.sessions.Run(ctx)
	return nil
}

func (s *server) Close() error {
	return s.store.Close()
}

func newServer(cfg *config.Config, log *zap.Logger) (*server, error) {
	s, err := store.New(cfg.DBPath, store.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	layouts, err := layoutfs.Open(cfg.LayoutsDir, layoutfs.WithLogger(log))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load layouts: %w", err)
	}
	collector := metrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.AccessLog(log))
	r.Use(collector.Middleware(routePattern))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", collector.Handler())
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	if err := initPlugins(s, layouts, log); err != nil {
		s.Close()
		return nil, err
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.APIKey))
		r.Use(logging.Middleware(s, log))
		for _, plugin := range core.All() {
			plugin.RegisterRoutes(r)
		}
	})

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "http://localhost:" + cfg.Port
	}
	api := client.New(apiURL,
		client.WithAPIKey(cfg.APIKey),
		client.WithLogger(log),
		client.WithMetrics(collector),
	)
	ui := admin.NewHandlers(admin.Config{
		API:        api,
		Store:      s,
		Location:   cfg.Location,
		Logger:     log,
		Metrics:    collector,
		SessionTTL: cfg.SessionTTL,
	})
	ui.RegisterRoutes(r)

	return &server{handler: r, store: s, layouts: layouts, sessions: ui.Sessions(), log: log}, nil
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// initPlugins hands every plugin the collaborators it asks for.
func initPlugins(s *store.Store, layouts *layoutfs.Dir, log *zap.Logger) error {
	for _, plugin := range core.All() {
		if p, ok := plugin.(core.LoggingPlugin); ok {
			p.SetLogger(log)
		}
		if p, ok := plugin.(core.DatabasePlugin); ok {
			if err := p.SetDB(s.GetDB()); err != nil {
				return fmt.Errorf("failed to initialize plugin %s: %w", plugin.Name(), err)
			}
		}
		if p, ok := plugin.(core.StorePlugin); ok {
			p.SetStore(s)
		}
		if p, ok := plugin.(core.LayoutPlugin); ok && layouts != nil {
			p.SetLayouts(layouts)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.start(ctx); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("basiclist server listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("db", cfg.DBPath),
			zap.String("api", cfg.APIURL))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runSeed(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	s, err := store.New(cfg.DBPath, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()

	var pluginName string
	if len(args) > 0 {
		pluginName = args[0]
	}
	return seedData(cmd, s, pluginName)
}

func runReset(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	s, err := store.New(cfg.DBPath, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Reset(); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return seedData(cmd, s, "")
}

func seedData(cmd *cobra.Command, s *store.Store, pluginFilter string) error {
	out := cmd.OutOrStdout()
	if err := initPlugins(s, nil, logger); err != nil {
		return err
	}

	totalRecords := 0
	seededCount := 0
	for _, plugin := range core.All() {
		if pluginFilter != "" && plugin.Name() != pluginFilter {
			continue
		}
		seeded, err := plugin.Seed(cmd.Context(), seedSize)
		if err != nil {
			logger.Error("seed failed", zap.String("plugin", plugin.Name()), zap.Error(err))
			continue
		}
		seededCount++
		if seeded.Summary != "" {
			fmt.Fprintf(out, "%s: %s\n", plugin.Name(), seeded.Summary)
		}
		for _, count := range seeded.Records {
			totalRecords += count
		}
	}

	if pluginFilter != "" && seededCount == 0 {
		fmt.Fprintf(out, "Plugin '%s' not found or failed to seed\n\nAvailable plugins:\n", pluginFilter)
		for _, name := range core.Names() {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		return fmt.Errorf("plugin '%s' not found", pluginFilter)
	}

	fmt.Fprintf(out, "\nSeeding complete! Created %d records\n", totalRecords)
	return nil
}
