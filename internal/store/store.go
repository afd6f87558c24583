// ABOUTME: Core SQLite store for the basiclist server.
// ABOUTME: Handles database initialization, migrations and connection management.

package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Migration version constants
const (
	MigrationV1 = 1 // request_logs table
	MigrationV2 = 2 // composite indexes for the logs list and dashboard
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

// Store owns the SQLite connection shared by the core and the plugins.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l.Named("store")
		}
	}
}

// New opens dbPath and applies pending migrations.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection for plugins
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Reset drops every table, including plugin tables, and reapplies the core
// migrations. Plugins recreate their own schema in SetDB.
func (s *Store) Reset() error {
	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()

	if _, err := s.db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", t)); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	s.log.Info("dropped tables", zap.Int("count", len(tables)))
	return s.migrate()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	s.log.Debug("database schema version", zap.Int("current", currentVersion), zap.Int("target", CurrentSchemaVersion))

	if currentVersion < MigrationV1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}
	if currentVersion < MigrationV2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}
	return nil
}

func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) recordMigration(version int, description string) error {
	_, err := s.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, version, description)
	return err
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS request_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		plugin_name TEXT DEFAULT '',
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status_code INTEGER,
		duration_ms INTEGER,
		user_id TEXT,
		ip_address TEXT,
		user_agent TEXT,
		request_body TEXT,
		response_body TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_request_logs_path ON request_logs(path);
	CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs(status_code);
	CREATE INDEX IF NOT EXISTS idx_request_logs_plugin ON request_logs(plugin_name);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	if err := s.recordMigration(MigrationV1, "Create request_logs table and indexes"); err != nil {
		return err
	}
	s.log.Info("applied migration", zap.Int("version", MigrationV1))
	return nil
}

func (s *Store) migrateV2() error {
	indexes := []string{
		// Dashboard per-plugin counts over a time window
		"CREATE INDEX IF NOT EXISTS idx_request_logs_plugin_timestamp ON request_logs(plugin_name, timestamp DESC)",
		// Logs list filtered by method and status
		"CREATE INDEX IF NOT EXISTS idx_request_logs_method_status ON request_logs(method, status_code)",
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	if err := s.recordMigration(MigrationV2, "Add composite indexes for the logs list"); err != nil {
		return err
	}
	s.log.Info("applied migration", zap.Int("version", MigrationV2))
	return nil
}
