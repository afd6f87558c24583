// ABOUTME: Runtime configuration from .env files and BASICLIST_* environment variables.
// ABOUTME: Resolves the database location, API endpoint, viewer time zone and session TTL.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved server configuration. CLI flags override fields
// after Load.
type Config struct {
	Port        string
	DBPath      string
	APIURL      string // empty means the server's own /api routes
	APIKey      string
	LayoutsDir  string
	LogLevel    string
	Development bool
	Location    *time.Location
	SessionTTL  time.Duration
	OpenAIKey   string
	OpenAIModel string
}

const (
	DefaultPort       = "9000"
	DefaultSessionTTL = 30 * time.Minute
	DefaultModel      = "gpt-5-mini"
)

// LoadEnvFiles loads .env from the working directory or one of its parents,
// then from the home directory. Variables already set win.
func LoadEnvFiles() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

// Load reads .env files and the environment.
func Load() (*Config, error) {
	LoadEnvFiles()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("BASICLIST_PORT", DefaultPort),
		DBPath:      os.Getenv("BASICLIST_DB_PATH"),
		APIURL:      strings.TrimRight(os.Getenv("BASICLIST_API_URL"), "/"),
		APIKey:      os.Getenv("BASICLIST_API_KEY"),
		LayoutsDir:  os.Getenv("BASICLIST_LAYOUTS_DIR"),
		LogLevel:    getEnv("BASICLIST_LOG_LEVEL", "info"),
		Location:    time.Local,
		SessionTTL:  DefaultSessionTTL,
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: getEnv("OPENAI_MODEL", DefaultModel),
	}

	if v := os.Getenv("BASICLIST_DEV"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("BASICLIST_DEV: %w", err)
		}
		cfg.Development = dev
	}
	if v := os.Getenv("BASICLIST_TZ"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("BASICLIST_TZ: %w", err)
		}
		cfg.Location = loc
	}
	if v := os.Getenv("BASICLIST_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BASICLIST_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("BASICLIST_SESSION_TTL must be positive, got %s", v)
		}
		cfg.SessionTTL = ttl
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}

// OpenAIEnabled reports whether seeding can call OpenAI.
func (c *Config) OpenAIEnabled() bool {
	return c.OpenAIKey != ""
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// DefaultDBPath prefers ./basiclist.db when it exists, then the XDG data
// directory (LOCALAPPDATA on Windows), then ./basiclist.db.
func DefaultDBPath() string {
	cwdPath := "./basiclist.db"
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			return cwdPath
		}
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dir := filepath.Join(dataHome, "basiclist")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cwdPath
	}
	return filepath.Join(dir, "basiclist.db")
}
