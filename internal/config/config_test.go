// ABOUTME: Tests for environment configuration.
// ABOUTME: Uses t.Setenv so each case sees an isolated environment.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"BASICLIST_PORT", "BASICLIST_DB_PATH", "BASICLIST_API_URL", "BASICLIST_API_KEY",
	"BASICLIST_LAYOUTS_DIR", "BASICLIST_LOG_LEVEL", "BASICLIST_DEV", "BASICLIST_TZ",
	"BASICLIST_SESSION_TTL", "OPENAI_API_KEY", "OPENAI_MODEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultModel, cfg.OpenAIModel)
	assert.Equal(t, time.Local, cfg.Location)
	assert.False(t, cfg.Development)
	assert.False(t, cfg.OpenAIEnabled())
	assert.Empty(t, cfg.APIURL)
	assert.Equal(t, "basiclist.db", filepath.Base(cfg.DBPath))
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASICLIST_PORT", "8088")
	t.Setenv("BASICLIST_DB_PATH", "/tmp/admin.db")
	t.Setenv("BASICLIST_API_URL", "https://api.example.com/")
	t.Setenv("BASICLIST_API_KEY", "k")
	t.Setenv("BASICLIST_LAYOUTS_DIR", "./layouts")
	t.Setenv("BASICLIST_LOG_LEVEL", "debug")
	t.Setenv("BASICLIST_DEV", "true")
	t.Setenv("BASICLIST_TZ", "UTC")
	t.Setenv("BASICLIST_SESSION_TTL", "5m")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, "/tmp/admin.db", cfg.DBPath)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "./layouts", cfg.LayoutsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Development)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.OpenAIEnabled())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BASICLIST_DEV", "sometimes"},
		{"BASICLIST_TZ", "Mars/Olympus"},
		{"BASICLIST_SESSION_TTL", "soon"},
		{"BASICLIST_SESSION_TTL", "-1m"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestDefaultDBPath_UsesXDGDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	if _, err := os.Stat(filepath.Join(wd, "basiclist.db")); err == nil {
		t.Skip("a basiclist.db in the working directory takes precedence")
	}

	assert.Equal(t, filepath.Join(dir, "basiclist", "basiclist.db"), DefaultDBPath())
}
