package appshell_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-app-shell/internal/appshell"
	"github.com/klwxsrx/go-app-shell/pkg/log"
)

var configKeys = []string{
	"LOG_LEVEL", "API_BASE_URL", "API_TIMEOUT", "API_LOGIN_PATH", "API_REFRESH_PATH",
	"API_RETRY_COUNT", "API_RETRY_DELAY", "API_RETRY_MULTIPLIER",
	"SESSION_STORE", "SESSION_FILE", "SESSION_REDIS_ADDRESS", "SESSION_REDIS_KEY", "SESSION_REDIS_TTL",
	"SQL_USER", "SQL_PASSWORD", "SQL_ADDRESS", "SQL_DATABASE", "SESSION_SQL_KEY", "SERVER_ADDRESS",
}

// cleanEnv unsets the config keys for the test. t.Setenv registers the restore of the previous value.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	cleanEnv(t)
	t.Setenv("API_BASE_URL", "https://api.example.com")

	cfg, err := appshell.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, log.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "/auth/login", cfg.API.LoginPath)
	assert.Equal(t, "/auth/refresh", cfg.API.RefreshPath)
	assert.Equal(t, 3, cfg.API.Retry.Retries)
	assert.Equal(t, time.Second, cfg.API.Retry.Delay)
	assert.InDelta(t, 2.0, cfg.API.Retry.Multiplier, 0.0001)
	assert.Equal(t, appshell.SessionStoreFile, cfg.Session.Store)
	assert.Equal(t, "session.json", filepath.Base(cfg.Session.FilePath))
	assert.Equal(t, ":8080", cfg.ServerAddress)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	cleanEnv(t)
	envFile := filepath.Join(t.TempDir(), "shell.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"API_BASE_URL=https://file.example.com\n"+
			"LOG_LEVEL=debug\n"+
			"SESSION_STORE=redis\n"+
			"SESSION_REDIS_ADDRESS=localhost:6379\n"+
			"SESSION_REDIS_TTL=24h\n",
	), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := appshell.LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.API.BaseURL)
	assert.Equal(t, log.LevelWarn, cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, appshell.SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddress)
	assert.Equal(t, "appshell:session", cfg.Session.RedisKey)
	assert.Equal(t, 24*time.Hour, cfg.Session.RedisTTL)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		contains []string
	}{
		{
			name:     "missing_base_url",
			env:      map[string]string{},
			contains: []string{"API_BASE_URL"},
		},
		{
			name: "unknown_store",
			env: map[string]string{
				"API_BASE_URL":  "https://api.example.com",
				"SESSION_STORE": "etcd",
			},
			contains: []string{"etcd"},
		},
		{
			name: "postgres_requires_credentials",
			env: map[string]string{
				"API_BASE_URL":  "https://api.example.com",
				"SESSION_STORE": "postgres",
				"SQL_USER":      "shell",
			},
			contains: []string{"SQL_PASSWORD", "SQL_ADDRESS", "SQL_DATABASE"},
		},
		{
			name: "all_errors_reported",
			env: map[string]string{
				"LOG_LEVEL":       "verbose",
				"API_RETRY_COUNT": "many",
			},
			contains: []string{"verbose", "API_RETRY_COUNT", "API_BASE_URL"},
		},
		{
			name: "negative_retries",
			env: map[string]string{
				"API_BASE_URL":    "https://api.example.com",
				"API_RETRY_COUNT": "-1",
			},
			contains: []string{"API_RETRY_COUNT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := appshell.LoadConfig()
			require.Error(t, err)
			for _, part := range tt.contains {
				assert.Contains(t, err.Error(), part)
			}
		})
	}
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	cleanEnv(t)
	t.Setenv("API_BASE_URL", "https://api.example.com")

	_, err := appshell.LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
