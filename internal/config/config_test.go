package config

import (
	"testing"
	"time"

	"guandan-scorekeeper/internal/constants"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{"STORE_BACKEND", "DB_PATH", "DATA_FILE", "SERVER_PORT", "LOG_LEVEL", "RETENTION_DAYS", "DEBUG_ERRORS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "data/games.db", cfg.DBPath)
	assert.Equal(t, "data/data.json", cfg.DataFile)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, constants.RetentionWindow, cfg.Retention)
	assert.False(t, cfg.DebugErrors)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "JSON")
	t.Setenv("DATA_FILE", "/var/lib/scores.json")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RETENTION_DAYS", "30")
	t.Setenv("DEBUG_ERRORS", "true")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, cfg.StoreBackend)
	assert.Equal(t, "/var/lib/scores.json", cfg.DataFile)
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention)
	assert.True(t, cfg.DebugErrors)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"backend":        {"STORE_BACKEND", "postgres"},
		"zero retention": {"RETENTION_DAYS", "0"},
		"text retention": {"RETENTION_DAYS", "a year"},
		"debug flag":     {"DEBUG_ERRORS", "sometimes"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load(zerolog.Nop())
			assert.ErrorContains(t, err, kv[0])
		})
	}
}
