package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("EVENTS_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5001", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, StorageBackendNone, cfg.Storage.Backend)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, EventsBackendNone, cfg.Events.Backend)
	assert.Empty(t, cfg.Postgres.DSN)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("STORAGE_BACKEND", "MINIO")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, StorageBackendMinio, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Minio.UseSSL)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "ftp")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORAGE_BACKEND", "none")
	t.Setenv("EVENTS_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("USERDIR_BACKEND_URL", "")
	t.Setenv("USERDIR_CLIENT_TIMEOUT_SECONDS", "")
	cfg := LoadClient()
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout())

	t.Setenv("USERDIR_BACKEND_URL", "https://users.example.com/")
	t.Setenv("USERDIR_CLIENT_TIMEOUT_SECONDS", "0")
	cfg = LoadClient()
	assert.Equal(t, "https://users.example.com", cfg.BackendURL)
	assert.Zero(t, cfg.Timeout())
}
