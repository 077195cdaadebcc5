package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"BB_API_BASE_URL", "BB_TRAILING_SLASH", "BB_STATE_PATH", "BB_SESSION_BACKEND",
		"BB_REDIS_ADDR", "BB_REDIS_DB", "BB_REQUEST_TIMEOUT", "BB_WATCH_CRON", "BB_DEBUG_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.True(t, cfg.TrailingSlash)
	assert.Equal(t, BackendBolt, cfg.SessionBackend)
	assert.Equal(t, DefaultWatchCron, cfg.WatchCron)
	assert.Zero(t, cfg.RequestTimeout)
	assert.NotEmpty(t, cfg.StatePath)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BB_API_BASE_URL", "https://bb.example.com/api/")
	t.Setenv("BB_TRAILING_SLASH", "false")
	t.Setenv("BB_SESSION_BACKEND", "Redis")
	t.Setenv("BB_REDIS_DB", "3")
	t.Setenv("BB_REQUEST_TIMEOUT", "15s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://bb.example.com/api", cfg.BaseURL)
	assert.False(t, cfg.TrailingSlash)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BB_SESSION_BACKEND", "sqlite")
	_, err := FromEnv()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("BB_REQUEST_TIMEOUT", "soon")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("BB_WATCH_CRON")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BB_WATCH_CRON=0 * * * *\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BB_WATCH_CRON") })

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", cfg.WatchCron)
}

func TestReloadOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("BB_WATCH_CRON", "0 * * * *")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BB_WATCH_CRON=*/10 * * * *\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", cfg.WatchCron)

	cfg, err = Reload(path)
	require.NoError(t, err)
	assert.Equal(t, "*/10 * * * *", cfg.WatchCron)
}
