package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, vault, body string) {
	t.Helper()
	path := FilePath(vault)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestNewRequiresVault(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	vault := t.TempDir()
	cfg, err := Load(vault)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.UserID)
	assert.Equal(t, HistorySQLite, cfg.HistoryBackend)
	assert.Equal(t, CacheFile, cfg.CacheBackend)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, DedupeStartTime, cfg.DedupeKey)
	assert.Equal(t, 5, cfg.DefaultIntensity)
	assert.Equal(t, filepath.Join(vault, ".storkwatch", "storkwatch.db"), cfg.DBPath)
}

func TestLoadFileEnvAndOptionPrecedence(t *testing.T) {
	vault := t.TempDir()
	writeConfigFile(t, vault, "user_id: file-user\ncache_backend: badger\nhistory_limit: 20\nnotes: false\n")
	t.Setenv("STORKWATCH_HISTORY_LIMIT", "30")

	cfg, err := Load(vault)
	require.NoError(t, err)
	assert.Equal(t, "file-user", cfg.UserID)
	assert.Equal(t, CacheBadger, cfg.CacheBackend)
	assert.Equal(t, 30, cfg.HistoryLimit)
	assert.False(t, cfg.Notes)

	cfg, err = Load(vault, WithUserID("flag-user"), WithHistoryLimit(5), WithUserID("  "))
	require.NoError(t, err)
	assert.Equal(t, "flag-user", cfg.UserID)
	assert.Equal(t, 5, cfg.HistoryLimit)
}

func TestLoadValidation(t *testing.T) {
	vault := t.TempDir()
	writeConfigFile(t, vault, "history_backend: firestore\n")
	_, err := Load(vault)
	assert.Error(t, err, "firestore backend without project must fail")

	writeConfigFile(t, vault, "history_backend: firestore\nfirestore_project: demo\n")
	_, err = Load(vault)
	assert.NoError(t, err)

	writeConfigFile(t, vault, "default_intensity: 11\n")
	_, err = Load(vault)
	assert.Error(t, err)

	writeConfigFile(t, vault, "metrics_addr: \":9464\"\n")
	_, err = Load(vault)
	assert.NoError(t, err)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("STORKWATCH_NOTES", "maybe")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
