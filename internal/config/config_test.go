package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultLimitsPath, cfg.LimitsPath)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, "/var/lib/session_times.registry", cfg.RegistryPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.JournalAudit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TIMELIMIT_STATE_PATH", "/tmp/state")
	t.Setenv("TIMELIMIT_LOG_LEVEL", "DEBUG")
	t.Setenv("TIMELIMIT_SESSION_TTL", "2h")
	t.Setenv("TIMELIMIT_JOURNAL_AUDIT", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/state", cfg.StatePath)
	assert.Equal(t, "debug", cfg.LogLevel, "level is normalised to lower case")
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.JournalAudit)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timelimit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits_path: /etc/custom.conf\nlog_format: text\n"), 0o600))
	t.Setenv("TIMELIMIT_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/custom.conf", cfg.LimitsPath)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timelimit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state_path: /from/file\n"), 0o600))
	t.Setenv("TIMELIMIT_CONFIG_FILE", path)
	t.Setenv("TIMELIMIT_STATE_PATH", "/from/env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.StatePath)
}

func TestLoad_RejectsTraversal(t *testing.T) {
	t.Setenv("TIMELIMIT_STATE_PATH", "/var/lib/../../etc/shadow")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadFormat(t *testing.T) {
	t.Setenv("TIMELIMIT_LOG_FORMAT", "xml")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsTinyTTL(t *testing.T) {
	t.Setenv("TIMELIMIT_SESSION_TTL", "5s")
	_, err := Load()
	assert.Error(t, err)
}
