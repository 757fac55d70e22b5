package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ganot/task-timer/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "stdio", cfg.Server.Mode)
	require.Equal(t, "task-timer.db", cfg.DB.Path)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 1500, cfg.Timer.WorkSeconds)
	require.Equal(t, 4, cfg.Timer.LongRestInterval)
	require.True(t, cfg.Timer.SingleActive)
	require.Equal(t, 250, cfg.Loop.TickMillis)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
db:
  path: /tmp/custom.db
timer:
  work_seconds: 120
  single_active: false
loop:
  tick_ms: 500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("TASK_TIMER_CONFIG_PATH", path)
	t.Setenv("TASK_TIMER_LOG_LEVEL", "debug")
	t.Setenv("TASK_TIMER_SINGLE_ACTIVE", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "/tmp/custom.db", cfg.DB.Path)
	require.Equal(t, 120, cfg.Timer.WorkSeconds)
	require.Equal(t, 500, cfg.Loop.TickMillis)
	require.Equal(t, "debug", cfg.Log.Level, "env overrides file")
	require.True(t, cfg.Timer.SingleActive, "env overrides file")
}

func TestLoad_BadEnvValues(t *testing.T) {
	t.Setenv("TASK_TIMER_SERVER_PORT", "not-a-port")
	_, err := config.Load()
	require.Error(t, err)
}
