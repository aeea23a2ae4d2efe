package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerWritesSessionLogs(t *testing.T) {
	t.Parallel()

	logDir := filepath.Join(t.TempDir(), "bot_logs")
	manager := telemetry.NewManager(telemetry.ServiceBot, logDir, &config.Debug{
		LogLevel:      "debug",
		MaxLogsToKeep: 3,
		MaxLogLines:   100,
	})

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello from main")
	dbLogger.Debug("hello from db")
	manager.GetWorkerLogger("expiry_worker").Info("hello from worker")
	manager.Stop()

	sessionDir := manager.GetCurrentSessionDir()
	for name, want := range map[string]string{
		"main.log":          "hello from main",
		"database.log":      "hello from db",
		"expiry_worker.log": "hello from worker",
	} {
		data, err := os.ReadFile(filepath.Join(sessionDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), want, name)
	}
	assert.NotEmpty(t, manager.GetInstanceID())
}

func TestManagerRotatesOldSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for i, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(logDir, name)
		require.NoError(t, os.Mkdir(dir, 0o755))
		modTime := time.Now().Add(time.Duration(i-10) * time.Hour)
		require.NoError(t, os.Chtimes(dir, modTime, modTime))
	}

	manager := telemetry.NewManager(telemetry.ServiceDB, logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 2,
		MaxLogLines:   100,
	})
	_, _, err := manager.GetLoggers()
	require.NoError(t, err)
	t.Cleanup(manager.Stop)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Len(t, names, 2)
	assert.Contains(t, names, "c")
	assert.Contains(t, names, filepath.Base(manager.GetCurrentSessionDir()))
}

func TestManagerRejectsBadLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(telemetry.ServiceExport, t.TempDir(), &config.Debug{
		LogLevel:      "loud",
		MaxLogsToKeep: 1,
		MaxLogLines:   10,
	})
	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
