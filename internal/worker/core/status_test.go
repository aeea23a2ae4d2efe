package core_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/worker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisClient(t *testing.T) (rueidis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, mr
}

func TestMonitorReportAndList(t *testing.T) {
	t.Parallel()

	client, mr := newRedisClient(t)
	monitor := core.NewMonitor(client, zap.NewNop())

	status := core.Status{
		WorkerID:    "abc",
		WorkerType:  "expiry",
		CurrentTask: "Idle",
		IsHealthy:   true,
	}
	require.NoError(t, monitor.ReportStatus(t.Context(), status))

	assert.True(t, mr.Exists("worker:expiry:abc"))
	assert.Equal(t, core.HeartbeatTTL, mr.TTL("worker:expiry:abc"))

	statuses, err := monitor.GetAllStatuses(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "expiry", statuses[0].WorkerType)
	assert.Equal(t, "Idle", statuses[0].CurrentTask)
	assert.False(t, statuses[0].IsStale(time.Now()))
	assert.True(t, statuses[0].IsStale(time.Now().Add(2*core.StaleThreshold)))

	require.NoError(t, monitor.RemoveStatus(t.Context(), status))
	assert.False(t, mr.Exists("worker:expiry:abc"))
}

func TestStatusReporterHeartbeat(t *testing.T) {
	t.Parallel()

	client, mr := newRedisClient(t)
	reporter := core.NewStatusReporter(client, "expiry", zap.NewNop())
	reporter.UpdateStatus("Sweeping", 50)
	reporter.SetHealthy(false)

	reporter.Start(t.Context())
	defer reporter.Stop()

	key := "worker:expiry:" + reporter.GetWorkerID()
	require.Eventually(t, func() bool { return mr.Exists(key) }, 2*time.Second, 10*time.Millisecond)

	status := reporter.Status()
	assert.Equal(t, "Sweeping", status.CurrentTask)
	assert.Equal(t, 50, status.Progress)
	assert.False(t, status.IsHealthy)
}

func TestStatusReporterWithoutRedis(t *testing.T) {
	t.Parallel()

	reporter := core.NewStatusReporter(nil, "expiry", zap.NewNop())
	reporter.Start(t.Context())
	reporter.UpdateStatus("Idle", 0)
	reporter.Stop()
	reporter.Stop()

	assert.NotEmpty(t, reporter.GetWorkerID())
	assert.Equal(t, "Idle", reporter.Status().CurrentTask)
}
