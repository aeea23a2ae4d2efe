package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// StatusReporter handles automatic status reporting for workers.
// With a nil Redis client it only tracks status locally.
type StatusReporter struct {
	monitor  *Monitor
	status   Status
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewStatusReporter creates a new status reporter for a worker.
func NewStatusReporter(client rueidis.Client, workerType string, logger *zap.Logger) *StatusReporter {
	var monitor *Monitor
	if client != nil {
		monitor = NewMonitor(client, logger)
	}

	return &StatusReporter{
		monitor: monitor,
		status: Status{
			WorkerID:   uuid.New().String(),
			WorkerType: workerType,
			IsHealthy:  true,
		},
		stopChan: make(chan struct{}),
		logger:   logger.Named("status_reporter"),
	}
}

// Start begins periodic status reporting.
func (r *StatusReporter) Start(ctx context.Context) {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()

	if stopped || r.monitor == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(HeartbeatInterval)
		defer ticker.Stop()

		r.report(ctx)

		for {
			select {
			case <-ticker.C:
				r.report(ctx)
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Stop ends status reporting.
func (r *StatusReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.stopped {
		close(r.stopChan)
		r.stopped = true
	}
}

// UpdateStatus updates the current status.
func (r *StatusReporter) UpdateStatus(task string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.CurrentTask = task
	r.status.Progress = progress
}

// SetHealthy updates the health status.
func (r *StatusReporter) SetHealthy(healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.IsHealthy = healthy
}

// Status returns a copy of the current status.
func (r *StatusReporter) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// GetWorkerID returns the unique worker ID.
func (r *StatusReporter) GetWorkerID() string {
	return r.status.WorkerID
}

func (r *StatusReporter) report(ctx context.Context) {
	if err := r.monitor.ReportStatus(ctx, r.Status()); err != nil {
		r.logger.Error("Failed to report status", zap.Error(err))
	}
}
