package expiry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"github.com/robalyx/warden/internal/worker/core"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

// errorRetryDelay is how long the worker waits after a failed sweep.
const errorRetryDelay = 30 * time.Second

// SessionFunc returns the live session, or false while disconnected.
type SessionFunc func() (moderation.Session, bool)

// Worker lifts channel modes whose entries have expired.
type Worker struct {
	db       database.Client
	batcher  *moderation.Batcher
	reporter *moderation.Reporter
	session  SessionFunc
	status   *core.StatusReporter
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time

	// Entries already reported as expired. A lifted entry stays active until
	// the server echoes the removal, so later sweeps see it again.
	reported map[int64]struct{}
}

// SweepResult describes one pass of the expiry sweep.
type SweepResult struct {
	Expired  int // Entries found past their expiry
	Lifted   int // Entries whose modes were sent for removal
	Skipped  int // Entries left alone because we are not in their channel
	Channels int // Channels that received mode commands
}

// New creates a new expiry worker.
func New(
	db database.Client, batcher *moderation.Batcher, reporter *moderation.Reporter,
	session SessionFunc, statusClient rueidis.Client, interval time.Duration, logger *zap.Logger,
) *Worker {
	return &Worker{
		db:       db,
		batcher:  batcher,
		reporter: reporter,
		session:  session,
		status:   core.NewStatusReporter(statusClient, "expiry", logger),
		logger:   logger.Named("expiry_worker"),
		interval: interval,
		now:      time.Now,
		reported: make(map[int64]struct{}),
	}
}

// Start runs the sweep every interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Expiry Worker started", zap.String("workerID", w.status.GetWorkerID()))

	w.status.Start(ctx)
	defer w.status.Stop()

	for {
		w.status.UpdateStatus("Sweeping expired entries", 0)

		session, ok := w.session()
		if !ok {
			w.status.UpdateStatus("Waiting for connection", 0)
		} else {
			result, err := w.Sweep(ctx, session, w.now())
			if err != nil {
				w.logger.Error("Failed to sweep expired entries", zap.Error(err))
				w.status.SetHealthy(false)
				w.status.UpdateStatus("Error", 0)

				if !utils.ErrorSleep(ctx, errorRetryDelay, w.logger, "expiry worker") {
					return
				}

				continue
			}

			w.status.SetHealthy(true)

			if result.Expired > 0 {
				w.logger.Info("Swept expired entries",
					zap.Int("expired", result.Expired),
					zap.Int("lifted", result.Lifted),
					zap.Int("skipped", result.Skipped),
					zap.Int("channels", result.Channels))
			}

			w.status.UpdateStatus("Idle", 100)
		}

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "expiry worker") {
			return
		}
	}
}

// Sweep sends removals for every active entry that expired before now.
// Entries are closed later when the server echoes the removal back.
func (w *Worker) Sweep(ctx context.Context, session moderation.Session, now time.Time) (*SweepResult, error) {
	entries, err := w.db.Model().Entry().GetExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	w.forgetClosed(entries)

	result := &SweepResult{Expired: len(entries)}
	if len(entries) == 0 {
		return result, nil
	}

	byChannel := make(map[int64][]*types.Entry)
	ids := make([]int64, 0)
	for _, entry := range entries {
		if _, ok := byChannel[entry.ChannelID]; !ok {
			ids = append(ids, entry.ChannelID)
		}
		byChannel[entry.ChannelID] = append(byChannel[entry.ChannelID], entry)
	}

	channels, err := w.db.Model().Channel().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		group := byChannel[id]

		channel, ok := channels[id]
		if !ok || !session.InChannel(channel.Name) {
			result.Skipped += len(group)
			continue
		}

		if err := w.lift(ctx, session, channel, group); err != nil {
			return result, err
		}

		result.Lifted += len(group)
		result.Channels++
	}

	return result, nil
}

// lift removes all expired modes of one channel and reports each entry.
func (w *Worker) lift(ctx context.Context, session moderation.Session, channel *types.Channel, entries []*types.Entry) error {
	var modes strings.Builder
	args := make([]string, 0, len(entries))

	for _, entry := range entries {
		modes.WriteByte(entry.Mode.Letter())
		if entry.Mask != nil {
			args = append(args, *entry.Mask)
		}
	}

	if _, err := w.batcher.Apply(ctx, session, channel.Name, false, modes.String(), args); err != nil {
		return fmt.Errorf("failed to lift expired modes in %s: %w", channel.Name, err)
	}

	for _, entry := range entries {
		if _, ok := w.reported[entry.ID]; ok {
			continue
		}
		w.reported[entry.ID] = struct{}{}

		msg := moderation.Describe(entry, channel.Name) + " expired"
		if _, err := w.reporter.Report(ctx, session, preference.ReportExpired, channel.Name, msg); err != nil {
			w.logger.Error("Failed to report expired entry",
				zap.Int64("entryID", entry.ID),
				zap.Error(err))
		}
	}

	return nil
}

// forgetClosed drops reported ids that are no longer pending removal.
func (w *Worker) forgetClosed(pending []*types.Entry) {
	if len(w.reported) == 0 {
		return
	}

	still := make(map[int64]struct{}, len(pending))
	for _, entry := range pending {
		still[entry.ID] = struct{}{}
	}

	for id := range w.reported {
		if _, ok := still[id]; !ok {
			delete(w.reported, id)
		}
	}
}
