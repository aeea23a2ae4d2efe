package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/preference"
	"go.uber.org/zap"
)

// ModeEvent is what a channel MODE line changed in the store.
type ModeEvent struct {
	Channel *types.Channel
	Added   []*types.Entry
	Removed []*types.Entry
	Granted bool // The setter's account was newly recorded as a channel operator
}

// Observer applies live MODE changes of tracked channels to the store.
type Observer struct {
	db       database.Client
	prefs    *preference.Store
	reporter *Reporter
	logger   *zap.Logger
}

// NewObserver creates an Observer.
func NewObserver(db database.Client, prefs *preference.Store, reporter *Reporter, logger *zap.Logger) *Observer {
	return &Observer{
		db:       db,
		prefs:    prefs,
		reporter: reporter,
		logger:   logger.Named("observer"),
	}
}

// OnModeEvent records the list mode changes of a MODE line. Lines for
// untracked channels or channels we are not in are ignored and return nil.
func (o *Observer) OnModeEvent(ctx context.Context, session Session, line irc.Line) (*ModeEvent, error) {
	target := line.Param(0)
	if len(line.Params) < 2 || session.Casefold(target) == session.Casefold(session.Nick()) {
		return nil, nil
	}

	folded := session.Casefold(target)
	channel, err := o.db.Model().Channel().GetByName(ctx, folded)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, nil
	}
	if !session.InChannel(target) {
		o.logger.Debug("Ignoring mode change for channel we are not in", zap.String("channel", target))
		return nil, nil
	}

	// Writes finish even if shutdown starts mid-event
	writeCtx := context.WithoutCancel(ctx)
	event := &ModeEvent{Channel: channel}

	if account, ok := line.Account(); ok {
		granted, err := o.db.Model().ChanOp().Grant(writeCtx, channel.ID, session.Casefold(account))
		if err != nil {
			return nil, err
		}
		if granted {
			event.Granted = true
			o.logger.Info("Recorded channel operator",
				zap.String("channel", channel.Name),
				zap.String("account", account))
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, change := range irc.ParseModeChanges(session.ModeTakesArg, line.Param(1), line.Params[2:]) {
		mode, tracked := enum.ListModeFromLetter(change.Mode)
		if !tracked || !change.HasArg {
			continue
		}

		if change.Adding {
			entry, err := o.recordAdded(writeCtx, session, channel, line.Source, mode, change.Arg, now)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				event.Added = append(event.Added, entry)
			}
			continue
		}

		entry, err := o.recordRemoved(writeCtx, session, channel, line.Source, mode, change.Arg, now)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			event.Removed = append(event.Removed, entry)
		}
	}

	return event, nil
}

func (o *Observer) recordAdded(
	ctx context.Context, session Session, channel *types.Channel,
	source string, mode enum.ListMode, mask string, now time.Time,
) (*types.Entry, error) {
	// A change seen while the list was being synchronized may already be tracked
	existing, err := o.db.Model().Entry().GetLatestActive(ctx, channel.ID, mode, &mask)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		o.logger.Debug("Mode already tracked",
			zap.Int64("id", existing.ID),
			zap.String("channel", channel.Name),
			zap.String("mode", mode.String()),
			zap.String("mask", mask))
		return nil, nil
	}

	entry := &types.Entry{
		ChannelID: channel.ID,
		Setter:    source,
		Mode:      mode,
		CreatedAt: now,
		Mask:      &mask,
	}

	autoExpire, err := o.prefs.Int(ctx, preference.KeyAutoExpire, channel.Name)
	if err != nil {
		return nil, err
	}
	if autoExpire > preference.MaxAutoExpire {
		o.logger.Warn("autoExpire out of range, leaving entry without expiry",
			zap.String("channel", channel.Name),
			zap.Int64("autoExpire", autoExpire))
	} else if autoExpire > 0 {
		expiresAt := now.Add(time.Duration(autoExpire) * time.Second)
		entry.ExpiresAt = &expiresAt
	}

	if err := o.db.Model().Entry().Create(ctx, entry); err != nil {
		return nil, err
	}

	o.logger.Info("Entry added",
		zap.Int64("id", entry.ID),
		zap.String("channel", channel.Name),
		zap.String("mode", mode.String()),
		zap.String("mask", mask),
		zap.String("setter", source))

	o.requestComment(ctx, session, channel, entry)
	o.report(ctx, session, preference.ReportNew, channel.Name,
		fmt.Sprintf("%s set by \x02%s\x02", Describe(entry, channel.Name), source))

	return entry, nil
}

func (o *Observer) recordRemoved(
	ctx context.Context, session Session, channel *types.Channel,
	source string, mode enum.ListMode, mask string, now time.Time,
) (*types.Entry, error) {
	entry, err := o.db.Model().Entry().GetLatestActive(ctx, channel.ID, mode, &mask)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		o.logger.Debug("No active entry for removed mode",
			zap.String("channel", channel.Name),
			zap.String("mode", mode.String()),
			zap.String("mask", mask))
		return nil, nil
	}

	closed, err := o.db.Model().Entry().Close(ctx, entry.ID, &source, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		o.logger.Debug("Entry was already closed", zap.Int64("id", entry.ID))
		return nil, nil
	}

	entry.RemovedAt = &now
	entry.Remover = &source

	o.logger.Info("Entry removed",
		zap.Int64("id", entry.ID),
		zap.String("channel", channel.Name),
		zap.String("remover", source))

	o.report(ctx, session, preference.ReportRemoved, channel.Name,
		fmt.Sprintf("%s removed by \x02%s\x02", Describe(entry, channel.Name), source))

	return entry, nil
}

// requestComment asks the setter to explain a new entry when the channel wants that.
func (o *Observer) requestComment(ctx context.Context, session Session, channel *types.Channel, entry *types.Entry) {
	enabled, err := o.prefs.Bool(ctx, preference.KeyRequestComment, channel.Name)
	if err != nil {
		o.logger.Error("Failed to read requestComment", zap.Error(err))
		return
	}
	if !enabled {
		return
	}

	msg := fmt.Sprintf("Please comment on action %s (/msg %s comment %d +1w trolling)",
		Describe(entry, channel.Name), session.Nick(), entry.ID)

	if err := session.Send(ctx, "NOTICE", irc.SourceNick(entry.Setter), msg); err != nil {
		o.logger.Warn("Failed to request comment", zap.Int64("id", entry.ID), zap.Error(err))
	}
}

func (o *Observer) report(ctx context.Context, session Session, kind, channel, msg string) {
	if _, err := o.reporter.Report(ctx, session, kind, channel, msg); err != nil {
		o.logger.Warn("Failed to send report", zap.String("kind", kind), zap.Error(err))
	}
}
