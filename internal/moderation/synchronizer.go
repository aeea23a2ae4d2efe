package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/irc"
	"go.uber.org/zap"
)

// listTimeout bounds the wait for each line of a list reply.
const listTimeout = 30 * time.Second

// syncedModes are the lists requested when joining a channel.
var syncedModes = []enum.ListMode{enum.ListModeBan, enum.ListModeQuiet}

// Synchronizer reconciles stored entries with a channel's lists after a join.
type Synchronizer struct {
	db     database.Client
	logger *zap.Logger
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(db database.Client, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		db:     db,
		logger: logger.Named("synchronizer"),
	}
}

// Reconcile requests the ban and quiet lists of a channel and brings the
// store in line with them.
func (s *Synchronizer) Reconcile(
	ctx context.Context, session Session, channel *types.Channel,
) (*types.ReconcileResult, error) {
	live, err := s.fetchLists(ctx, session, channel.Name)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Service().Entry().Reconcile(
		context.WithoutCancel(ctx), channel.ID, syncedModes, live, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Channel lists synchronized",
		zap.String("channel", channel.Name),
		zap.Int("listed", len(live)),
		zap.Int("closed", len(result.Closed)),
		zap.Int("created", len(result.Created)))

	return result, nil
}

// fetchLists sends MODE +bq and collects list replies until one end marker
// per requested list has arrived. Replies may interleave.
func (s *Synchronizer) fetchLists(ctx context.Context, session Session, channel string) ([]types.ListedMode, error) {
	folded := session.Casefold(channel)

	sub := session.Subscribe(func(l irc.Line) bool {
		switch l.Command {
		case irc.RplBanList, irc.RplEndOfBanList, irc.RplQuietList, irc.RplEndOfQuietList:
			return session.Casefold(l.Param(1)) == folded
		default:
			return false
		}
	})
	defer sub.Close()

	var letters []byte
	for _, mode := range syncedModes {
		letters = append(letters, mode.Letter())
	}

	if err := session.Send(ctx, "MODE", channel, "+"+string(letters)); err != nil {
		return nil, err
	}

	var live []types.ListedMode
	for waiting := len(syncedModes); waiting > 0; {
		line, err := sub.Next(ctx, listTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to read lists of %s: %w", channel, err)
		}

		switch line.Command {
		case irc.RplEndOfBanList, irc.RplEndOfQuietList:
			waiting--
		case irc.RplBanList:
			// :server 367 me #chan mask setter ts
			live = append(live, types.ListedMode{
				Mode:   enum.ListModeBan,
				Mask:   line.Param(2),
				Setter: line.Param(3),
			})
		case irc.RplQuietList:
			// :server 728 me #chan q mask setter ts
			live = append(live, types.ListedMode{
				Mode:   enum.ListModeQuiet,
				Mask:   line.Param(3),
				Setter: line.Param(4),
			})
		}
	}

	return live, nil
}
