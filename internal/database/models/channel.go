package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ChannelModel handles database operations for administered channels.
type ChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChannel creates a ChannelModel.
func NewChannel(db *bun.DB, logger *zap.Logger) *ChannelModel {
	return &ChannelModel{
		db:     db,
		logger: logger.Named("db_channel"),
	}
}

// Add records a channel with autojoin enabled. If the channel is already
// known its autojoin flag is turned back on. Name must already be casefolded.
func (m *ChannelModel) Add(ctx context.Context, name string) (*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Channel, error) {
		channel := &types.Channel{
			Name:     name,
			AutoJoin: true,
		}

		_, err := m.db.NewInsert().
			Model(channel).
			On("CONFLICT (name) DO UPDATE").
			Set("auto_join = EXCLUDED.auto_join").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to add channel %s: %w", name, err)
		}

		return channel, nil
	})
}

// GetByName retrieves a channel by its casefolded name.
// Returns nil if the channel is unknown.
func (m *ChannelModel) GetByName(ctx context.Context, name string) (*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Channel, error) {
		var channel types.Channel

		err := m.db.NewSelect().
			Model(&channel).
			Where("name = ?", name).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get channel %s: %w", name, err)
		}

		return &channel, nil
	})
}

// GetByID retrieves a channel by ID.
// Returns nil if the channel is unknown.
func (m *ChannelModel) GetByID(ctx context.Context, id int64) (*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Channel, error) {
		var channel types.Channel

		err := m.db.NewSelect().
			Model(&channel).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get channel %d: %w", id, err)
		}

		return &channel, nil
	})
}

// GetByIDs retrieves channels keyed by ID.
func (m *ChannelModel) GetByIDs(ctx context.Context, ids []int64) (map[int64]*types.Channel, error) {
	if len(ids) == 0 {
		return map[int64]*types.Channel{}, nil
	}

	return dbretry.Operation(ctx, func(ctx context.Context) (map[int64]*types.Channel, error) {
		var channels []*types.Channel

		err := m.db.NewSelect().
			Model(&channels).
			Where("id IN (?)", bun.In(ids)).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get channels: %w", err)
		}

		result := make(map[int64]*types.Channel, len(channels))
		for _, channel := range channels {
			result[channel.ID] = channel
		}

		return result, nil
	})
}

// GetAutoJoin retrieves every channel that should be joined on connect.
func (m *ChannelModel) GetAutoJoin(ctx context.Context) ([]*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Channel, error) {
		var channels []*types.Channel

		err := m.db.NewSelect().
			Model(&channels).
			Where("auto_join = ?", true).
			Order("name ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get autojoin channels: %w", err)
		}

		return channels, nil
	})
}

// GetAll retrieves every known channel.
func (m *ChannelModel) GetAll(ctx context.Context) ([]*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Channel, error) {
		var channels []*types.Channel

		if err := m.db.NewSelect().Model(&channels).Order("name ASC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to get channels: %w", err)
		}

		return channels, nil
	})
}

// SetAutoJoin updates whether a channel is joined on connect.
func (m *ChannelModel) SetAutoJoin(ctx context.Context, id int64, autoJoin bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Channel)(nil)).
			Set("auto_join = ?", autoJoin).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set autojoin for channel %d: %w", id, err)
		}

		m.logger.Debug("Updated channel autojoin",
			zap.Int64("channelID", id),
			zap.Bool("autoJoin", autoJoin))

		return nil
	})
}
