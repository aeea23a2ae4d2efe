package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SettingModel handles database operations for runtime setting overrides.
type SettingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSetting creates a SettingModel.
func NewSetting(db *bun.DB, logger *zap.Logger) *SettingModel {
	return &SettingModel{
		db:     db,
		logger: logger.Named("db_setting"),
	}
}

// GetBotSetting retrieves the global override for a key.
// Returns nil if no override exists.
func (m *SettingModel) GetBotSetting(ctx context.Context, key string) (*types.BotSetting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.BotSetting, error) {
		var setting types.BotSetting

		err := m.db.NewSelect().
			Model(&setting).
			Where("key = ?", key).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get bot setting %s: %w", key, err)
		}

		return &setting, nil
	})
}

// SaveBotSetting creates or replaces the global override for a key.
func (m *SettingModel) SaveBotSetting(ctx context.Context, key, value string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(&types.BotSetting{
				Key:       key,
				Value:     value,
				UpdatedAt: time.Now().UTC().Truncate(time.Second),
			}).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save bot setting %s: %w", key, err)
		}

		m.logger.Debug("Saved bot setting", zap.String("key", key))
		return nil
	})
}

// DeleteBotSetting removes the global override for a key.
func (m *SettingModel) DeleteBotSetting(ctx context.Context, key string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.BotSetting)(nil)).
			Where("key = ?", key).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete bot setting %s: %w", key, err)
		}

		return nil
	})
}

// GetChannelSetting retrieves a channel override for a key.
// Returns nil if no override exists.
func (m *SettingModel) GetChannelSetting(ctx context.Context, channelID int64, key string) (*types.ChannelSetting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ChannelSetting, error) {
		var setting types.ChannelSetting

		err := m.db.NewSelect().
			Model(&setting).
			Where("channel_id = ?", channelID).
			Where("key = ?", key).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get channel setting %s: %w", key, err)
		}

		return &setting, nil
	})
}

// SaveChannelSetting creates or replaces a channel override for a key.
func (m *SettingModel) SaveChannelSetting(ctx context.Context, channelID int64, key, value string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(&types.ChannelSetting{
				ChannelID: channelID,
				Key:       key,
				Value:     value,
				UpdatedAt: time.Now().UTC().Truncate(time.Second),
			}).
			On("CONFLICT (channel_id, key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save channel setting %s: %w", key, err)
		}

		m.logger.Debug("Saved channel setting",
			zap.Int64("channelID", channelID),
			zap.String("key", key))
		return nil
	})
}

// DeleteChannelSetting removes a channel override for a key.
func (m *SettingModel) DeleteChannelSetting(ctx context.Context, channelID int64, key string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.ChannelSetting)(nil)).
			Where("channel_id = ?", channelID).
			Where("key = ?", key).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete channel setting %s: %w", key, err)
		}

		return nil
	})
}
