package models

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ChanOpModel handles database operations for channel-operator grants.
type ChanOpModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChanOp creates a ChanOpModel.
func NewChanOp(db *bun.DB, logger *zap.Logger) *ChanOpModel {
	return &ChanOpModel{
		db:     db,
		logger: logger.Named("db_chanop"),
	}
}

// Grant records an account as an operator of a channel.
// Returns true if the grant is new.
func (m *ChanOpModel) Grant(ctx context.Context, channelID int64, account string) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewInsert().
			Model(&types.ChanOp{
				ChannelID: channelID,
				Account:   account,
			}).
			On("CONFLICT (channel_id, account) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to grant chanop: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get rows affected: %w", err)
		}

		return affected > 0, nil
	})
}

// IsGranted checks whether an account is a known operator of a channel.
func (m *ChanOpModel) IsGranted(ctx context.Context, channelID int64, account string) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.ChanOp)(nil)).
			Where("channel_id = ?", channelID).
			Where("account = ?", account).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check chanop: %w", err)
		}

		return exists, nil
	})
}

// GetByChannel lists the operator accounts of a channel.
func (m *ChanOpModel) GetByChannel(ctx context.Context, channelID int64) ([]*types.ChanOp, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ChanOp, error) {
		var ops []*types.ChanOp

		err := m.db.NewSelect().
			Model(&ops).
			Where("channel_id = ?", channelID).
			Order("account ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chanops: %w", err)
		}

		return ops, nil
	})
}

// Revoke removes an operator grant.
// Returns true if a grant was removed.
func (m *ChanOpModel) Revoke(ctx context.Context, channelID int64, account string) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewDelete().
			Model((*types.ChanOp)(nil)).
			Where("channel_id = ?", channelID).
			Where("account = ?", account).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to revoke chanop: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get rows affected: %w", err)
		}

		return affected > 0, nil
	})
}
