package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// EntryModel handles database operations for moderation entries.
type EntryModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewEntry creates an EntryModel.
func NewEntry(db *bun.DB, logger *zap.Logger) *EntryModel {
	return &EntryModel{
		db:     db,
		logger: logger.Named("db_entry"),
	}
}

// Create inserts a new entry and fills in its ID.
func (m *EntryModel) Create(ctx context.Context, entry *types.Entry) error {
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Second)

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(entry).
			Returning("id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		m.logger.Debug("Created entry",
			zap.Int64("id", entry.ID),
			zap.Int64("channelID", entry.ChannelID),
			zap.String("mode", entry.Mode.String()),
			zap.String("mask", entry.MaskOrEmpty()))

		return nil
	})
}

// GetByID retrieves an entry by its ID.
// Returns an error wrapping sql.ErrNoRows if no entry exists.
func (m *EntryModel) GetByID(ctx context.Context, id int64) (*types.Entry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Entry, error) {
		var entry types.Entry

		err := m.db.NewSelect().
			Model(&entry).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
		}

		return &entry, nil
	})
}

// GetActiveByChannel retrieves the active entries of a channel, newest first.
// A non-nil setter restricts results to entries placed by that source,
// and a positive limit caps the number of results.
func (m *EntryModel) GetActiveByChannel(
	ctx context.Context, channelID int64, setter *string, limit int,
) ([]*types.Entry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Entry, error) {
		var entries []*types.Entry

		query := m.db.NewSelect().
			Model(&entries).
			Where("channel_id = ?", channelID).
			Where("removed_at IS NULL").
			Order("id DESC")

		if setter != nil {
			query = query.Where("LOWER(setter) = LOWER(?)", *setter)
		}
		if limit > 0 {
			query = query.Limit(limit)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to get active entries: %w", err)
		}

		return entries, nil
	})
}

// GetLastBySetter retrieves the most recent entries placed by a source across all channels.
func (m *EntryModel) GetLastBySetter(ctx context.Context, setter string, limit int) ([]*types.Entry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Entry, error) {
		var entries []*types.Entry

		err := m.db.NewSelect().
			Model(&entries).
			Where("LOWER(setter) = LOWER(?)", setter).
			Order("id DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get entries by setter: %w", err)
		}

		return entries, nil
	})
}

// GetLatestActive finds the most recent active entry for a mode and mask in a channel.
// Returns nil if there is none.
func (m *EntryModel) GetLatestActive(
	ctx context.Context, channelID int64, mode enum.ListMode, mask *string,
) (*types.Entry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Entry, error) {
		var entry types.Entry

		query := m.db.NewSelect().
			Model(&entry).
			Where("channel_id = ?", channelID).
			Where("mode = ?", mode).
			Where("removed_at IS NULL")

		if mask != nil {
			query = query.Where("mask = ?", *mask)
		} else {
			query = query.Where("mask IS NULL")
		}

		err := query.Order("id DESC").Limit(1).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to find active entry: %w", err)
		}

		return &entry, nil
	})
}

// GetExpired retrieves active entries whose expiry is before the given time,
// ordered by channel so callers can group them.
func (m *EntryModel) GetExpired(ctx context.Context, before time.Time) ([]*types.Entry, error) {
	before = before.UTC().Truncate(time.Second)

	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Entry, error) {
		var entries []*types.Entry

		err := m.db.NewSelect().
			Model(&entries).
			Where("removed_at IS NULL").
			Where("expires_at IS NOT NULL").
			Where("expires_at < ?", before).
			Order("channel_id ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get expired entries: %w", err)
		}

		return entries, nil
	})
}

// GetAfter retrieves a page of entries with IDs greater than afterID.
func (m *EntryModel) GetAfter(ctx context.Context, afterID int64, limit int) ([]*types.Entry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Entry, error) {
		var entries []*types.Entry

		err := m.db.NewSelect().
			Model(&entries).
			Where("id > ?", afterID).
			Order("id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get entries after %d: %w", afterID, err)
		}

		return entries, nil
	})
}

// Close marks an active entry as removed. Only the first close of an entry
// takes effect; later calls leave it untouched and return false.
func (m *EntryModel) Close(ctx context.Context, id int64, remover *string, at time.Time) (bool, error) {
	at = at.UTC().Truncate(time.Second)

	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		return closeEntry(ctx, m.db, id, remover, at)
	})
}

// SetExpiry sets or clears the expiry time of an entry.
func (m *EntryModel) SetExpiry(ctx context.Context, id int64, expiresAt *time.Time) error {
	if expiresAt != nil {
		normalized := expiresAt.UTC().Truncate(time.Second)
		expiresAt = &normalized
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Entry)(nil)).
			Set("expires_at = ?", expiresAt).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set expiry for entry %d: %w", id, err)
		}

		return nil
	})
}

// SetReason replaces the reason of an entry.
func (m *EntryModel) SetReason(ctx context.Context, id int64, reason string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Entry)(nil)).
			Set("reason = ?", reason).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set reason for entry %d: %w", id, err)
		}

		return nil
	})
}

// CloseTx closes an entry inside an existing transaction.
func (m *EntryModel) CloseTx(ctx context.Context, tx bun.Tx, id int64, remover *string, at time.Time) (bool, error) {
	return closeEntry(ctx, tx, id, remover, at.UTC().Truncate(time.Second))
}

// CreateTx inserts an entry inside an existing transaction.
func (m *EntryModel) CreateTx(ctx context.Context, tx bun.Tx, entry *types.Entry) error {
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Second)

	if _, err := tx.NewInsert().Model(entry).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

func closeEntry(ctx context.Context, db bun.IDB, id int64, remover *string, at time.Time) (bool, error) {
	result, err := db.NewUpdate().
		Model((*types.Entry)(nil)).
		Set("removed_at = ?", at).
		Set("remover = ?", remover).
		Where("id = ?", id).
		Where("removed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to close entry %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}
