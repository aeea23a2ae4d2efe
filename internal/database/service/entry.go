package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/models"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// EntryService handles entry business logic that spans several queries.
type EntryService struct {
	db     *bun.DB
	model  *models.EntryModel
	logger *zap.Logger
}

// NewEntry creates an EntryService.
func NewEntry(db *bun.DB, model *models.EntryModel, logger *zap.Logger) *EntryService {
	return &EntryService{
		db:     db,
		model:  model,
		logger: logger.Named("entry_service"),
	}
}

// entryKey identifies a list entry within a channel.
type entryKey struct {
	mode enum.ListMode
	mask string
}

// Reconcile brings the stored entries of a channel in line with the list
// reported by the server. Stored entries that are no longer set are closed
// without a remover, listed entries that are not stored are created with the
// reported setter, and entries present on both sides are left untouched.
// Only stored entries of the given modes are considered; nil means every mode.
// The whole pass runs in a single transaction, so running it twice with the
// same list changes nothing the second time.
func (s *EntryService) Reconcile(
	ctx context.Context, channelID int64, modes []enum.ListMode, live []types.ListedMode, at time.Time,
) (*types.ReconcileResult, error) {
	at = at.UTC().Truncate(time.Second)

	// Deduplicate the live list; the first reported setter wins
	liveKeys := make(map[entryKey]struct{}, len(live))
	unique := make([]types.ListedMode, 0, len(live))
	for _, listed := range live {
		key := entryKey{mode: listed.Mode, mask: listed.Mask}
		if _, ok := liveKeys[key]; ok {
			continue
		}
		liveKeys[key] = struct{}{}
		unique = append(unique, listed)
	}

	var result *types.ReconcileResult

	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		result = &types.ReconcileResult{}

		var active []*types.Entry
		query := tx.NewSelect().
			Model(&active).
			Where("channel_id = ?", channelID).
			Where("removed_at IS NULL").
			Order("id ASC")
		if len(modes) > 0 {
			query = query.Where("mode IN (?)", bun.In(modes))
		}
		if err := query.Scan(ctx); err != nil {
			return fmt.Errorf("failed to get active entries: %w", err)
		}

		storedKeys := make(map[entryKey]struct{}, len(active))
		for _, entry := range active {
			key := entryKey{mode: entry.Mode, mask: entry.MaskOrEmpty()}
			storedKeys[key] = struct{}{}

			if _, ok := liveKeys[key]; ok {
				continue
			}

			closed, err := s.model.CloseTx(ctx, tx, entry.ID, nil, at)
			if err != nil {
				return err
			}
			if closed {
				entry.RemovedAt = &at
				result.Closed = append(result.Closed, entry)
			}
		}

		for _, listed := range unique {
			if _, ok := storedKeys[entryKey{mode: listed.Mode, mask: listed.Mask}]; ok {
				continue
			}

			mask := listed.Mask
			entry := &types.Entry{
				ChannelID: channelID,
				Setter:    listed.Setter,
				Mode:      listed.Mode,
				CreatedAt: at,
				Mask:      &mask,
			}
			if err := s.model.CreateTx(ctx, tx, entry); err != nil {
				return err
			}
			result.Created = append(result.Created, entry)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile channel %d: %w", channelID, err)
	}

	if !result.IsZero() {
		s.logger.Info("Reconciled channel entries",
			zap.Int64("channelID", channelID),
			zap.Int("closed", len(result.Closed)),
			zap.Int("created", len(result.Created)))
	}

	return result, nil
}
