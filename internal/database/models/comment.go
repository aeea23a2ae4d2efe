package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CommentModel handles database operations for entry comments.
type CommentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewComment creates a CommentModel.
func NewComment(db *bun.DB, logger *zap.Logger) *CommentModel {
	return &CommentModel{
		db:     db,
		logger: logger.Named("db_comment"),
	}
}

// Add appends a comment to an entry.
func (m *CommentModel) Add(ctx context.Context, comment *types.Comment) error {
	comment.CreatedAt = comment.CreatedAt.UTC().Truncate(time.Second)

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(comment).
			Returning("id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add comment to entry %d: %w", comment.EntryID, err)
		}

		return nil
	})
}

// GetByEntry lists the comments of an entry in the order they were written.
func (m *CommentModel) GetByEntry(ctx context.Context, entryID int64) ([]*types.Comment, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Comment, error) {
		var comments []*types.Comment

		err := m.db.NewSelect().
			Model(&comments).
			Where("entry_id = ?", entryID).
			Order("created_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get comments for entry %d: %w", entryID, err)
		}

		return comments, nil
	})
}

// CountByEntries counts comments for each of the given entries.
// Entries without comments are absent from the result.
func (m *CommentModel) CountByEntries(ctx context.Context, entryIDs []int64) (map[int64]int, error) {
	if len(entryIDs) == 0 {
		return map[int64]int{}, nil
	}

	return dbretry.Operation(ctx, func(ctx context.Context) (map[int64]int, error) {
		var rows []struct {
			EntryID int64 `bun:"entry_id"`
			Count   int   `bun:"count"`
		}

		err := m.db.NewSelect().
			Model((*types.Comment)(nil)).
			ColumnExpr("entry_id").
			ColumnExpr("COUNT(*) AS count").
			Where("entry_id IN (?)", bun.In(entryIDs)).
			Group("entry_id").
			Scan(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("failed to count comments: %w", err)
		}

		counts := make(map[int64]int, len(rows))
		for _, row := range rows {
			counts[row.EntryID] = row.Count
		}

		return counts, nil
	})
}
