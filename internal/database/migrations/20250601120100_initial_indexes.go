package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		statements := []string{
			// Active entries per channel, used on rejoin and for removals
			`CREATE INDEX IF NOT EXISTS idx_entries_channel_active
			ON entries (channel_id, mode, removed_at)`,

			// Expiry sweep only looks at active entries with an expiry
			`CREATE INDEX IF NOT EXISTS idx_entries_expires_active
			ON entries (expires_at) WHERE removed_at IS NULL`,

			// Comment lookups by setter
			`CREATE INDEX IF NOT EXISTS idx_entries_setter
			ON entries (setter)`,

			`CREATE INDEX IF NOT EXISTS idx_comments_entry
			ON comments (entry_id, created_at)`,
		}

		for _, statement := range statements {
			if _, err := db.NewRaw(statement).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"idx_comments_entry",
			"idx_entries_setter",
			"idx_entries_expires_active",
			"idx_entries_channel_active",
		}

		for _, index := range indexes {
			if _, err := db.NewRaw("DROP INDEX IF EXISTS " + index).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", index, err)
			}
		}

		return nil
	})
}
