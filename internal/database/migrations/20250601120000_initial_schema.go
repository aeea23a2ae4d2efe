package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
)

// schemaModels lists the tables in creation order.
func schemaModels() []any {
	return []any{
		(*types.Channel)(nil),
		(*types.ChanOp)(nil),
		(*types.Entry)(nil),
		(*types.Comment)(nil),
		(*types.BotSetting)(nil),
		(*types.ChannelSetting)(nil),
	}
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, model := range schemaModels() {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := schemaModels()
		for i := len(models) - 1; i >= 0; i-- {
			_, err := db.NewDropTable().
				Model(models[i]).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", models[i], err)
			}
		}

		return nil
	})
}
