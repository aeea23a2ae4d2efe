package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/migrations"
	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	ErrNameRequired    = errors.New("NAME argument required")
	ErrChannelRequired = errors.New("CHANNEL argument required")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// Setup dependencies
	db, migrator, logger, err := setupMigrator()
	if err != nil {
		return fmt.Errorf("failed to setup migrator: %w", err)
	}
	defer db.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return migrator.Init(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := migrator.Init(ctx); err != nil {
						return err
					}

					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Migrate(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No new migrations to run (database is up to date)")
						return nil
					}

					logger.Info("Successfully migrated", zap.String("group", group.String()))
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No groups to roll back")
						return nil
					}

					logger.Info("Successfully rolled back", zap.String("group", group.String()))
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: func(ctx context.Context, _ *cli.Command) error {
					ms, err := migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					logger.Info("Migration status",
						zap.String("migrations", ms.String()),
						zap.String("unapplied", ms.Unapplied().String()),
						zap.String("last_group", ms.LastGroup().String()),
					)
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrNameRequired
					}

					mf, err := migrator.CreateGoMigration(ctx, c.Args().First())
					if err != nil {
						return err
					}

					logger.Info("Created Go migration",
						zap.String("name", mf.Name),
						zap.String("path", mf.Path),
					)
					return nil
				},
			},
			channelCommand(db, logger),
		},
	}

	return app.Run(context.Background(), os.Args)
}

// channelCommand manages the administered channel list without a running bot.
func channelCommand(db database.Client, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "channel",
		Usage: "Manage administered channels",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a channel and mark it for autojoin",
				ArgsUsage: "CHANNEL",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrChannelRequired
					}

					// Stored names are folded with the default server case mapping
					name := irc.CaseMappingRFC1459.Fold(c.Args().First())

					channel, err := db.Model().Channel().Add(ctx, name)
					if err != nil {
						return err
					}

					logger.Info("Added channel", zap.Int64("id", channel.ID), zap.String("name", channel.Name))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List known channels",
				Action: func(ctx context.Context, _ *cli.Command) error {
					channels, err := db.Model().Channel().GetAll(ctx)
					if err != nil {
						return err
					}

					var b strings.Builder
					for _, channel := range channels {
						fmt.Fprintf(&b, "%d\t%s\tautojoin=%t\n", channel.ID, channel.Name, channel.AutoJoin)
					}
					fmt.Print(b.String())

					return nil
				},
			},
		},
	}
}

// setupMigrator initializes the database connection and migrator.
func setupMigrator() (database.Client, *migrate.Migrator, *zap.Logger, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(context.Background(), &cfg.Common.Database, logger, false)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	return db, migrator, logger, nil
}
