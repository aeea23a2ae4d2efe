package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/warden/internal/bot"
	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/robalyx/warden/internal/worker/expiry"
	"github.com/sourcegraph/conc/pool"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// BotLogDir specifies where bot log files are stored.
const BotLogDir = "logs/bot_logs"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "bot",
		Usage: "Run the channel moderation bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for session logs",
				Value: BotLogDir,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runBot(ctx, c.String("log-dir"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// runBot wires the moderation engine to a reconnecting client and runs it
// with the expiry worker until ctx is cancelled.
func runBot(ctx context.Context, logDir string) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, logDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	cfg := &app.Config.Bot
	logger := app.Logger

	prefs := preference.NewStore(preference.DefaultRegistry(), app.DB, app.SettingCache, logger)

	authorizer, err := moderation.NewAuthorizer(cfg.Admins, app.DB, logger)
	if err != nil {
		return err
	}

	reporter := moderation.NewReporter(prefs, logger)
	batcher := moderation.NewBatcher(prefs, cfg.ChanServ, logger)

	handler := bot.New(
		app.DB,
		prefs,
		authorizer,
		moderation.NewSynchronizer(app.DB, logger),
		moderation.NewObserver(app.DB, prefs, reporter, logger),
		reporter,
		time.Duration(cfg.JoinTimeout)*time.Second,
		logger,
	)

	client := irc.NewClient(&cfg.IRC, handler, logger)

	worker := expiry.New(
		app.DB, batcher, reporter,
		func() (moderation.Session, bool) {
			session, ok := client.Active()
			if !ok {
				return nil, false
			}
			return session, true
		},
		app.StatusClient,
		time.Duration(cfg.ExpiryInterval)*time.Second,
		app.LogManager.GetWorkerLogger("expiry_worker"),
	)

	logger.Info("Bot starting",
		zap.String("server", fmt.Sprintf("%s:%d", cfg.IRC.Host, cfg.IRC.Port)),
		zap.String("nick", cfg.IRC.Nickname))
	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	p := pool.New().WithContext(ctx)
	p.Go(client.Run)
	p.Go(func(ctx context.Context) error {
		runWorker(ctx, worker, logger)
		return nil
	})

	err = p.Wait()

	logger.Info("Bot stopped")

	return err
}

// runWorker restarts the worker after a panic until ctx is cancelled.
func runWorker(ctx context.Context, w *expiry.Worker, logger *zap.Logger) {
	for ctx.Err() == nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Worker execution failed", zap.Any("panic", r))
				}
			}()

			w.Start(ctx)
		}()

		if ctx.Err() == nil {
			logger.Warn("Worker stopped unexpectedly, restarting in 5 seconds")

			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
		}
	}
}
