package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/migrations"
	"github.com/robalyx/warden/internal/preference"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	StatusClient rueidis.Client     // Redis client for worker status reporting, nil when Redis is disabled
	SettingCache preference.Cache   // Cache in front of the setting tables
	LogManager   *telemetry.Manager // Log management system
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	var (
		statusClient rueidis.Client
		settingCache preference.Cache = preference.NopCache{}
	)

	if redisManager.Enabled() {
		statusClient, err = redisManager.GetClient(redis.WorkerStatusDBIndex)
		if err != nil {
			return nil, err
		}

		cacheClient, err := redisManager.GetClient(redis.CacheDBIndex)
		if err != nil {
			return nil, err
		}
		settingCache = preference.NewRedisCache(cacheClient)
	}

	db, err := checkAndRunMigrations(ctx, &cfg.Common.Database, dbLogger)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		SettingCache: settingCache,
		LogManager:   logManager,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup() {
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	s.RedisManager.Close()

	// Sync buffered logs before the files are closed
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	s.LogManager.Stop()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.Database, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		_ = tempDB.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		_ = tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return tempDB, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	_ = tempDB.Close()

	if response != "y" && response != "Y" {
		log.Fatalf("Closing program due to incomplete migrations")
	}

	return database.NewConnection(ctx, cfg, dbLogger, true)
}
