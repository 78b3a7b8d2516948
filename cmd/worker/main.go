// Package main is the entry point for the study hub background worker.
//
// The worker owns the periodic jobs:
//   - sweeping presence records that outlived their retention window
//   - pregenerating the coming week's quest sets for recently active users
//
// It shares the persistence layer with cmd/server but runs no request
// pipeline of its own.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/studyseal/study-hub/config"
	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/infrastructure/persistence/postgres"
	"github.com/studyseal/study-hub/internal/infrastructure/persistence/redis"
	"github.com/studyseal/study-hub/internal/infrastructure/scheduler"
	"github.com/studyseal/study-hub/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting study hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"scheduler_enabled", cfg.Scheduler.Enabled,
	)

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled; nothing to run (set SCHEDULER_ENABLED=true)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnection(ctx, postgresConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	if cfg.Database.RunMigrations {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis...")
	cache, err := redis.NewCache(redisConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection...")
		_ = cache.Close()
	}()
	log.Info("Redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES AND SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	sessionRepo := postgres.NewSessionRepository(dbConn)
	subjectRepo := postgres.NewSubjectRepository(dbConn)
	questRepo := postgres.NewQuestRepository(dbConn)
	presenceStore := redis.NewPresenceStore(cache)

	questService := quest.NewService(quest.DefaultPolicy(), questRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER AND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")
	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	schedConfig.Timezone = cfg.App.Location
	sched := scheduler.NewScheduler(schedConfig)

	// Jobs register only when their rollout flag is on for the deployment.
	if cfg.Features.IsEnabled(config.FeaturePresenceCleanup, nil) {
		presenceCleanup := jobs.NewPresenceCleanupJob(
			presenceStore,
			jobs.PresenceCleanupConfig{
				MaxAge:  cfg.Scheduler.PresenceMaxAge,
				Timeout: cfg.Scheduler.JobTimeout,
			},
			log,
		)
		if err := sched.Register(presenceCleanup, scheduler.NewIntervalSchedule(cfg.Scheduler.PresenceCleanupInterval)); err != nil {
			return fmt.Errorf("failed to register presence cleanup job: %w", err)
		}
	} else {
		log.Info("presence cleanup job disabled by feature flag")
	}

	if cfg.Features.IsEnabled(config.FeatureQuestPregenerate, nil) {
		pregenerateSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.QuestPregenerateCron)
		if err != nil {
			return fmt.Errorf("invalid quest pregenerate cron %q: %w", cfg.Scheduler.QuestPregenerateCron, err)
		}
		questPregenerate := jobs.NewQuestPregenerateJob(
			sessionRepo,
			subjectRepo,
			questService,
			jobs.QuestPregenerateConfig{
				Lookback: cfg.Scheduler.QuestPregenerateLookback,
				Timeout:  cfg.Scheduler.JobTimeout,
			},
			log,
		)
		if err := sched.Register(questPregenerate, pregenerateSchedule); err != nil {
			return fmt.Errorf("failed to register quest pregenerate job: %w", err)
		}
	} else {
		log.Info("quest pregenerate job disabled by feature flag")
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("scheduler started",
		"presence_cleanup_interval", cfg.Scheduler.PresenceCleanupInterval.String(),
		"quest_pregenerate_cron", cfg.Scheduler.QuestPregenerateCron,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("stopping scheduler...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop reported an error", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// postgresConfig maps the application config onto the connection pool config.
func postgresConfig(cfg *config.Config) postgres.Config {
	pg := postgres.DefaultConfig()
	pg.Host = cfg.Database.Host
	pg.Port = cfg.Database.Port
	pg.Database = cfg.Database.Name
	pg.User = cfg.Database.User
	pg.Password = cfg.Database.Password
	pg.SSLMode = cfg.Database.SSLMode
	pg.MaxConns = cfg.Database.MaxConns
	pg.MinConns = cfg.Database.MinConns
	pg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pg.ConnectTimeout = cfg.Database.ConnectTimeout
	return pg
}

// redisConfig maps the application config onto the cache client config.
func redisConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}
