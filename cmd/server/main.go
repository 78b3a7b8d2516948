// Package main is the entry point for the study hub API server process.
//
// The server owns the synchronous pipeline: session starts and ends,
// heartbeats, calendar edits, and the read-side queries. Background work
// (presence sweeps, quest pregeneration) lives in cmd/worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/studyseal/study-hub/config"
	"github.com/studyseal/study-hub/internal/application/command"
	"github.com/studyseal/study-hub/internal/application/eventhandler"
	"github.com/studyseal/study-hub/internal/application/query"
	"github.com/studyseal/study-hub/internal/domain/calendar"
	"github.com/studyseal/study-hub/internal/domain/presence"
	"github.com/studyseal/study-hub/internal/domain/progression"
	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/shop"
	"github.com/studyseal/study-hub/internal/infrastructure/messaging"
	"github.com/studyseal/study-hub/internal/infrastructure/persistence/postgres"
	"github.com/studyseal/study-hub/internal/infrastructure/persistence/redis"
	"github.com/studyseal/study-hub/pkg/logger"
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

// eventBus is what the wiring needs from either bus implementation.
type eventBus interface {
	shared.EventBus
	Close() error
}

// application bundles the wired command and query handlers. The transport
// layer mounts on top of this; nothing below it knows how requests arrive.
type application struct {
	// Commands
	StartSession        *command.StartSessionHandler
	EndSession          *command.EndSessionHandler
	RecordHeartbeat     *command.RecordHeartbeatHandler
	UpdateTimerSettings *command.UpdateTimerSettingsHandler
	CreateCalendarEvent *command.CreateCalendarEventHandler
	CompleteCalendar    *command.CompleteCalendarEventHandler

	// Queries
	GetProgress     *query.GetProgressHandler
	GetPresence     *query.GetPresenceHandler
	GetWeeklyQuests *query.GetWeeklyQuestsHandler
	GetShopCatalog  *query.GetShopCatalogHandler
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
	appLog := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting study hub server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

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
	// 5. REPOSITORIES AND STORES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn)
	subjectRepo := postgres.NewSubjectRepository(dbConn)
	calendarRepo := postgres.NewCalendarRepository(dbConn)
	questRepo := postgres.NewQuestRepository(dbConn)

	presenceStore := redis.NewPresenceStore(cache)
	activeStore := redis.NewActiveSessionStore(cache)

	// The quest cache only exists when its flag is on; a nil cache means
	// every read goes to Postgres.
	var questCache *redis.QuestCache
	if cfg.Features.IsEnabled(config.FeatureQuestCache, nil) {
		questCache = redis.NewQuestCache(cache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. DOMAIN SERVICES AND POLICIES
	// ─────────────────────────────────────────────────────────────────────────
	questService := quest.NewService(quest.DefaultPolicy(), questRepo)

	presencePolicy := presence.Policy{
		ActivityTimeout:    cfg.Gameplay.PresenceActivityTimeout,
		InteractionTimeout: cfg.Gameplay.PresenceInteractionTimeout,
	}

	gate := featureGate{flags: cfg.Features}

	engineConfig := command.DefaultEndSessionHandlerConfig()
	engineConfig.StreakPolicy = progression.StreakPolicy{
		ThresholdMinutes: cfg.Gameplay.StreakThresholdMinutes,
	}
	engineConfig.CalendarPolicy = calendar.Policy{
		ToleranceMinutes: cfg.Gameplay.CalendarToleranceMinutes,
		CoverageFraction: cfg.Gameplay.CalendarCoverageFraction,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...", "distributed", cfg.Events.Distributed)
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	var bus eventBus
	if cfg.Events.Distributed {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewCacheRedisClient(cache),
			ChannelName:    cfg.Events.ChannelName,
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to start distributed event bus: %w", err)
		}
		bus = redisBus
	} else {
		bus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT DISPATCHER AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event dispatcher...")
	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Workers:        cfg.Events.Workers,
		QueueSize:      cfg.Events.QueueSize,
		MaxRetries:     cfg.Events.MaxRetries,
		HandlerTimeout: cfg.Events.HandlerTimeout,
		Logger:         log,
	})
	defer func() {
		log.Info("draining event dispatcher...")
		_ = dispatcher.Close()
	}()

	onSessionEnded := eventhandler.NewOnSessionEndedHandler(presenceStore, appLog)
	onLevelUp := eventhandler.NewOnLevelUpHandler(appLog, nil)
	onQuestCompleted := eventhandler.NewOnQuestCompletedHandler(appLog)

	registrations := []struct {
		eventType shared.EventType
		name      string
		handler   shared.EventHandler
	}{
		{shared.EventSessionEnded, "on_session_ended", onSessionEnded.Handle},
		{shared.EventLevelUp, "on_level_up", onLevelUp.Handle},
		{shared.EventQuestCompleted, "on_quest_completed", onQuestCompleted.Handle},
	}
	for _, r := range registrations {
		if err := dispatcher.Register(r.eventType, r.name, r.handler); err != nil {
			return fmt.Errorf("failed to register %s: %w", r.name, err)
		}
	}

	// Everything published on the bus flows into the dispatcher, which
	// runs the observers for one user's events in order. Command handlers
	// are not behind it; their writes tolerate concurrency on their own.
	if err := bus.SubscribeAll(dispatcher.Dispatch); err != nil {
		return fmt.Errorf("failed to connect dispatcher to event bus: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")
	endSession := command.NewEndSessionHandler(
		sessionRepo, activeStore, settingsRepo, progressRepo,
		subjectRepo, calendarRepo, questService, bus, engineConfig,
	).WithFeatureGate(gate)
	var questReadCache query.QuestCache
	if questCache != nil {
		endSession = endSession.WithQuestCache(questCache)
		questReadCache = questCache
	}

	app := &application{
		StartSession: command.NewStartSessionHandler(
			sessionRepo, activeStore, settingsRepo, subjectRepo, bus,
		),
		EndSession:          endSession,
		RecordHeartbeat:     command.NewRecordHeartbeatHandler(presenceStore, presencePolicy, bus).WithFeatureGate(gate),
		UpdateTimerSettings: command.NewUpdateTimerSettingsHandler(settingsRepo),
		CreateCalendarEvent: command.NewCreateCalendarEventHandler(calendarRepo),
		CompleteCalendar:    command.NewCompleteCalendarEventHandler(calendarRepo, bus),

		GetProgress:     query.NewGetProgressHandler(progressRepo, sessionRepo, progression.DefaultLevelCurve()),
		GetPresence:     query.NewGetPresenceHandler(presenceStore, activeStore, presencePolicy),
		GetWeeklyQuests: query.NewGetWeeklyQuestsHandler(questService, subjectRepo, questReadCache),
		GetShopCatalog:  query.NewGetShopCatalogHandler(progressRepo, shop.DefaultPriceCurve()),
	}
	_ = app // the HTTP transport mounts here

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("study hub server is running", "listen_addr", cfg.Server.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// featureGate adapts the config rollout flags to the command layer's gate.
type featureGate struct {
	flags *config.FeatureFlags
}

func (g featureGate) QuestsEnabled(userID string) bool {
	return g.flags.IsEnabled(config.FeatureQuestWeekly, &config.FeatureContext{UserID: userID})
}

func (g featureGate) CalendarAutocompleteEnabled(userID string) bool {
	return g.flags.IsEnabled(config.FeatureCalendarAutocomplete, &config.FeatureContext{UserID: userID})
}

func (g featureGate) PresenceTrackingEnabled(userID string) bool {
	return g.flags.IsEnabled(config.FeaturePresenceTracking, &config.FeatureContext{UserID: userID})
}

// setupLogger configures structured logging for the infrastructure layer.
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
