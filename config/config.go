package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// HTTP API
	Server ServerConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Event bus and dispatcher
	Events EventsConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Gameplay tuning knobs
	Gameplay GameplayConfig

	// Feature Flags
	Features *FeatureFlags

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Timezone for schedule calculations (default: UTC; reward and streak
	// math is always UTC regardless of this setting)
	Timezone string
	Location *time.Location

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// Connection pool settings
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration

	// RunMigrations applies pending migrations on startup.
	RunMigrations bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// EventsConfig holds event bus and dispatcher settings.
type EventsConfig struct {
	// Distributed selects the Redis-backed bus instead of the in-memory one.
	Distributed bool

	// ChannelName is the pub/sub channel for the distributed bus.
	ChannelName string

	// Workers is the number of serial dispatcher queues.
	Workers int

	// QueueSize is the buffer size of each dispatcher queue.
	QueueSize int

	// MaxRetries is how many times a failing handler is retried.
	MaxRetries int

	// HandlerTimeout bounds a single handler execution.
	HandlerTimeout time.Duration
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	// Enable/disable scheduler
	Enabled bool

	// PresenceCleanupInterval is how often stale presence records are swept.
	PresenceCleanupInterval time.Duration

	// PresenceMaxAge is the presence record retention window.
	PresenceMaxAge time.Duration

	// QuestPregenerateCron schedules quest-set warming (default: Monday 00:00).
	QuestPregenerateCron string

	// QuestPregenerateLookback selects users active this far back.
	QuestPregenerateLookback time.Duration

	// JobTimeout is the default per-run timeout.
	JobTimeout time.Duration
}

// GameplayConfig holds the tunable gameplay thresholds. Defaults match the
// production values baked into the domain policies; these knobs exist for
// staging experiments, not per-user tuning.
type GameplayConfig struct {
	// StreakThresholdMinutes is the minimum session length that counts
	// toward the daily streak.
	StreakThresholdMinutes int

	// PresenceActivityTimeout and PresenceInteractionTimeout feed status
	// derivation (offline and away respectively).
	PresenceActivityTimeout    time.Duration
	PresenceInteractionTimeout time.Duration

	// CalendarToleranceMinutes widens the autocomplete matching window.
	CalendarToleranceMinutes int

	// CalendarCoverageFraction is the coverage share required to
	// auto-complete an event.
	CalendarCoverageFraction float64
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Metrics (future: Prometheus)
	MetricsEnabled bool
	MetricsPort    int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Events:        loadEventsConfig(),
		Scheduler:     loadSchedulerConfig(),
		Gameplay:      loadGameplayConfig(),
		Features:      LoadFeatureFlags(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))
	timezone := getEnv("APP_TIMEZONE", "UTC")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	return AppConfig{
		Name:            getEnv("APP_NAME", "study-hub"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		Timezone:        timezone,
		Location:        loc,
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      getEnv("HTTP_LISTEN_ADDR", ":8080"),
		ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		Name:            getEnv("DB_NAME", "studyhub"),
		User:            getEnv("DB_USER", "studyhub"),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10)),
		MinConns:        int32(getEnvInt("DB_MIN_CONNS", 2)),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		RunMigrations:   getEnvBool("DB_RUN_MIGRATIONS", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func loadEventsConfig() EventsConfig {
	return EventsConfig{
		Distributed:    getEnvBool("EVENTS_DISTRIBUTED", false),
		ChannelName:    getEnv("EVENTS_CHANNEL", "study-hub:events"),
		Workers:        getEnvInt("EVENTS_WORKERS", 8),
		QueueSize:      getEnvInt("EVENTS_QUEUE_SIZE", 256),
		MaxRetries:     getEnvInt("EVENTS_MAX_RETRIES", 3),
		HandlerTimeout: getEnvDuration("EVENTS_HANDLER_TIMEOUT", 30*time.Second),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:                  getEnvBool("SCHEDULER_ENABLED", true),
		PresenceCleanupInterval:  getEnvDuration("SCHEDULER_PRESENCE_CLEANUP_INTERVAL", 15*time.Minute),
		PresenceMaxAge:           getEnvDuration("SCHEDULER_PRESENCE_MAX_AGE", 2*time.Hour),
		QuestPregenerateCron:     getEnv("SCHEDULER_QUEST_PREGEN_CRON", "0 0 * * 1"),
		QuestPregenerateLookback: getEnvDuration("SCHEDULER_QUEST_PREGEN_LOOKBACK", 14*24*time.Hour),
		JobTimeout:               getEnvDuration("SCHEDULER_JOB_TIMEOUT", 5*time.Minute),
	}
}

func loadGameplayConfig() GameplayConfig {
	return GameplayConfig{
		StreakThresholdMinutes:     getEnvInt("GAMEPLAY_STREAK_THRESHOLD_MINUTES", 25),
		PresenceActivityTimeout:    getEnvDuration("GAMEPLAY_PRESENCE_ACTIVITY_TIMEOUT", 120*time.Second),
		PresenceInteractionTimeout: getEnvDuration("GAMEPLAY_PRESENCE_INTERACTION_TIMEOUT", 30*time.Minute),
		CalendarToleranceMinutes:   getEnvInt("GAMEPLAY_CALENDAR_TOLERANCE_MINUTES", 60),
		CalendarCoverageFraction:   getEnvFloat("GAMEPLAY_CALENDAR_COVERAGE_FRACTION", 0.75),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsPort:    getEnvInt("METRICS_PORT", 9090),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Environment == EnvProduction {
		if c.Database.Password == "" {
			errs = append(errs, "DB_PASSWORD is required in production")
		}
		if c.Database.SSLMode == "disable" {
			errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
		}
	}

	if c.Gameplay.StreakThresholdMinutes <= 0 {
		errs = append(errs, "GAMEPLAY_STREAK_THRESHOLD_MINUTES must be positive")
	}

	if c.Gameplay.CalendarCoverageFraction <= 0 || c.Gameplay.CalendarCoverageFraction > 1 {
		errs = append(errs, "GAMEPLAY_CALENDAR_COVERAGE_FRACTION must be in (0, 1]")
	}

	if c.Events.Workers <= 0 {
		errs = append(errs, "EVENTS_WORKERS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
