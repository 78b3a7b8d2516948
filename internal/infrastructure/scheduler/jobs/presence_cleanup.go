// Package jobs contains the scheduled background jobs of the study hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/studyseal/study-hub/internal/domain/presence"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE CLEANUP JOB
// ══════════════════════════════════════════════════════════════════════════════

// PresenceCleanupJob sweeps presence records whose last activity predates
// the retention window. A stale record already derives as offline, so this
// job only reclaims storage and keeps the cleanup index small.
type PresenceCleanupJob struct {
	store  presence.Store
	logger *slog.Logger
	config PresenceCleanupConfig

	lastRunStats atomic.Value // *PresenceCleanupStats
}

// PresenceCleanupConfig contains configuration for the presence cleanup job.
type PresenceCleanupConfig struct {
	// MaxAge is how long a record is retained after its last activity.
	MaxAge time.Duration

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultPresenceCleanupConfig returns sensible defaults. MaxAge matches the
// record TTL in the cache layer, so the sweep and expiry agree on staleness.
func DefaultPresenceCleanupConfig() PresenceCleanupConfig {
	return PresenceCleanupConfig{
		MaxAge:  2 * time.Hour,
		Timeout: 30 * time.Second,
	}
}

// PresenceCleanupStats holds the result of the last run.
type PresenceCleanupStats struct {
	RunAt    time.Time
	Deleted  int
	Duration time.Duration
}

// NewPresenceCleanupJob creates the job.
func NewPresenceCleanupJob(store presence.Store, config PresenceCleanupConfig, logger *slog.Logger) *PresenceCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultPresenceCleanupConfig().MaxAge
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultPresenceCleanupConfig().Timeout
	}

	return &PresenceCleanupJob{
		store:  store,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *PresenceCleanupJob) Name() string {
	return "presence_cleanup"
}

// Description returns a human-readable description.
func (j *PresenceCleanupJob) Description() string {
	return "Removes presence records with no activity inside the retention window"
}

// Run executes the cleanup.
func (j *PresenceCleanupJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	cutoff := start.Add(-j.config.MaxAge).UTC()

	deleted, err := j.store.DeleteStale(ctx, cutoff.Unix())
	if err != nil {
		return fmt.Errorf("presence_cleanup: %w", err)
	}

	stats := &PresenceCleanupStats{
		RunAt:    start,
		Deleted:  deleted,
		Duration: time.Since(start),
	}
	j.lastRunStats.Store(stats)

	j.logger.Info("presence cleanup finished",
		"deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration", stats.Duration.String(),
	)

	return nil
}

// LastRunStats returns the stats of the most recent run, or nil.
func (j *PresenceCleanupJob) LastRunStats() *PresenceCleanupStats {
	stats, _ := j.lastRunStats.Load().(*PresenceCleanupStats)
	return stats
}
