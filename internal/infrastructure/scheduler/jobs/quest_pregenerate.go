package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST PREGENERATE JOB
// ══════════════════════════════════════════════════════════════════════════════

// QuestPregenerateJob warms the current week's quest sets for recently
// active users. Generation is lazy on first read anyway; running this early
// Monday just moves the work off the request path. Generation is
// deterministic, so racing with a concurrent read produces the same set.
type QuestPregenerateJob struct {
	sessions     session.Repository
	subjects     subject.Repository
	questService *quest.Service
	logger       *slog.Logger
	config       QuestPregenerateConfig

	lastRunStats atomic.Value // *QuestPregenerateStats
}

// QuestPregenerateConfig contains configuration for the pregeneration job.
type QuestPregenerateConfig struct {
	// Lookback selects users with a finalized session this far back.
	Lookback time.Duration

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultQuestPregenerateConfig returns sensible defaults.
func DefaultQuestPregenerateConfig() QuestPregenerateConfig {
	return QuestPregenerateConfig{
		Lookback: 14 * 24 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// QuestPregenerateStats holds the result of the last run.
type QuestPregenerateStats struct {
	RunAt     time.Time
	WeekID    shared.WeekID
	Users     int
	Generated int
	Failed    int
	Duration  time.Duration
}

// NewQuestPregenerateJob creates the job.
func NewQuestPregenerateJob(
	sessions session.Repository,
	subjects subject.Repository,
	questService *quest.Service,
	config QuestPregenerateConfig,
	logger *slog.Logger,
) *QuestPregenerateJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Lookback <= 0 {
		config.Lookback = DefaultQuestPregenerateConfig().Lookback
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultQuestPregenerateConfig().Timeout
	}

	return &QuestPregenerateJob{
		sessions:     sessions,
		subjects:     subjects,
		questService: questService,
		logger:       logger,
		config:       config,
	}
}

// Name returns the job name.
func (j *QuestPregenerateJob) Name() string {
	return "quest_pregenerate"
}

// Description returns a human-readable description.
func (j *QuestPregenerateJob) Description() string {
	return "Generates the current week's quest sets for recently active users"
}

// Run executes the pregeneration.
func (j *QuestPregenerateJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	now := start.UTC()
	weekID := shared.WeekIDOf(now)

	userIDs, err := j.sessions.ActiveUserIDs(ctx, now.Add(-j.config.Lookback), now)
	if err != nil {
		return fmt.Errorf("quest_pregenerate: failed to list active users: %w", err)
	}

	stats := &QuestPregenerateStats{
		RunAt:  start,
		WeekID: weekID,
		Users:  len(userIDs),
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}

		if err := j.generateFor(ctx, userID, weekID, now); err != nil {
			stats.Failed++
			j.logger.Warn("quest pregeneration failed for user",
				"user_id", userID.String(),
				"week_id", weekID.String(),
				"error", err,
			)
			continue
		}
		stats.Generated++
	}

	stats.Duration = time.Since(start)
	j.lastRunStats.Store(stats)

	j.logger.Info("quest pregeneration finished",
		"week_id", weekID.String(),
		"users", stats.Users,
		"generated", stats.Generated,
		"failed", stats.Failed,
		"duration", stats.Duration.String(),
	)

	if ctx.Err() != nil {
		return fmt.Errorf("quest_pregenerate: run cancelled: %w", ctx.Err())
	}
	return nil
}

// generateFor ensures one user's quest set exists.
func (j *QuestPregenerateJob) generateFor(ctx context.Context, userID shared.UserID, weekID shared.WeekID, now time.Time) error {
	subjects, err := j.subjects.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}

	goals := make([]quest.SubjectGoal, 0, len(subjects))
	for _, s := range subjects {
		view := s.Goal()
		goals = append(goals, quest.SubjectGoal{ID: view.ID, Name: view.Name, WeeklyGoal: view.WeeklyGoal})
	}

	_, err = j.questService.GetOrCreate(ctx, userID, weekID, goals, now)
	return err
}

// LastRunStats returns the stats of the most recent run, or nil.
func (j *QuestPregenerateJob) LastRunStats() *QuestPregenerateStats {
	stats, _ := j.lastRunStats.Load().(*QuestPregenerateStats)
	return stats
}
