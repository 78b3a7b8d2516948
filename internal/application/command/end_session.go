// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/calendar"
	"github.com/studyseal/study-hub/internal/domain/progression"
	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/subject"
	"github.com/studyseal/study-hub/pkg/retry"
	"github.com/studyseal/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// END SESSION COMMAND
// Finalizes a study session and runs the whole progression pipeline:
// streak update, reward grant, subject accounting, quest progress, and
// calendar auto-completion. Session-ends for one user can race (two
// devices); every write in the chain tolerates that: finalize and payout
// are test-and-set, the coin grant is additive, and quest counters are
// max-merged under the row lock.
// ══════════════════════════════════════════════════════════════════════════════

// EndSessionCommand contains the data to finalize a session.
type EndSessionCommand struct {
	// UserID is the session owner.
	UserID string

	// SessionID identifies the session being finalized.
	SessionID uuid.UUID

	// DurationMinutes is the studied time reported by the timer.
	DurationMinutes int

	// Skipped marks a block the user abandoned early.
	Skipped bool

	// EndTime is when the session ended (defaults to now if zero).
	EndTime time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EndSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("end_session: user_id is required")
	}
	if c.SessionID == uuid.Nil {
		return errors.New("end_session: session_id is required")
	}
	if c.DurationMinutes < 0 {
		return errors.New("end_session: duration cannot be negative")
	}
	return nil
}

// EndSessionResult reports everything the pipeline changed.
type EndSessionResult struct {
	SessionID   uuid.UUID
	CoinsEarned shared.Coins
	XPEarned    shared.XP

	Level        shared.Level
	LevelsGained int
	StreakDays   int

	// QuestRewards lists the quests whose payout this session triggered.
	QuestRewards []quest.RewardGrant

	// CompletedEventIDs lists calendar events auto-completed by this
	// session.
	CompletedEventIDs []uuid.UUID

	// Events contains domain events generated.
	Events []shared.Event

	EndedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// QuestInvalidator drops a cached quest set after its progress moved.
type QuestInvalidator interface {
	Invalidate(ctx context.Context, userID shared.UserID, weekID shared.WeekID) error
}

// EndSessionHandler handles the EndSessionCommand.
type EndSessionHandler struct {
	sessions     session.Repository
	activeStore  session.ActiveStore
	settingsRepo session.SettingsRepository
	progressRepo progression.Repository
	subjectRepo  subject.Repository
	calendarRepo calendar.Repository
	questService *quest.Service
	questCache   QuestInvalidator // optional
	features     FeatureGate      // optional
	publisher    shared.EventPublisher

	rewardPolicy   progression.RewardPolicy
	streakPolicy   progression.StreakPolicy
	levelCurve     progression.LevelCurve
	calendarPolicy calendar.Policy

	// retrier re-runs the conditional writes of the pipeline. They are
	// test-and-set or absolute-value statements, so a replay is harmless.
	retrier *retry.Retrier
}

// EndSessionHandlerConfig bundles the engine policies.
type EndSessionHandlerConfig struct {
	RewardPolicy   progression.RewardPolicy
	StreakPolicy   progression.StreakPolicy
	LevelCurve     progression.LevelCurve
	CalendarPolicy calendar.Policy
}

// DefaultEndSessionHandlerConfig returns the production policies.
func DefaultEndSessionHandlerConfig() EndSessionHandlerConfig {
	return EndSessionHandlerConfig{
		RewardPolicy:   progression.DefaultRewardPolicy(),
		StreakPolicy:   progression.DefaultStreakPolicy(),
		LevelCurve:     progression.DefaultLevelCurve(),
		CalendarPolicy: calendar.DefaultPolicy(),
	}
}

// NewEndSessionHandler creates a new EndSessionHandler.
func NewEndSessionHandler(
	sessions session.Repository,
	activeStore session.ActiveStore,
	settingsRepo session.SettingsRepository,
	progressRepo progression.Repository,
	subjectRepo subject.Repository,
	calendarRepo calendar.Repository,
	questService *quest.Service,
	publisher shared.EventPublisher,
	config EndSessionHandlerConfig,
) *EndSessionHandler {
	return &EndSessionHandler{
		sessions:       sessions,
		activeStore:    activeStore,
		settingsRepo:   settingsRepo,
		progressRepo:   progressRepo,
		subjectRepo:    subjectRepo,
		calendarRepo:   calendarRepo,
		questService:   questService,
		publisher:      publisher,
		rewardPolicy:   config.RewardPolicy,
		streakPolicy:   config.StreakPolicy,
		levelCurve:     config.LevelCurve,
		calendarPolicy: config.CalendarPolicy,
		retrier:        retry.DatabaseRetrier(),
	}
}

// WithQuestCache wires the optional quest cache, so session-ends invalidate
// the cached set the read side serves.
func (h *EndSessionHandler) WithQuestCache(cache QuestInvalidator) *EndSessionHandler {
	h.questCache = cache
	return h
}

// WithFeatureGate wires the rollout gate for the quest and calendar steps.
func (h *EndSessionHandler) WithFeatureGate(gate FeatureGate) *EndSessionHandler {
	h.features = gate
	return h
}

// Handle executes the end session command.
func (h *EndSessionHandler) Handle(ctx context.Context, cmd EndSessionCommand) (*EndSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("end_session: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	endTime := cmd.EndTime
	if endTime.IsZero() {
		endTime = time.Now().UTC()
	}
	duration := shared.Minutes(cmd.DurationMinutes)

	sess, err := h.sessions.FindByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to load session: %w", err)
	}
	if sess.UserID != userID {
		return nil, shared.NewDomainError("session", "End", shared.ErrInvalidInput, "study session belongs to another user")
	}
	if sess.Finalized {
		return nil, shared.ErrSessionAlreadyEnded
	}

	settings, err := h.settingsRepo.Get(ctx, userID)
	if err != nil {
		settings = session.DefaultTimerSettings()
	}
	settings = settings.Normalize()

	// Week minutes before this session, for the coin softcap.
	weekStart := timeutil.StartOfWeek(endTime)
	weekMinutesBefore, err := h.sessions.MinutesInRange(ctx, userID, weekStart, endTime)
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to sum week minutes: %w", err)
	}

	progress, err := h.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to load progress: %w", err)
	}

	result := &EndSessionResult{
		SessionID: cmd.SessionID,
		EndedAt:   endTime,
		Events:    make([]shared.Event, 0, 4),
	}

	// 1. Streak first: the reward multiplier uses the post-update streak.
	streakMinutes := duration
	if cmd.Skipped {
		streakMinutes = 0
	}
	prevStreak := progress.Streak
	newStreak, outcome := h.streakPolicy.UpdateStreak(prevStreak, streakMinutes, shared.DateOf(endTime))
	if outcome != progression.StreakUnchanged {
		progress.RecordStreak(newStreak)
		if err := h.progressRepo.UpdateStreak(ctx, userID, newStreak); err != nil {
			return nil, fmt.Errorf("end_session: failed to save streak: %w", err)
		}
		switch outcome {
		case progression.StreakReset:
			result.Events = append(result.Events, shared.NewStreakBrokenEvent(userID.String(), prevStreak.Days))
		default:
			result.Events = append(result.Events, shared.NewStreakExtendedEvent(userID.String(), newStreak.Days))
		}
	}
	result.StreakDays = newStreak.Days

	// 2. Reward.
	reward, err := h.rewardPolicy.ComputeSessionReward(progression.RewardInput{
		Duration:          duration,
		Skipped:           cmd.Skipped,
		BlockMinutes:      settings.StudyMinutes,
		WeekMinutesBefore: weekMinutesBefore,
		StreakDays:        newStreak.Days,
	})
	if err != nil {
		return nil, fmt.Errorf("end_session: reward computation failed: %w", err)
	}
	result.CoinsEarned = reward.Coins
	result.XPEarned = reward.XP

	// 3. Finalize the session record. After this write it is immutable and
	// visible to week-minute recomputation.
	if err := sess.Finalize(endTime, duration, cmd.Skipped, reward.Coins, reward.XP); err != nil {
		return nil, err
	}
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		if err := h.sessions.Finalize(ctx, sess); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to finalize session: %w", err)
	}
	if err := h.activeStore.ClearActive(ctx, userID); err != nil {
		// Snapshot loss only degrades presence detail.
	}

	// 4. Grant the session reward: coins additively, xp/level normalized.
	levelsGained := progress.Grant(h.levelCurve, reward.Coins, reward.XP)
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		if err := h.progressRepo.GrantReward(ctx, userID, reward.Coins, progress.XP, progress.Level); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to grant reward: %w", err)
	}
	if levelsGained > 0 {
		result.Events = append(result.Events, shared.NewLevelUpEvent(
			userID.String(), progress.Level.Int()-levelsGained, progress.Level.Int()))
	}

	// 5. Subject accounting for completed sessions.
	if !cmd.Skipped && !sess.SubjectID.IsZero() {
		if err := h.subjectRepo.RecordSession(ctx, userID, sess.SubjectID, duration); err != nil {
			return nil, fmt.Errorf("end_session: failed to record subject time: %w", err)
		}
	}

	// 6. Quest progress, unless the rollout gate holds quests back for
	// this user.
	if h.features == nil || h.features.QuestsEnabled(userID.String()) {
		if err := h.updateQuests(ctx, userID, sess, endTime, progress, result); err != nil {
			return nil, err
		}
	}

	// 7. Calendar auto-completion, behind its own gate.
	if h.features == nil || h.features.CalendarAutocompleteEnabled(userID.String()) {
		if err := h.autoCompleteCalendar(ctx, userID, sess, settings, result); err != nil {
			return nil, err
		}
	}

	result.Level = progress.Level
	result.LevelsGained = levelsGained
	result.Events = append(result.Events, shared.NewSessionEndedEvent(
		sess.ID.String(), userID.String(), sess.SubjectID.String(),
		sess.StartTime, endTime, duration.Int(), sess.Completed, sess.Skipped))

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}

// updateQuests advances the weekly quest set and pays crossed quests.
func (h *EndSessionHandler) updateQuests(
	ctx context.Context,
	userID shared.UserID,
	sess *session.StudySession,
	endTime time.Time,
	progress *progression.UserProgress,
	result *EndSessionResult,
) error {
	subjects, err := h.subjectRepo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("end_session: failed to list subjects: %w", err)
	}
	goals := make([]quest.SubjectGoal, 0, len(subjects))
	for _, s := range subjects {
		view := s.Goal()
		goals = append(goals, quest.SubjectGoal{ID: view.ID, Name: view.Name, WeeklyGoal: view.WeeklyGoal})
	}

	weekID := shared.WeekIDOf(endTime)
	set, err := h.questService.GetOrCreate(ctx, userID, weekID, goals, endTime)
	if err != nil {
		return fmt.Errorf("end_session: failed to load quest set: %w", err)
	}

	// Week minutes recomputed from history, now including this session.
	weekStart := timeutil.StartOfWeek(endTime)
	weekEnd := timeutil.EndOfWeek(endTime)
	weekMinutes, err := h.sessions.MinutesInRange(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return fmt.Errorf("end_session: failed to recompute week minutes: %w", err)
	}

	grants := quest.ApplySession(set, quest.SessionFacts{
		SubjectID: sess.SubjectID,
		Duration:  sess.Duration,
		Completed: sess.Completed,
	}, quest.WeekFacts{
		WeekMinutes: weekMinutes,
		TotalGoal:   quest.TotalGoal(goals, h.questService.Policy().DefaultTotalGoal),
	})

	if err := h.questService.UpdateProgress(ctx, set); err != nil {
		return fmt.Errorf("end_session: failed to save quest progress: %w", err)
	}

	// Payout is gated by the done-flag test-and-set: only the writer that
	// flips the flag pays, giving at-most-once semantics under races.
	for _, grant := range grants {
		var won bool
		err := h.retrier.Do(ctx, func(ctx context.Context) error {
			var markErr error
			won, markErr = h.questService.MarkDone(ctx, userID, weekID, grant.QuestID)
			if markErr != nil {
				return retry.Retryable(markErr)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("end_session: failed to mark quest done: %w", err)
		}
		if !won {
			continue
		}
		gained := progress.Grant(h.levelCurve, grant.Reward.Coins, grant.Reward.XP)
		if err := h.progressRepo.GrantReward(ctx, userID, grant.Reward.Coins, progress.XP, progress.Level); err != nil {
			return fmt.Errorf("end_session: failed to pay quest reward: %w", err)
		}
		if gained > 0 {
			result.Events = append(result.Events, shared.NewLevelUpEvent(
				userID.String(), progress.Level.Int()-gained, progress.Level.Int()))
			result.LevelsGained += gained
		}
		result.QuestRewards = append(result.QuestRewards, grant)
		result.Events = append(result.Events, shared.NewQuestCompletedEvent(
			userID.String(), weekID.String(), grant.QuestID,
			grant.Reward.Coins.Int(), grant.Reward.XP.Int()))
	}

	if h.questCache != nil {
		// Best effort. A stale cached set expires on its own TTL.
		_ = h.questCache.Invalidate(ctx, userID, weekID)
	}

	return nil
}

// autoCompleteCalendar evaluates events near the finished session.
func (h *EndSessionHandler) autoCompleteCalendar(
	ctx context.Context,
	userID shared.UserID,
	sess *session.StudySession,
	settings session.TimerSettings,
	result *EndSessionResult,
) error {
	candidates, err := h.calendarRepo.FindCandidates(ctx, userID, h.calendarPolicy.CandidateWindow(sess.Window()))
	if err != nil {
		return fmt.Errorf("end_session: failed to find calendar candidates: %w", err)
	}

	cycle := calendar.CycleSettings{
		StudyMinutes: settings.StudyMinutes,
		BreakMinutes: settings.BreakMinutes,
	}

	for _, event := range candidates {
		eval := event.Window().Expand(h.calendarPolicy.Tolerance())

		overlapping, err := h.sessions.CompletedOverlapping(ctx, userID, event.SubjectID, eval)
		if err != nil {
			return fmt.Errorf("end_session: failed to load overlapping sessions: %w", err)
		}
		windows := make([]shared.TimeRange, 0, len(overlapping))
		for _, s := range overlapping {
			windows = append(windows, s.Window())
		}

		var weekFacts *calendar.SubjectWeekFacts
		if !event.SubjectID.IsZero() {
			facts, err := h.subjectWeekFacts(ctx, userID, event.SubjectID, eval)
			if err != nil {
				return err
			}
			weekFacts = facts
		}

		rule := h.calendarPolicy.Evaluate(event, windows, cycle, weekFacts)
		if rule == calendar.RuleNone {
			continue
		}

		won, err := h.calendarRepo.MarkCompleted(ctx, userID, event.ID)
		if err != nil {
			return fmt.Errorf("end_session: failed to complete calendar event: %w", err)
		}
		if !won {
			continue
		}
		result.CompletedEventIDs = append(result.CompletedEventIDs, event.ID)
		result.Events = append(result.Events, shared.NewCalendarEventCompletedEvent(
			userID.String(), event.ID.String(), event.SubjectID.String(), string(rule)))
	}

	return nil
}

// subjectWeekFacts evaluates the subject's week-to-date minutes at the
// evaluation window's boundaries, for the goal-crossing rule.
func (h *EndSessionHandler) subjectWeekFacts(
	ctx context.Context,
	userID shared.UserID,
	subjectID shared.SubjectID,
	eval shared.TimeRange,
) (*calendar.SubjectWeekFacts, error) {
	subj, err := h.subjectRepo.FindByID(ctx, userID, subjectID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("end_session: failed to load subject: %w", err)
	}

	weekStart := timeutil.StartOfWeek(eval.Start)
	before, err := h.sessions.SubjectMinutesInRange(ctx, userID, subjectID, weekStart, eval.Start)
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to sum subject minutes: %w", err)
	}
	after, err := h.sessions.SubjectMinutesInRange(ctx, userID, subjectID, weekStart, eval.End)
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to sum subject minutes: %w", err)
	}

	return &calendar.SubjectWeekFacts{
		MinutesBefore: before,
		MinutesAfter:  after,
		Goal:          subj.TimeGoal,
	}, nil
}
