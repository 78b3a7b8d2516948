package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/progression"
	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// The profile summary: balance, level ledger, streak, and this week's
// studied minutes (recomputed from session history).
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery requests one user's progression summary.
type GetProgressQuery struct {
	UserID string

	// Now anchors the week window (defaults to the current time if zero).
	Now time.Time
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_progress: user_id is required")
	}
	return nil
}

// GetProgressResult is the summary view.
type GetProgressResult struct {
	UserID      shared.UserID
	Coins       shared.Coins
	XP          shared.XP
	Level       shared.Level
	XPRequired  int
	StreakDays  int
	LastStreak  shared.Date
	WeekMinutes shared.Minutes
	WeekID      shared.WeekID
}

// GetProgressHandler handles the query.
type GetProgressHandler struct {
	progressRepo progression.Repository
	sessions     session.Repository
	curve        progression.LevelCurve
}

// NewGetProgressHandler creates the handler.
func NewGetProgressHandler(progressRepo progression.Repository, sessions session.Repository, curve progression.LevelCurve) *GetProgressHandler {
	return &GetProgressHandler{progressRepo: progressRepo, sessions: sessions, curve: curve}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_progress: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	progress, err := h.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to load progress: %w", err)
	}

	weekStart := timeutil.StartOfWeek(now)
	weekMinutes, err := h.sessions.MinutesInRange(ctx, userID, weekStart, now)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to sum week minutes: %w", err)
	}

	return &GetProgressResult{
		UserID:      userID,
		Coins:       progress.Coins,
		XP:          progress.XP,
		Level:       progress.Level,
		XPRequired:  h.curve.XPRequired(progress.Level),
		StreakDays:  progress.Streak.Days,
		LastStreak:  progress.Streak.LastDate,
		WeekMinutes: weekMinutes,
		WeekID:      shared.WeekIDOf(now),
	}, nil
}
