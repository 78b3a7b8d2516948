// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET WEEKLY QUESTS QUERY
// The read that triggers lazy generation: a missing week is generated on
// first access, deterministically, so repeated reads return the same set.
// ══════════════════════════════════════════════════════════════════════════════

// QuestCache is a read-through cache for quest sets. Misses and errors both
// fall through to the repository.
type QuestCache interface {
	Get(ctx context.Context, userID shared.UserID, weekID shared.WeekID) (*quest.WeeklyQuestSet, error)
	Set(ctx context.Context, set *quest.WeeklyQuestSet) error
	Invalidate(ctx context.Context, userID shared.UserID, weekID shared.WeekID) error
}

// GetWeeklyQuestsQuery requests a user's quest set for the week of Now.
type GetWeeklyQuestsQuery struct {
	UserID string

	// Now determines the ISO week (defaults to the current time if zero).
	Now time.Time
}

// Validate validates the query.
func (q GetWeeklyQuestsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_weekly_quests: user_id is required")
	}
	return nil
}

// GetWeeklyQuestsResult carries the set plus derived convenience fields.
type GetWeeklyQuestsResult struct {
	WeekID    shared.WeekID
	Quests    []quest.Quest
	DoneCount int
	FromCache bool
}

// GetWeeklyQuestsHandler handles the query.
type GetWeeklyQuestsHandler struct {
	questService *quest.Service
	subjectRepo  subject.Repository
	cache        QuestCache // optional
}

// NewGetWeeklyQuestsHandler creates the handler. cache may be nil.
func NewGetWeeklyQuestsHandler(questService *quest.Service, subjectRepo subject.Repository, cache QuestCache) *GetWeeklyQuestsHandler {
	return &GetWeeklyQuestsHandler{questService: questService, subjectRepo: subjectRepo, cache: cache}
}

// Handle executes the query.
func (h *GetWeeklyQuestsHandler) Handle(ctx context.Context, q GetWeeklyQuestsQuery) (*GetWeeklyQuestsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_weekly_quests: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	weekID := shared.WeekIDOf(now)

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, userID, weekID); err == nil && cached != nil {
			return buildResult(cached, true), nil
		}
	}

	subjects, err := h.subjectRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_weekly_quests: failed to list subjects: %w", err)
	}
	goals := make([]quest.SubjectGoal, 0, len(subjects))
	for _, s := range subjects {
		view := s.Goal()
		goals = append(goals, quest.SubjectGoal{ID: view.ID, Name: view.Name, WeeklyGoal: view.WeeklyGoal})
	}

	set, err := h.questService.GetOrCreate(ctx, userID, weekID, goals, now)
	if err != nil {
		return nil, fmt.Errorf("get_weekly_quests: failed to load quest set: %w", err)
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, set)
	}

	return buildResult(set, false), nil
}

func buildResult(set *quest.WeeklyQuestSet, fromCache bool) *GetWeeklyQuestsResult {
	done := 0
	for _, q := range set.Quests {
		if q.Done {
			done++
		}
	}
	return &GetWeeklyQuestsResult{
		WeekID:    set.WeekID,
		Quests:    set.Quests,
		DoneCount: done,
		FromCache: fromCache,
	}
}
