package quest

import (
	"context"
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Service wraps the generator and the repository into the lazy get-or-create
// flow: a missing week is generated on first touch, and concurrent first
// touches converge on one stored set.
type Service struct {
	policy Policy
	repo   Repository
}

// NewService creates a quest service.
func NewService(policy Policy, repo Repository) *Service {
	return &Service{policy: policy, repo: repo}
}

// Policy exposes the generation constants, for progress recomputation.
func (s *Service) Policy() Policy {
	return s.policy
}

// GetOrCreate returns the week's quest set, generating it when absent.
// Generation is deterministic and the insert is conditional, so re-invoking
// for an existing week always returns the same set.
func (s *Service) GetOrCreate(ctx context.Context, userID shared.UserID, weekID shared.WeekID, subjects []SubjectGoal, now time.Time) (*WeeklyQuestSet, error) {
	set, err := s.repo.FindByUserWeek(ctx, userID, weekID)
	if err == nil {
		return set, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	prevKeys, err := s.repo.LatestKeysBefore(ctx, userID, weekID)
	if err != nil {
		return nil, err
	}

	generated, err := s.policy.Generate(userID, weekID, subjects, prevKeys, now)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateIfAbsent(ctx, generated)
}

// UpdateProgress persists the set's mutable progress fields.
func (s *Service) UpdateProgress(ctx context.Context, set *WeeklyQuestSet) error {
	return s.repo.UpdateProgress(ctx, set)
}

// MarkDone performs the done-flag test-and-set for one quest.
func (s *Service) MarkDone(ctx context.Context, userID shared.UserID, weekID shared.WeekID, questID string) (bool, error) {
	return s.repo.MarkDone(ctx, userID, weekID, questID)
}
