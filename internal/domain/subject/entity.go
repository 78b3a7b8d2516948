// Package subject holds the study subjects a user tracks time against:
// their weekly goals and lifetime accounting.
package subject

import (
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Subject is one study topic with a weekly minute goal. TimeSpent and
// SessionsCount are lifetime counters, incremented atomically at the storage
// layer on every completed session.
type Subject struct {
	ID            shared.SubjectID
	UserID        shared.UserID
	Name          string
	Color         string // UI hint, free-form hex
	TimeGoal      shared.Minutes
	TimeSpent     shared.Minutes
	SessionsCount int
	CreatedAt     time.Time
}

// New creates a subject.
func New(id shared.SubjectID, userID shared.UserID, name string, timeGoal shared.Minutes) (*Subject, error) {
	if !id.IsValid() {
		return nil, shared.NewDomainError("subject", "New", shared.ErrInvalidID, "subject id cannot be empty")
	}
	if !userID.IsValid() {
		return nil, shared.NewDomainError("subject", "New", shared.ErrInvalidID, "user id cannot be empty")
	}
	if timeGoal < 0 {
		return nil, shared.NewDomainError("subject", "New", shared.ErrNegativeValue, "time goal cannot be negative")
	}
	return &Subject{
		ID:        id,
		UserID:    userID,
		Name:      name,
		TimeGoal:  timeGoal,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Goal returns the generator's view of the subject.
func (s *Subject) Goal() GoalView {
	return GoalView{ID: s.ID, Name: s.Name, WeeklyGoal: s.TimeGoal}
}

// GoalView is the read-only slice of a subject the quest generator and the
// calendar engine consume.
type GoalView struct {
	ID         shared.SubjectID
	Name       string
	WeeklyGoal shared.Minutes
}
