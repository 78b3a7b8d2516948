package subject

import (
	"context"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Repository is the persistence contract for subjects.
type Repository interface {
	// Create inserts a subject.
	Create(ctx context.Context, s *Subject) error

	// FindByID loads one of a user's subjects.
	FindByID(ctx context.Context, userID shared.UserID, id shared.SubjectID) (*Subject, error)

	// ListByUser returns all of a user's subjects.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*Subject, error)

	// RecordSession adds a completed session to the subject's lifetime
	// counters with an additive update at the storage layer, safe under
	// concurrent session-ends.
	RecordSession(ctx context.Context, userID shared.UserID, id shared.SubjectID, minutes shared.Minutes) error
}
