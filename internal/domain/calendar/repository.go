package calendar

import (
	"context"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Repository is the persistence contract for calendar events.
type Repository interface {
	// Create inserts a user-authored event.
	Create(ctx context.Context, e *Event) error

	// FindByID loads an event.
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// FindCandidates returns a user's not-yet-completed events whose
	// scheduled window overlaps the given range.
	FindCandidates(ctx context.Context, userID shared.UserID, window shared.TimeRange) ([]*Event, error)

	// MarkCompleted flips the completed flag monotonically: the write
	// succeeds only when the flag was still false. Returns true when this
	// call performed the transition.
	MarkCompleted(ctx context.Context, userID shared.UserID, eventID uuid.UUID) (bool, error)

	// ListByUser returns a user's events inside a range, completed or not.
	ListByUser(ctx context.Context, userID shared.UserID, window shared.TimeRange) ([]*Event, error)
}
