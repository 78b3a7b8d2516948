package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Repository is the persistence contract for study sessions.
type Repository interface {
	// Create inserts a session record at timer start.
	Create(ctx context.Context, s *StudySession) error

	// Finalize writes the end-of-session fields exactly once. Returns an
	// ErrAlreadyProcessed-kind error if the session was already finalized,
	// making concurrent end requests for the same session harmless.
	Finalize(ctx context.Context, s *StudySession) error

	// FindByID loads a session.
	FindByID(ctx context.Context, id uuid.UUID) (*StudySession, error)

	// MinutesInRange sums completed session minutes for a user inside
	// [from, to); skipped sessions do not count. Used to recompute week
	// totals from source data rather than maintaining an incremented
	// counter.
	MinutesInRange(ctx context.Context, userID shared.UserID, from, to time.Time) (shared.Minutes, error)

	// SubjectMinutesInRange is MinutesInRange restricted to completed
	// sessions of one subject.
	SubjectMinutesInRange(ctx context.Context, userID shared.UserID, subjectID shared.SubjectID, from, to time.Time) (shared.Minutes, error)

	// CompletedOverlapping returns finalized, completed sessions whose
	// [start, end) window intersects the given range, optionally filtered
	// to a subject. Feeds the calendar effective-minutes computation.
	CompletedOverlapping(ctx context.Context, userID shared.UserID, subjectID shared.SubjectID, window shared.TimeRange) ([]*StudySession, error)

	// ActiveUserIDs returns the distinct users with a finalized session in
	// [from, to). The weekly pregeneration job uses it to warm quest sets
	// for users likely to come back.
	ActiveUserIDs(ctx context.Context, from, to time.Time) ([]shared.UserID, error)
}

// ActiveStore holds the per-user active-session snapshot. Backed by the
// cache layer; losing a snapshot degrades presence detail, never correctness.
type ActiveStore interface {
	SetActive(ctx context.Context, userID shared.UserID, active ActiveSession) error
	GetActive(ctx context.Context, userID shared.UserID) (*ActiveSession, error)
	ClearActive(ctx context.Context, userID shared.UserID) error
}
