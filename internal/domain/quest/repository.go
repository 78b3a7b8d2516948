package quest

import (
	"context"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Repository is the persistence contract for weekly quest sets.
type Repository interface {
	// FindByUserWeek loads a set. Returns an ErrNotFound-kind error when
	// the week has not been generated yet.
	FindByUserWeek(ctx context.Context, userID shared.UserID, weekID shared.WeekID) (*WeeklyQuestSet, error)

	// CreateIfAbsent inserts a freshly generated set unless one already
	// exists for (user, week), and returns the stored set either way.
	// This makes lazy generation idempotent under concurrent first reads.
	CreateIfAbsent(ctx context.Context, set *WeeklyQuestSet) (*WeeklyQuestSet, error)

	// UpdateProgress persists the progress counters of the set's quests.
	// Definitions (targets, rewards, keys) are never rewritten, and the
	// done flag moves exclusively through MarkDone so its test-and-set
	// stays authoritative.
	UpdateProgress(ctx context.Context, set *WeeklyQuestSet) error

	// MarkDone flips one quest's done flag with a test-and-set: the write
	// succeeds only if the flag was still false. Returns true when this
	// call won the flip, false when another writer already did. The
	// reward payout is gated on the true result, giving at-most-once
	// semantics under races.
	MarkDone(ctx context.Context, userID shared.UserID, weekID shared.WeekID, questID string) (bool, error)

	// LatestKeysBefore returns the quest keys of the user's most recent
	// set strictly before the given week, for anti-repeat filtering.
	// An empty slice when the user has no earlier set.
	LatestKeysBefore(ctx context.Context, userID shared.UserID, weekID shared.WeekID) ([]string, error)
}
