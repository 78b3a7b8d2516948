package presence

import (
	"context"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Store holds the raw presence records. Backed by the cache layer with a
// TTL comfortably past the activity timeout; an evicted record simply reads
// as offline, which is also what derivation would conclude.
type Store interface {
	// Get loads a user's record. A missing record returns a zero Record
	// with the user id set, never an error.
	Get(ctx context.Context, userID shared.UserID) (Record, error)

	// GetMany loads records for a batch of users, for group views.
	GetMany(ctx context.Context, userIDs []shared.UserID) (map[shared.UserID]Record, error)

	// Put stores a record, refreshing its TTL.
	Put(ctx context.Context, r Record) error

	// DeleteStale removes records whose activity timestamp predates the
	// cutoff. Run by the cleanup job; purely hygienic, since stale records
	// already derive as offline.
	DeleteStale(ctx context.Context, cutoffSeconds int64) (int, error)
}
