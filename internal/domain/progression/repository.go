package progression

import (
	"context"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Repository is the persistence contract for UserProgress. Implementations
// live in infrastructure; the write methods encode the concurrency rules the
// engine relies on.
type Repository interface {
	// FindByUserID loads a user's progress. Returns shared.ErrNotFound-kind
	// error when the user has none yet.
	FindByUserID(ctx context.Context, userID shared.UserID) (*UserProgress, error)

	// GetOrCreate loads the progress, creating a fresh level-1 record when
	// absent. Creation races resolve to the existing row.
	GetOrCreate(ctx context.Context, userID shared.UserID) (*UserProgress, error)

	// GrantReward persists a reward atomically: coins are incremented
	// additively at the storage layer (never read-modify-write), xp and
	// level are set to the ledger's normalized result. Safe under
	// concurrent session-ends for the same user.
	GrantReward(ctx context.Context, userID shared.UserID, coinsDelta shared.Coins, xp shared.XP, level shared.Level) error

	// UpdateStreak persists the streak tracker's state.
	UpdateStreak(ctx context.Context, userID shared.UserID, state StreakState) error
}
