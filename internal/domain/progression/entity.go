package progression

import (
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// UserProgress is the per-user economic aggregate: coin balance, level
// ledger, and streak state. It is mutated on every session end and on quest
// payouts. Coins are persisted additively; xp/level are persisted as the
// normalized result of the leveling ledger.
type UserProgress struct {
	UserID    shared.UserID
	Coins     shared.Coins
	XP        shared.XP
	Level     shared.Level
	Streak    StreakState
	UpdatedAt time.Time
}

// NewUserProgress creates a fresh progress record for a new user.
func NewUserProgress(userID shared.UserID) (*UserProgress, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("progression", "NewUserProgress", shared.ErrInvalidID, "user id cannot be empty")
	}
	return &UserProgress{
		UserID:    userID,
		Coins:     0,
		XP:        0,
		Level:     1,
		Streak:    StreakState{},
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// LevelState returns the ledger view of the aggregate.
func (p *UserProgress) LevelState() LevelState {
	return LevelState{XP: p.XP, Level: p.Level}
}

// Grant applies a (coins, xp) reward through the curve and returns how many
// levels were crossed. The aggregate's in-memory state is advanced; the
// repository persists coins additively and xp/level as a set.
func (p *UserProgress) Grant(curve LevelCurve, coins shared.Coins, xp shared.XP) int {
	before := p.LevelState()
	after := curve.Apply(before, xp.Int())
	p.Coins = p.Coins.Add(coins)
	p.XP = after.XP
	p.Level = after.Level
	p.UpdatedAt = time.Now().UTC()
	return curve.LevelsGained(before, after)
}

// RecordStreak stores a tracker outcome on the aggregate.
func (p *UserProgress) RecordStreak(state StreakState) {
	p.Streak = state
	p.UpdatedAt = time.Now().UTC()
}
