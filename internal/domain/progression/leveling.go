package progression

import (
	"math"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// LevelCurve defines the geometric per-level XP requirement:
// required(L) = ceil(Base * Growth^(L-1)). The requirement strictly grows
// with level, so normalization always terminates.
type LevelCurve struct {
	Base   float64
	Growth float64
}

// DefaultLevelCurve returns the production curve: 100 XP at level 1,
// growing 25% per level.
func DefaultLevelCurve() LevelCurve {
	return LevelCurve{Base: 100, Growth: 1.25}
}

// XPRequired returns the XP needed to advance from the given level.
func (c LevelCurve) XPRequired(level shared.Level) int {
	if level < 1 {
		level = 1
	}
	return int(math.Ceil(c.Base * math.Pow(c.Growth, float64(level.Int()-1))))
}

// LevelState is the ledger's (xp, level) pair. The invariant
// xp < XPRequired(level) holds after every Apply.
type LevelState struct {
	XP    shared.XP
	Level shared.Level
}

// NewLevelState creates a normalized level state.
func (c LevelCurve) NewLevelState(xp shared.XP, level shared.Level) (LevelState, error) {
	if !level.IsValid() {
		return LevelState{}, shared.ErrInvalidLevel
	}
	if !xp.IsValid() {
		return LevelState{}, shared.NewDomainError("progression", "NewLevelState", shared.ErrNegativeValue, "xp cannot be negative")
	}
	return c.Apply(LevelState{XP: xp, Level: level}, 0), nil
}

// Apply adds an XP gain and consumes level requirements until the invariant
// holds again. Pure; a zero or negative gain only re-normalizes.
func (c LevelCurve) Apply(state LevelState, gain int) LevelState {
	if state.Level < 1 {
		state.Level = 1
	}
	xp := state.XP.Int()
	if gain > 0 {
		xp += gain
	}
	level := state.Level
	for xp >= c.XPRequired(level) {
		xp -= c.XPRequired(level)
		level = level.Next()
	}
	return LevelState{XP: shared.XP(xp), Level: level}
}

// LevelsGained reports how many levels an application crossed.
func (c LevelCurve) LevelsGained(before, after LevelState) int {
	return after.Level.Int() - before.Level.Int()
}
