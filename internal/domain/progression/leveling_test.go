package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

func TestXPRequired_Curve(t *testing.T) {
	curve := DefaultLevelCurve()

	assert.Equal(t, 100, curve.XPRequired(1))
	assert.Equal(t, 125, curve.XPRequired(2))
	assert.Equal(t, 157, curve.XPRequired(3)) // ceil(156.25)
	assert.Equal(t, 196, curve.XPRequired(4)) // ceil(195.3125)
}

func TestXPRequired_StrictlyGrows(t *testing.T) {
	curve := DefaultLevelCurve()

	prev := 0
	for level := 1; level <= 50; level++ {
		req := curve.XPRequired(shared.Level(level))
		assert.Greater(t, req, prev, "level %d", level)
		prev = req
	}
}

func TestApply_ConsumesMultipleLevels(t *testing.T) {
	curve := DefaultLevelCurve()

	// 250 gain from (0, L1): consumes 100 for level 1, 125 for level 2,
	// lands at level 3 with 25 left over.
	after := curve.Apply(LevelState{XP: 0, Level: 1}, 250)

	assert.Equal(t, shared.Level(3), after.Level)
	assert.Equal(t, shared.XP(25), after.XP)
}

func TestApply_InvariantHoldsAfterAnyGain(t *testing.T) {
	curve := DefaultLevelCurve()

	state := LevelState{XP: 0, Level: 1}
	for _, gain := range []int{0, 1, 99, 100, 250, 10000} {
		state = curve.Apply(state, gain)
		assert.Less(t, state.XP.Int(), curve.XPRequired(state.Level),
			"xp must stay below the level requirement after gain %d", gain)
		assert.GreaterOrEqual(t, state.XP.Int(), 0)
	}
}

func TestApply_ZeroGainNormalizesOnly(t *testing.T) {
	curve := DefaultLevelCurve()

	// Denormalized input (xp already past the requirement) self-heals.
	after := curve.Apply(LevelState{XP: 130, Level: 1}, 0)

	assert.Equal(t, shared.Level(2), after.Level)
	assert.Equal(t, shared.XP(30), after.XP)
}

func TestUserProgress_GrantReportsLevelsGained(t *testing.T) {
	curve := DefaultLevelCurve()
	progress, err := NewUserProgress("user-1")
	assert.NoError(t, err)

	gained := progress.Grant(curve, 40, 250)

	assert.Equal(t, 2, gained)
	assert.Equal(t, shared.Coins(40), progress.Coins)
	assert.Equal(t, shared.Level(3), progress.Level)
	assert.Equal(t, shared.XP(25), progress.XP)
}
