package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

func TestComputeSessionReward_ZeroDuration(t *testing.T) {
	policy := DefaultRewardPolicy()

	result, err := policy.ComputeSessionReward(RewardInput{
		Duration:     0,
		Skipped:      false,
		BlockMinutes: 50,
	})

	require.NoError(t, err)
	assert.Equal(t, shared.Coins(0), result.Coins)
	assert.Equal(t, shared.XP(0), result.XP)
}

func TestFatigueMultiplier_Tiers(t *testing.T) {
	policy := DefaultRewardPolicy()

	tests := []struct {
		duration int
		want     float64
	}{
		{10, 1.0},
		{50, 1.0},
		{51, 0.9},
		{100, 0.9},
		{101, 0.8},
		{180, 0.8},
		{181, 0.7},
		{500, 0.7},
	}

	for _, tt := range tests {
		got := policy.FatigueMultiplier(shared.Minutes(tt.duration))
		assert.Equal(t, tt.want, got, "duration %d", tt.duration)
	}
}

func TestComputeSessionReward_FullBlock(t *testing.T) {
	policy := DefaultRewardPolicy()

	result, err := policy.ComputeSessionReward(RewardInput{
		Duration:     50,
		Skipped:      false,
		BlockMinutes: 50,
	})
	require.NoError(t, err)

	// coinsRaw = 50/5 = 10, completion 1.2, fatigue 1.0 -> floor(12) = 12
	assert.Equal(t, shared.Coins(12), result.Coins)

	wantXP := int(math.Floor((8*math.Pow(50, 0.9) + 12) * 1.2))
	assert.Equal(t, shared.XP(wantXP), result.XP)
	assert.Positive(t, result.XP.Int())
}

func TestComputeSessionReward_SkippedLosesCompletionBonus(t *testing.T) {
	policy := DefaultRewardPolicy()

	completed, err := policy.ComputeSessionReward(RewardInput{
		Duration: 50, Skipped: false, BlockMinutes: 50,
	})
	require.NoError(t, err)

	skipped, err := policy.ComputeSessionReward(RewardInput{
		Duration: 50, Skipped: true, BlockMinutes: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, shared.Coins(10), skipped.Coins)
	assert.Less(t, skipped.Coins, completed.Coins)
	assert.Less(t, skipped.XP, completed.XP)
}

func TestComputeSessionReward_SoftcapHalvesCoinsOnly(t *testing.T) {
	policy := DefaultRewardPolicy()

	fresh, err := policy.ComputeSessionReward(RewardInput{
		Duration: 50, BlockMinutes: 50, WeekMinutesBefore: 0,
	})
	require.NoError(t, err)

	capped, err := policy.ComputeSessionReward(RewardInput{
		Duration: 50, BlockMinutes: 50, WeekMinutesBefore: 900,
	})
	require.NoError(t, err)

	assert.Equal(t, fresh.Coins.Int()/2, capped.Coins.Int())
	assert.Equal(t, fresh.XP, capped.XP, "softcap must never touch xp")
}

func TestStreakMultiplier_CappedAtSevenDays(t *testing.T) {
	policy := DefaultRewardPolicy()

	assert.Equal(t, 1.0, policy.StreakMultiplier(0))
	assert.Equal(t, 1.03, policy.StreakMultiplier(1))
	assert.InDelta(t, 1.21, policy.StreakMultiplier(7), 1e-9)
	assert.InDelta(t, 1.21, policy.StreakMultiplier(30), 1e-9)
	assert.Equal(t, 1.0, policy.StreakMultiplier(-5), "negative streak clamps to zero")
}

func TestComputeSessionReward_InputValidation(t *testing.T) {
	policy := DefaultRewardPolicy()

	_, err := policy.ComputeSessionReward(RewardInput{Duration: -1, BlockMinutes: 50})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	_, err = policy.ComputeSessionReward(RewardInput{Duration: 10, BlockMinutes: 0})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestComputeSessionReward_NonNegativeOutputs(t *testing.T) {
	policy := DefaultRewardPolicy()

	for _, duration := range []int{0, 1, 5, 25, 49, 50, 120, 500} {
		result, err := policy.ComputeSessionReward(RewardInput{
			Duration:          shared.Minutes(duration),
			Skipped:           true,
			BlockMinutes:      50,
			WeekMinutesBefore: 1200,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Coins.Int(), 0)
		assert.GreaterOrEqual(t, result.XP.Int(), 0)
	}
}
