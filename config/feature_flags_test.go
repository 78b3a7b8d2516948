package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureQuestWeekly, nil))
	assert.True(t, ff.IsEnabled(FeaturePresenceTracking, nil))
	assert.False(t, ff.IsEnabled(FeatureExperimentalDistributedBus, nil))
	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestFeatureFlags_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FEATURE_QUEST_CACHE", "false")
	t.Setenv("FEATURE_CALENDAR_AUTOCOMPLETE", "0")
	t.Setenv("FEATURE_EXPERIMENTAL_DISTRIBUTED_BUS", "true")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureQuestCache, nil))
	assert.False(t, ff.IsEnabled(FeatureCalendarAutocomplete, nil))
	assert.True(t, ff.IsEnabled(FeatureExperimentalDistributedBus, nil))
}

func TestFeatureFlags_RolloutBucketsAreSticky(t *testing.T) {
	t.Setenv("FEATURE_QUEST_WEEKLY", "50")

	ff := LoadFeatureFlags()

	// A user keeps the same bucket across evaluations.
	ctx := &FeatureContext{UserID: "user-1"}
	first := ff.IsEnabled(FeatureQuestWeekly, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureQuestWeekly, ctx))
	}

	// 0% and 100% are absolute regardless of bucket.
	assert.NoError(t, ff.SetRolloutPercent(FeatureQuestWeekly, 0))
	assert.False(t, ff.IsEnabled(FeatureQuestWeekly, ctx))
	assert.NoError(t, ff.SetRolloutPercent(FeatureQuestWeekly, 100))
	assert.True(t, ff.IsEnabled(FeatureQuestWeekly, ctx))
}

func TestFeatureFlags_UserOverrideWins(t *testing.T) {
	ff := LoadFeatureFlags()

	ff.SetUserOverride("user-1", FeatureQuestWeekly, false)
	assert.False(t, ff.IsEnabled(FeatureQuestWeekly, &FeatureContext{UserID: "user-1"}))
	assert.True(t, ff.IsEnabled(FeatureQuestWeekly, &FeatureContext{UserID: "user-2"}))

	ff.ClearUserOverrides("user-1")
	assert.True(t, ff.IsEnabled(FeatureQuestWeekly, &FeatureContext{UserID: "user-1"}))
}
