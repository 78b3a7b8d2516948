package quest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet() *WeeklyQuestSet {
	policy := DefaultPolicy()
	set := &WeeklyQuestSet{
		UserID: "user-1",
		WeekID: "2026-W35",
		Quests: []Quest{
			policy.cycleQuest(),
			{ID: "Q_MIN_math", Key: "min:math", Type: TypeMinutesSubject, SubjectID: "math", Target: 120, Reward: policy.MinutesReward},
			{ID: "Q_SES_math", Key: "ses:math", Type: TypeSessionsSubject, SubjectID: "math", Target: 2, Reward: policy.SessionsReward},
			{ID: "Q_WEEK_TOTAL", Key: "week_total", Type: TypeWeekTotal, Target: 300, Reward: policy.WeekTotalReward},
		},
	}
	set.QuestKeys = set.Keys()
	return set
}

func TestApplySession_MinutesQuestAccumulates(t *testing.T) {
	set := testSet()

	ApplySession(set, SessionFacts{SubjectID: "math", Duration: 50, Completed: true},
		WeekFacts{WeekMinutes: 50, TotalGoal: 550})

	assert.Equal(t, 50, set.Find("Q_MIN_math").Progress)

	ApplySession(set, SessionFacts{SubjectID: "math", Duration: 100, Completed: true},
		WeekFacts{WeekMinutes: 150, TotalGoal: 550})

	assert.Equal(t, 120, set.Find("Q_MIN_math").Progress, "progress clamps at target")
}

func TestApplySession_OtherSubjectUntouched(t *testing.T) {
	set := testSet()

	ApplySession(set, SessionFacts{SubjectID: "physics", Duration: 50, Completed: true},
		WeekFacts{WeekMinutes: 50, TotalGoal: 550})

	assert.Equal(t, 0, set.Find("Q_MIN_math").Progress)
	assert.Equal(t, 0, set.Find("Q_SES_math").Progress)
	assert.Equal(t, 50, set.Find("Q_WEEK_TOTAL").Progress, "week total counts every subject")
}

func TestApplySession_SessionsQuestNeedsCompletion(t *testing.T) {
	set := testSet()

	ApplySession(set, SessionFacts{SubjectID: "math", Duration: 30, Completed: false},
		WeekFacts{WeekMinutes: 30, TotalGoal: 550})
	assert.Equal(t, 0, set.Find("Q_SES_math").Progress, "skipped sessions do not count")
	assert.Equal(t, 30, set.Find("Q_MIN_math").Progress, "but their minutes do")

	ApplySession(set, SessionFacts{SubjectID: "math", Duration: 50, Completed: true},
		WeekFacts{WeekMinutes: 80, TotalGoal: 550})
	assert.Equal(t, 1, set.Find("Q_SES_math").Progress)
}

func TestApplySession_WeekTotalRecomputed(t *testing.T) {
	set := testSet()
	set.Find("Q_WEEK_TOTAL").Progress = 250

	// A recompute from history can report fewer minutes than a stale
	// increment would have; the fresh value always wins.
	ApplySession(set, SessionFacts{SubjectID: "math", Duration: 10, Completed: true},
		WeekFacts{WeekMinutes: 200, TotalGoal: 550})

	assert.Equal(t, 200, set.Find("Q_WEEK_TOTAL").Progress)
}

func TestApplySession_CycleCompletesAtFullGoal(t *testing.T) {
	set := testSet()

	ApplySession(set, SessionFacts{SubjectID: "math", Duration: 50, Completed: true},
		WeekFacts{WeekMinutes: 549, TotalGoal: 550})
	assert.Equal(t, 0, set.Find("Q_CYCLE_ONE").Progress)

	// The crossing surfaces while handling a skipped session: the week
	// total is recomputed from completed history, so earlier sessions can
	// push it over the goal here even though this one contributes nothing.
	// A completed session in this call would also cross Q_SES_math.
	grants := ApplySession(set, SessionFacts{SubjectID: "math", Duration: 1, Completed: false},
		WeekFacts{WeekMinutes: 550, TotalGoal: 550})

	cycle := set.Find("Q_CYCLE_ONE")
	assert.Equal(t, 1, cycle.Progress)
	assert.True(t, cycle.Done)
	require.Len(t, grants, 1)
	assert.Equal(t, "Q_CYCLE_ONE", grants[0].QuestID)
}

func TestApplySession_RewardGrantedOnce(t *testing.T) {
	set := testSet()

	first := ApplySession(set, SessionFacts{SubjectID: "math", Duration: 150, Completed: true},
		WeekFacts{WeekMinutes: 150, TotalGoal: 550})
	require.Len(t, first, 1)
	assert.Equal(t, "Q_MIN_math", first[0].QuestID)
	assert.Equal(t, DefaultPolicy().MinutesReward, first[0].Reward)

	// Driving the same quest past its target again must not pay again.
	second := ApplySession(set, SessionFacts{SubjectID: "math", Duration: 150, Completed: true},
		WeekFacts{WeekMinutes: 300, TotalGoal: 550})
	for _, g := range second {
		assert.NotEqual(t, "Q_MIN_math", g.QuestID)
	}
}

func TestMergeProgressFrom_StaleWriterCannotRollBack(t *testing.T) {
	// Two session-ends for the same user read the same stored set, each
	// applies its own session, and both write back. Whichever lands second
	// carries a sum computed without the other's session; merging by the
	// larger value keeps the stored counters monotone either way.
	stored := testSet()
	stored.Find("Q_MIN_math").Progress = 80
	stored.Find("Q_WEEK_TOTAL").Progress = 80

	stale := testSet()
	ApplySession(stale, SessionFacts{SubjectID: "math", Duration: 30, Completed: true},
		WeekFacts{WeekMinutes: 30, TotalGoal: 550})

	stored.MergeProgressFrom(stale)

	assert.Equal(t, 80, stored.Find("Q_MIN_math").Progress, "smaller sum must not replace the stored one")
	assert.Equal(t, 80, stored.Find("Q_WEEK_TOTAL").Progress)

	fresh := testSet()
	fresh.Find("Q_MIN_math").Progress = 110
	fresh.Find("Q_WEEK_TOTAL").Progress = 110

	stored.MergeProgressFrom(fresh)

	assert.Equal(t, 110, stored.Find("Q_MIN_math").Progress, "larger sum wins")
	assert.Equal(t, 110, stored.Find("Q_WEEK_TOTAL").Progress)
}

func TestMergeProgressFrom_DoneFlagsUntouched(t *testing.T) {
	stored := testSet()
	stored.Find("Q_MIN_math").Done = true
	stored.Find("Q_MIN_math").Progress = 120

	incoming := testSet()
	incoming.Find("Q_MIN_math").Progress = 120

	stored.MergeProgressFrom(incoming)

	assert.True(t, stored.Find("Q_MIN_math").Done, "merge never clears a done flag")
}

func TestApplySession_MultipleCrossingsInOneCall(t *testing.T) {
	set := testSet()

	grants := ApplySession(set, SessionFacts{SubjectID: "math", Duration: 600, Completed: true},
		WeekFacts{WeekMinutes: 600, TotalGoal: 550})

	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.QuestID)
	}
	assert.Contains(t, ids, "Q_MIN_math")
	assert.Contains(t, ids, "Q_WEEK_TOTAL")
	assert.Contains(t, ids, "Q_CYCLE_ONE")
}
