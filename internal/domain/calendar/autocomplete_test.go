package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

var base = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func window(startOffset, endOffset time.Duration) shared.TimeRange {
	return shared.TimeRange{Start: base.Add(startOffset), End: base.Add(endOffset)}
}

func testEvent(t *testing.T, subjectID shared.SubjectID) *Event {
	t.Helper()
	e, err := NewEvent("user-1", "Algebra review", base, base.Add(time.Hour), subjectID)
	require.NoError(t, err)
	return e
}

func TestEvaluate_CoverageRule(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "math")

	// 50 effective minutes against a 60-minute event clears the 45-minute
	// coverage bar, regardless of the subject's weekly goal.
	sessions := []shared.TimeRange{window(0, 50*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	rule := policy.Evaluate(event, sessions, settings, &SubjectWeekFacts{
		MinutesBefore: 0, MinutesAfter: 50, Goal: 1000,
	})

	assert.Equal(t, RuleCoverage, rule)
}

func TestEvaluate_BreakMinutesScaleUp(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "")

	// 40 raw minutes scale by (50+10)/50 = 1.2 to 48 effective, past the
	// 45-minute bar.
	sessions := []shared.TimeRange{window(0, 40*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 10}

	assert.Equal(t, 48, policy.EffectiveMinutes(event.Window().Expand(policy.Tolerance()), sessions, settings))
	assert.Equal(t, RuleCoverage, policy.Evaluate(event, sessions, settings, nil))
}

func TestEvaluate_ToleranceExtendsEvaluationWindow(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "")

	// The session sits entirely before the event but inside the one-hour
	// tolerance, so its minutes still count.
	sessions := []shared.TimeRange{window(-55*time.Minute, -5*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	assert.Equal(t, RuleCoverage, policy.Evaluate(event, sessions, settings, nil))
}

func TestEvaluate_GoalCrossingRule(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "math")

	// Coverage misses (10 effective minutes), but the subject's weekly
	// minutes crossed the goal inside the evaluation window.
	sessions := []shared.TimeRange{window(0, 10*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	rule := policy.Evaluate(event, sessions, settings, &SubjectWeekFacts{
		MinutesBefore: 290, MinutesAfter: 300, Goal: 300,
	})

	assert.Equal(t, RuleGoalCrossing, rule)
}

func TestEvaluate_GoalCrossingNeedsSubject(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "")

	sessions := []shared.TimeRange{window(0, 10*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	rule := policy.Evaluate(event, sessions, settings, &SubjectWeekFacts{
		MinutesBefore: 290, MinutesAfter: 300, Goal: 300,
	})

	assert.Equal(t, RuleNone, rule, "subject-less events never complete by goal crossing")
}

func TestEvaluate_GoalAlreadyMetBefore(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "math")

	sessions := []shared.TimeRange{window(0, 10*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	// before == goal means the crossing happened earlier; no completion.
	rule := policy.Evaluate(event, sessions, settings, &SubjectWeekFacts{
		MinutesBefore: 300, MinutesAfter: 310, Goal: 300,
	})

	assert.Equal(t, RuleNone, rule)
}

func TestEvaluate_NeitherRule(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "math")

	sessions := []shared.TimeRange{window(0, 20*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	rule := policy.Evaluate(event, sessions, settings, &SubjectWeekFacts{
		MinutesBefore: 0, MinutesAfter: 20, Goal: 300,
	})

	assert.Equal(t, RuleNone, rule)
}

func TestEvaluate_CompletedEventSkipped(t *testing.T) {
	policy := DefaultPolicy()
	event := testEvent(t, "")
	event.Completed = true

	sessions := []shared.TimeRange{window(0, 60*time.Minute)}
	settings := CycleSettings{StudyMinutes: 50, BreakMinutes: 0}

	assert.Equal(t, RuleNone, policy.Evaluate(event, sessions, settings, nil))
}

func TestScaleFactor_GuardsZeroStudyBlock(t *testing.T) {
	assert.Equal(t, 1.2, CycleSettings{StudyMinutes: 50, BreakMinutes: 10}.ScaleFactor())
	assert.Equal(t, 11.0, CycleSettings{StudyMinutes: 0, BreakMinutes: 10}.ScaleFactor())
}

func TestNewEvent_Validation(t *testing.T) {
	_, err := NewEvent("", "x", base, base.Add(time.Hour), "")
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewEvent("user-1", "x", base, base, "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
