package calendar

import (
	"math"
	"time"

	"github.com/studyseal/study-hub/pkg/timeutil"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Rule names the condition that completed an event.
type Rule string

const (
	RuleNone Rule = ""
	// RuleCoverage fires when studied time covers enough of the event.
	RuleCoverage Rule = "coverage"
	// RuleGoalCrossing fires when the event's subject crossed its weekly
	// goal inside the evaluation window.
	RuleGoalCrossing Rule = "goal_crossing"
)

// Policy holds the engine's tunables.
type Policy struct {
	// ToleranceMinutes widens both the candidate search window around the
	// session and each event's own evaluation window.
	ToleranceMinutes int

	// CoverageFraction is the share of the event's duration that effective
	// minutes must reach for Rule 1.
	CoverageFraction float64
}

// DefaultPolicy returns the production constants: a one-hour tolerance and
// 75% coverage.
func DefaultPolicy() Policy {
	return Policy{ToleranceMinutes: 60, CoverageFraction: 0.75}
}

// Tolerance returns the tolerance as a duration.
func (p Policy) Tolerance() time.Duration {
	return time.Duration(p.ToleranceMinutes) * time.Minute
}

// CycleSettings is the user's timer configuration. Break minutes fold into
// effective study time because a study/break cycle occupies the whole slot.
type CycleSettings struct {
	StudyMinutes int
	BreakMinutes int
}

// ScaleFactor returns (study+break)/study, guarding a zero study block.
func (s CycleSettings) ScaleFactor() float64 {
	study := s.StudyMinutes
	if study < 1 {
		study = 1
	}
	return float64(study+s.BreakMinutes) / float64(study)
}

// SubjectWeekFacts carries the goal-crossing inputs for Rule 2: the event
// subject's week-to-date minutes evaluated at the evaluation window's start
// and end, and the subject's weekly goal.
type SubjectWeekFacts struct {
	MinutesBefore shared.Minutes
	MinutesAfter  shared.Minutes
	Goal          shared.Minutes
}

// EffectiveMinutes sums, over the given completed-session windows, the
// whole-minute overlap with the evaluation window, scaled by the cycle
// factor. The result is floored.
func (p Policy) EffectiveMinutes(eval shared.TimeRange, sessions []shared.TimeRange, settings CycleSettings) int {
	total := 0
	for _, s := range sessions {
		total += timeutil.OverlapMinutes(eval.Start, eval.End, s.Start, s.End)
	}
	return int(math.Floor(float64(total) * settings.ScaleFactor()))
}

// Evaluate decides whether one not-yet-completed event should be marked
// done. sessions must be the user's completed sessions overlapping the
// event's evaluation window, already filtered to the event's subject when
// the event has one. Returns the rule that fired, or RuleNone.
func (p Policy) Evaluate(event *Event, sessions []shared.TimeRange, settings CycleSettings, subjectWeek *SubjectWeekFacts) Rule {
	if event.Completed {
		return RuleNone
	}

	eval := event.Window().Expand(p.Tolerance())

	// Rule 1: coverage.
	effective := p.EffectiveMinutes(eval, sessions, settings)
	if float64(effective) >= p.CoverageFraction*float64(event.DurationMinutes()) {
		return RuleCoverage
	}

	// Rule 2: goal crossing, only for subject-bound events.
	if !event.SubjectID.IsZero() && subjectWeek != nil {
		before := subjectWeek.MinutesBefore.Int()
		after := subjectWeek.MinutesAfter.Int()
		goal := subjectWeek.Goal.Int()
		if before < goal && goal <= after {
			return RuleGoalCrossing
		}
	}

	return RuleNone
}

// CandidateWindow expands a finished session's range by the tolerance to
// find events worth evaluating.
func (p Policy) CandidateWindow(session shared.TimeRange) shared.TimeRange {
	return session.Expand(p.Tolerance())
}
