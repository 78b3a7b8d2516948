package quest

import (
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// SessionFacts is the slice of a finished session the progress updater
// needs. Skipped sessions still report their minutes; Completed is false
// for them.
type SessionFacts struct {
	SubjectID shared.SubjectID
	Duration  shared.Minutes
	Completed bool
}

// WeekFacts carries the recomputed week aggregates. WeekMinutes must come
// from session history including the triggering session, never from an
// incremented counter, so a stale read self-corrects on the next update.
type WeekFacts struct {
	WeekMinutes shared.Minutes
	TotalGoal   int // clamped to >= 1 by TotalGoal
}

// RewardGrant records a quest crossing its target. Each quest produces at
// most one grant over its lifetime, gated by the Done flag.
type RewardGrant struct {
	QuestID string
	Reward  Reward
}

// ApplySession advances every quest in the set from one session-end event
// and returns the rewards that crossed their target on this call. Pure; the
// caller persists the mutated set with a conditional write on each newly
// done quest (see Repository.MarkDone).
func ApplySession(set *WeeklyQuestSet, facts SessionFacts, week WeekFacts) []RewardGrant {
	totalGoal := week.TotalGoal
	if totalGoal < 1 {
		totalGoal = 1
	}

	var grants []RewardGrant
	for i := range set.Quests {
		q := &set.Quests[i]

		switch q.Type {
		case TypeMinutesSubject:
			if q.SubjectID == facts.SubjectID && facts.Duration > 0 {
				q.Progress = clamp(q.Progress+facts.Duration.Int(), q.Target)
			}
		case TypeSessionsSubject:
			if q.SubjectID == facts.SubjectID && facts.Completed {
				q.Progress = clamp(q.Progress+1, q.Target)
			}
		case TypeWeekTotal:
			q.Progress = clamp(week.WeekMinutes.Int(), q.Target)
		case TypeCycle:
			if week.WeekMinutes.Int() >= totalGoal {
				q.Progress = 1
			} else if !q.Done {
				q.Progress = 0
			}
		}

		if !q.Done && q.Progress >= q.Target {
			q.Done = true
			grants = append(grants, RewardGrant{QuestID: q.ID, Reward: q.Reward})
		}
	}
	return grants
}

func clamp(v, target int) int {
	if v > target {
		return target
	}
	return v
}
