// Package quest implements the weekly quest engine: deterministic seeded
// generation with anti-repeat against the previous week, and progress
// tracking with at-most-once reward payout.
package quest

import (
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Type enumerates the quest kinds.
type Type string

const (
	// TypeMinutesSubject counts studied minutes in one subject.
	TypeMinutesSubject Type = "minutes_subject"
	// TypeSessionsSubject counts completed sessions in one subject.
	TypeSessionsSubject Type = "sessions_subject"
	// TypeWeekTotal counts all studied minutes this week. Recomputed from
	// session history on every update, never incremented.
	TypeWeekTotal Type = "week_total"
	// TypeCycle is the always-present quest: reach 100% of the summed
	// weekly subject goals.
	TypeCycle Type = "cycle"
)

// Reward is a quest's payout.
type Reward struct {
	Coins shared.Coins `json:"coins"`
	XP    shared.XP    `json:"xp"`
}

// Quest is one entry of a weekly set. ID, Key, Type, SubjectID, Target, and
// Reward are immutable after generation; Progress and Done are the only
// mutable fields, and Done only transitions false to true.
type Quest struct {
	ID        string           `json:"id"`
	Key       string           `json:"key"` // stable anti-repeat key
	Type      Type             `json:"type"`
	Title     string           `json:"title"`
	SubjectID shared.SubjectID `json:"subject_id,omitempty"`
	Target    int              `json:"target"`
	Progress  int              `json:"progress"`
	Done      bool             `json:"done"`
	Reward    Reward           `json:"reward"`
}

// WeeklyQuestSet is the aggregate: exactly one per (user, ISO week).
type WeeklyQuestSet struct {
	UserID    shared.UserID
	WeekID    shared.WeekID
	Quests    []Quest
	QuestKeys []string // keys offered this week, read by next week's anti-repeat
	CreatedAt time.Time
}

// Keys returns the stable keys of all quests in the set.
func (s *WeeklyQuestSet) Keys() []string {
	keys := make([]string, 0, len(s.Quests))
	for _, q := range s.Quests {
		keys = append(keys, q.Key)
	}
	return keys
}

// Find returns the quest with the given id, or nil.
func (s *WeeklyQuestSet) Find(id string) *Quest {
	for i := range s.Quests {
		if s.Quests[i].ID == id {
			return &s.Quests[i]
		}
	}
	return nil
}

// MergeProgressFrom folds another writer's progress counters into this set,
// keeping the larger value per quest. Within a week every counter only
// grows, so when two session-ends race, the larger value always carries the
// newer information and a stale sum can never roll progress back. Done
// flags are not touched; they transition through Repository.MarkDone only.
func (s *WeeklyQuestSet) MergeProgressFrom(other *WeeklyQuestSet) {
	for i := range s.Quests {
		if o := other.Find(s.Quests[i].ID); o != nil && o.Progress > s.Quests[i].Progress {
			s.Quests[i].Progress = o.Progress
		}
	}
}

// SubjectGoal is the generator's view of one subject: its identity and the
// user's weekly minute goal for it.
type SubjectGoal struct {
	ID         shared.SubjectID
	Name       string
	WeeklyGoal shared.Minutes
}

// TotalGoal sums the weekly goals, applying the default for an empty list
// and clamping to at least one minute so it is safe as a divisor.
func TotalGoal(subjects []SubjectGoal, defaultTotal int) int {
	if len(subjects) == 0 {
		return defaultTotal
	}
	total := 0
	for _, s := range subjects {
		total += s.WeeklyGoal.Int()
	}
	if total < 1 {
		total = 1
	}
	return total
}
