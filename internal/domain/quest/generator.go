package quest

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Policy holds the generator's tunable constants.
type Policy struct {
	// PickCount is how many pool quests join the set besides the fixed
	// cycle quest.
	PickCount int

	// MinutesTargetFloor and MinutesGoalFactor shape per-subject minute
	// targets: max(floor, round(goal * factor)).
	MinutesTargetFloor int
	MinutesGoalFactor  float64

	// SessionsTarget is the per-subject session-count target.
	SessionsTarget int

	// WeekTotalFloor and WeekTotalFactor shape the week-total target:
	// max(floor, round(totalGoal * factor)).
	WeekTotalFloor  int
	WeekTotalFactor float64

	// DefaultTotalGoal substitutes for an empty subject list.
	DefaultTotalGoal int

	MinutesReward   Reward
	SessionsReward  Reward
	WeekTotalReward Reward
	CycleReward     Reward
}

// DefaultPolicy returns the production quest constants.
func DefaultPolicy() Policy {
	return Policy{
		PickCount:          3,
		MinutesTargetFloor: 60,
		MinutesGoalFactor:  0.6,
		SessionsTarget:     2,
		WeekTotalFloor:     300,
		WeekTotalFactor:    0.7,
		DefaultTotalGoal:   300,
		MinutesReward:      Reward{Coins: 30, XP: 120},
		SessionsReward:     Reward{Coins: 20, XP: 80},
		WeekTotalReward:    Reward{Coins: 40, XP: 160},
		CycleReward:        Reward{Coins: 50, XP: 200},
	}
}

// buildPool assembles the candidate quests for one week. The fixed cycle
// quest is not part of the pool; it is always appended by Generate.
func (p Policy) buildPool(subjects []SubjectGoal, totalGoal int) []Quest {
	pool := make([]Quest, 0, len(subjects)*2+1)
	for _, s := range subjects {
		target := int(math.Round(float64(s.WeeklyGoal.Int()) * p.MinutesGoalFactor))
		if target < p.MinutesTargetFloor {
			target = p.MinutesTargetFloor
		}
		pool = append(pool, Quest{
			ID:        fmt.Sprintf("Q_MIN_%s", s.ID),
			Key:       fmt.Sprintf("min:%s", s.ID),
			Type:      TypeMinutesSubject,
			Title:     fmt.Sprintf("Study %s for %d minutes", s.Name, target),
			SubjectID: s.ID,
			Target:    target,
			Reward:    p.MinutesReward,
		})
		pool = append(pool, Quest{
			ID:        fmt.Sprintf("Q_SES_%s", s.ID),
			Key:       fmt.Sprintf("ses:%s", s.ID),
			Type:      TypeSessionsSubject,
			Title:     fmt.Sprintf("Complete %d sessions of %s", p.SessionsTarget, s.Name),
			SubjectID: s.ID,
			Target:    p.SessionsTarget,
			Reward:    p.SessionsReward,
		})
	}

	weekTarget := int(math.Round(float64(totalGoal) * p.WeekTotalFactor))
	if weekTarget < p.WeekTotalFloor {
		weekTarget = p.WeekTotalFloor
	}
	pool = append(pool, Quest{
		ID:     "Q_WEEK_TOTAL",
		Key:    "week_total",
		Type:   TypeWeekTotal,
		Title:  fmt.Sprintf("Study %d minutes in total this week", weekTarget),
		Target: weekTarget,
		Reward: p.WeekTotalReward,
	})

	return pool
}

// cycleQuest builds the always-included fixed quest.
func (p Policy) cycleQuest() Quest {
	return Quest{
		ID:     "Q_CYCLE_ONE",
		Key:    "cycle_one",
		Type:   TypeCycle,
		Title:  "Reach 100% of your weekly goal",
		Target: 1,
		Reward: p.CycleReward,
	}
}

// seedFor derives the shuffle seed from the (user, week) identity. FNV-1a
// keeps generation reproducible across processes and restarts.
func seedFor(userID shared.UserID, weekID shared.WeekID) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID.String()))
	h.Write([]byte("-"))
	h.Write([]byte(weekID.String()))
	return int64(h.Sum64())
}

// Generate builds the weekly quest set for (userID, weekID). Deterministic:
// the same inputs always produce the same set. prevKeys are the previous
// week's quest keys; pool entries matching them are excluded unless the
// filtered pool would shrink below PickCount, in which case the full pool is
// used instead of failing or under-filling.
func (p Policy) Generate(userID shared.UserID, weekID shared.WeekID, subjects []SubjectGoal, prevKeys []string, now time.Time) (*WeeklyQuestSet, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("quest", "Generate", shared.ErrInvalidID, "user id cannot be empty")
	}
	if !weekID.IsValid() {
		return nil, shared.ErrInvalidWeekID
	}

	totalGoal := TotalGoal(subjects, p.DefaultTotalGoal)
	pool := p.buildPool(subjects, totalGoal)

	previous := make(map[string]struct{}, len(prevKeys))
	for _, k := range prevKeys {
		previous[k] = struct{}{}
	}
	filtered := make([]Quest, 0, len(pool))
	for _, q := range pool {
		if _, seen := previous[q.Key]; !seen {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) < p.PickCount {
		filtered = pool
	}

	rng := rand.New(rand.NewSource(seedFor(userID, weekID)))
	rng.Shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})

	take := p.PickCount
	if take > len(filtered) {
		take = len(filtered)
	}

	quests := make([]Quest, 0, take+1)
	quests = append(quests, p.cycleQuest())
	quests = append(quests, filtered[:take]...)

	set := &WeeklyQuestSet{
		UserID:    userID,
		WeekID:    weekID,
		Quests:    quests,
		CreatedAt: now.UTC(),
	}
	set.QuestKeys = set.Keys()
	return set, nil
}
