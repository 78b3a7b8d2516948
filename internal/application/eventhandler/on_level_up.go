package eventhandler

import (
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler records level transitions. Milestone levels are logged
// louder so they stand out in aggregated logs; a push channel can hook in
// here later without touching the command pipeline.
type OnLevelUpHandler struct {
	log *logger.Logger

	// milestones are the levels worth celebrating.
	milestones map[int]bool
}

// DefaultLevelMilestones are the levels announced at info level.
func DefaultLevelMilestones() []int {
	return []int{5, 10, 15, 20, 25}
}

// NewOnLevelUpHandler creates the handler.
func NewOnLevelUpHandler(log *logger.Logger, milestones []int) *OnLevelUpHandler {
	if log == nil {
		log = logger.Default()
	}
	if milestones == nil {
		milestones = DefaultLevelMilestones()
	}

	set := make(map[int]bool, len(milestones))
	for _, m := range milestones {
		set[m] = true
	}

	return &OnLevelUpHandler{
		log:        log.With(logger.Component("eventhandler")),
		milestones: set,
	}
}

// Handle processes a LevelUp event.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelUp, ok := event.(shared.LevelUpEvent)
	if !ok {
		return fmt.Errorf("on_level_up: unexpected event type %s", event.EventType())
	}

	fields := []logger.Field{
		logger.UserID(levelUp.UserID),
		logger.Int("old_level", levelUp.OldLevel),
		logger.Int("new_level", levelUp.NewLevel),
	}

	// A single grant can cross several levels; any milestone inside the
	// jump counts.
	milestone := false
	for level := levelUp.OldLevel + 1; level <= levelUp.NewLevel; level++ {
		if h.milestones[level] {
			milestone = true
			break
		}
	}

	if milestone {
		h.log.Info("milestone level reached", fields...)
	} else {
		h.log.Debug("level up", fields...)
	}

	return nil
}
