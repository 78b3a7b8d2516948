package eventhandler

import (
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON QUEST COMPLETED HANDLER
// ═══════════════════════════════════════════════════════════════════════════

// OnQuestCompletedHandler records quest payouts for audit. The payout
// itself already happened inside the session-end pipeline; this handler is
// observation only, so replaying events cannot double-grant.
type OnQuestCompletedHandler struct {
	log *logger.Logger
}

// NewOnQuestCompletedHandler creates the handler.
func NewOnQuestCompletedHandler(log *logger.Logger) *OnQuestCompletedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnQuestCompletedHandler{
		log: log.With(logger.Component("eventhandler")),
	}
}

// Handle processes a QuestCompleted event.
func (h *OnQuestCompletedHandler) Handle(event shared.Event) error {
	completed, ok := event.(shared.QuestCompletedEvent)
	if !ok {
		return fmt.Errorf("on_quest_completed: unexpected event type %s", event.EventType())
	}

	h.log.Info("quest completed",
		logger.UserID(completed.UserID),
		logger.WeekID(completed.WeekID),
		logger.QuestID(completed.QuestID),
		logger.CoinsAmount(completed.RewardCoins),
		logger.XPAmount(completed.RewardXP),
	)

	return nil
}
