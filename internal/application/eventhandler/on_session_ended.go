// Package eventhandler contains the reactive side of the system: handlers
// subscribed to domain events that run side effects off the request path,
// such as presence refreshes and activity logging.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/presence"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/pkg/logger"
	"github.com/studyseal/study-hub/pkg/retry"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SESSION ENDED HANDLER
// Finishing a session is user activity: refresh the presence heartbeat so a
// user who just studied for an hour does not read as offline the moment
// their timer stops.
// ═══════════════════════════════════════════════════════════════════════════

// OnSessionEndedHandler reacts to finalized study sessions.
type OnSessionEndedHandler struct {
	presenceStore presence.Store
	log           *logger.Logger

	// Timeout bounds the presence round-trip per event.
	timeout time.Duration

	// retrier re-runs the cache round-trip on transient failures. The ping
	// is idempotent for a fixed end time, so a replay is harmless.
	retrier *retry.Retrier
}

// NewOnSessionEndedHandler creates the handler.
func NewOnSessionEndedHandler(presenceStore presence.Store, log *logger.Logger) *OnSessionEndedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnSessionEndedHandler{
		presenceStore: presenceStore,
		log:           log.With(logger.Component("eventhandler")),
		timeout:       5 * time.Second,
		retrier:       retry.CacheRetrier(),
	}
}

// Handle processes a SessionEnded event.
func (h *OnSessionEndedHandler) Handle(event shared.Event) error {
	ended, ok := event.(shared.SessionEndedEvent)
	if !ok {
		return fmt.Errorf("on_session_ended: unexpected event type %s", event.EventType())
	}

	userID, err := shared.NewUserID(ended.UserID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		record, err := h.presenceStore.Get(ctx, userID)
		if err != nil {
			return retry.Retryable(fmt.Errorf("failed to load presence: %w", err))
		}

		record = record.Ping(ended.EndTime, true)
		if err := h.presenceStore.Put(ctx, record); err != nil {
			return retry.Retryable(fmt.Errorf("failed to refresh presence: %w", err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("on_session_ended: %w", err)
	}

	h.log.Info("session finalized",
		logger.UserID(ended.UserID),
		logger.SessionID(ended.SessionID),
		logger.SubjectID(ended.SubjectID),
		logger.DurationMin(ended.Duration),
		logger.CoinsAmount(ended.CoinsEarned),
		logger.XPAmount(ended.XPEarned),
		logger.Bool("completed", ended.Completed),
		logger.Bool("skipped", ended.Skipped),
	)

	return nil
}
