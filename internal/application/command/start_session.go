package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// Creates the session record and the active-session snapshot that presence
// queries read while the timer runs.
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand contains the data to start a study session.
type StartSessionCommand struct {
	// UserID is the session owner.
	UserID string

	// SubjectID is the subject being studied; empty for free study.
	SubjectID string

	// StartTime is when the timer started (defaults to now if zero).
	StartTime time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("start_session: user_id is required")
	}
	return nil
}

// StartSessionResult contains the created session.
type StartSessionResult struct {
	SessionID    uuid.UUID
	StartTime    time.Time
	EstimatedEnd time.Time
	Events       []shared.Event
}

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	sessions     session.Repository
	activeStore  session.ActiveStore
	settingsRepo session.SettingsRepository
	subjectRepo  subject.Repository
	publisher    shared.EventPublisher
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(
	sessions session.Repository,
	activeStore session.ActiveStore,
	settingsRepo session.SettingsRepository,
	subjectRepo subject.Repository,
	publisher shared.EventPublisher,
) *StartSessionHandler {
	return &StartSessionHandler{
		sessions:     sessions,
		activeStore:  activeStore,
		settingsRepo: settingsRepo,
		subjectRepo:  subjectRepo,
		publisher:    publisher,
	}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_session: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	subjectID := shared.SubjectID(cmd.SubjectID)
	if !subjectID.IsZero() {
		if _, err := h.subjectRepo.FindByID(ctx, userID, subjectID); err != nil {
			return nil, fmt.Errorf("start_session: unknown subject: %w", err)
		}
	}

	start := cmd.StartTime
	if start.IsZero() {
		start = time.Now().UTC()
	}

	sess, err := session.NewStudySession(userID, subjectID, start)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("start_session: failed to create session: %w", err)
	}

	settings, err := h.settingsRepo.Get(ctx, userID)
	if err != nil {
		settings = session.DefaultTimerSettings()
	}
	settings = settings.Normalize()

	active := session.NewActiveSession(sess, settings.StudyMinutes)
	if err := h.activeStore.SetActive(ctx, userID, active); err != nil {
		// Presence queries fall back to "no timer visible".
	}

	event := shared.NewSessionStartedEvent(
		sess.ID.String(), userID.String(), subjectID.String(), start, active.EstimatedEnd)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &StartSessionResult{
		SessionID:    sess.ID,
		StartTime:    start,
		EstimatedEnd: active.EstimatedEnd,
		Events:       []shared.Event{event},
	}, nil
}
