package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/calendar"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE CALENDAR EVENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateCalendarEventCommand adds an agenda event. Binding it to a subject
// makes it eligible for the goal-crossing completion rule; unbound events
// only complete through coverage.
type CreateCalendarEventCommand struct {
	UserID    string
	Title     string
	Start     time.Time
	End       time.Time
	SubjectID string
	Checklist []calendar.ChecklistItem
}

// Validate validates the command.
func (c CreateCalendarEventCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("create_calendar_event: user_id is required")
	}
	if c.Title == "" {
		return errors.New("create_calendar_event: title is required")
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return errors.New("create_calendar_event: start and end are required")
	}
	return nil
}

// CreateCalendarEventResult carries the created event.
type CreateCalendarEventResult struct {
	Event *calendar.Event
}

// CreateCalendarEventHandler handles the command.
type CreateCalendarEventHandler struct {
	calendarRepo calendar.Repository
}

// NewCreateCalendarEventHandler creates the handler.
func NewCreateCalendarEventHandler(calendarRepo calendar.Repository) *CreateCalendarEventHandler {
	return &CreateCalendarEventHandler{calendarRepo: calendarRepo}
}

// Handle executes the command.
func (h *CreateCalendarEventHandler) Handle(ctx context.Context, cmd CreateCalendarEventCommand) (*CreateCalendarEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_calendar_event: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	event, err := calendar.NewEvent(userID, cmd.Title, cmd.Start, cmd.End, shared.SubjectID(cmd.SubjectID))
	if err != nil {
		return nil, err
	}
	event.Checklist = cmd.Checklist

	if err := h.calendarRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create_calendar_event: failed to store event: %w", err)
	}

	return &CreateCalendarEventResult{Event: event}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE CALENDAR EVENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CompleteCalendarEventCommand marks an event done by hand. The transition
// is monotonic; completing an already-completed event is a no-op.
type CompleteCalendarEventCommand struct {
	UserID  string
	EventID uuid.UUID
}

// Validate validates the command.
func (c CompleteCalendarEventCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("complete_calendar_event: user_id is required")
	}
	if c.EventID == uuid.Nil {
		return errors.New("complete_calendar_event: event_id is required")
	}
	return nil
}

// CompleteCalendarEventResult reports whether this call made the transition.
type CompleteCalendarEventResult struct {
	Completed bool
	Events    []shared.Event
}

// CompleteCalendarEventHandler handles the command.
type CompleteCalendarEventHandler struct {
	calendarRepo calendar.Repository
	publisher    shared.EventPublisher
}

// NewCompleteCalendarEventHandler creates the handler.
func NewCompleteCalendarEventHandler(calendarRepo calendar.Repository, publisher shared.EventPublisher) *CompleteCalendarEventHandler {
	return &CompleteCalendarEventHandler{calendarRepo: calendarRepo, publisher: publisher}
}

// Handle executes the command.
func (h *CompleteCalendarEventHandler) Handle(ctx context.Context, cmd CompleteCalendarEventCommand) (*CompleteCalendarEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_calendar_event: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	won, err := h.calendarRepo.MarkCompleted(ctx, userID, cmd.EventID)
	if err != nil {
		return nil, fmt.Errorf("complete_calendar_event: failed to mark event: %w", err)
	}

	result := &CompleteCalendarEventResult{Completed: won}
	if won && h.publisher != nil {
		event := shared.NewCalendarEventCompletedEvent(userID.String(), cmd.EventID.String(), "", "manual")
		_ = h.publisher.Publish(event)
		result.Events = append(result.Events, event)
	}

	return result, nil
}
