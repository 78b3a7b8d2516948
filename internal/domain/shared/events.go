// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Session events
	EventSessionStarted EventType = "session.started"
	EventSessionEnded   EventType = "session.ended"

	// Progression events
	EventXPGained       EventType = "progression.xp_gained"
	EventLevelUp        EventType = "progression.level_up"
	EventCoinsGranted   EventType = "progression.coins_granted"
	EventStreakExtended EventType = "progression.streak_extended"
	EventStreakBroken   EventType = "progression.streak_broken"

	// Quest events
	EventQuestSetGenerated EventType = "quest.set_generated"
	EventQuestCompleted    EventType = "quest.completed"

	// Calendar events
	EventCalendarCompleted EventType = "calendar.event_completed"

	// Presence events
	EventUserWentOnline  EventType = "presence.went_online"
	EventUserWentOffline EventType = "presence.went_offline"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when a study session begins.
type SessionStartedEvent struct {
	BaseEvent
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	SubjectID    string    `json:"subject_id,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EstimatedEnd time.Time `json:"estimated_end"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":    e.SessionID,
		"user_id":       e.UserID,
		"subject_id":    e.SubjectID,
		"start_time":    e.StartTime.Format(time.RFC3339),
		"estimated_end": e.EstimatedEnd.Format(time.RFC3339),
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(sessionID, userID, subjectID string, start, estimatedEnd time.Time) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent:    NewBaseEvent(EventSessionStarted, userID),
		SessionID:    sessionID,
		UserID:       userID,
		SubjectID:    subjectID,
		StartTime:    start,
		EstimatedEnd: estimatedEnd,
	}
}

// SessionEndedEvent is emitted when a study session is finalized.
// It is the trigger for the whole progression pipeline: reward, streak,
// quest progress, calendar auto-completion.
type SessionEndedEvent struct {
	BaseEvent
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	SubjectID   string    `json:"subject_id,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Duration    int       `json:"duration_minutes"`
	Completed   bool      `json:"completed"`
	Skipped     bool      `json:"skipped"`
	CoinsEarned int       `json:"coins_earned"`
	XPEarned    int       `json:"xp_earned"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":   e.SessionID,
		"user_id":      e.UserID,
		"subject_id":   e.SubjectID,
		"start_time":   e.StartTime.Format(time.RFC3339),
		"end_time":     e.EndTime.Format(time.RFC3339),
		"duration":     e.Duration,
		"completed":    e.Completed,
		"skipped":      e.Skipped,
		"coins_earned": e.CoinsEarned,
		"xp_earned":    e.XPEarned,
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(sessionID, userID, subjectID string, start, end time.Time, duration int, completed, skipped bool) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent: NewBaseEvent(EventSessionEnded, userID),
		SessionID: sessionID,
		UserID:    userID,
		SubjectID: subjectID,
		StartTime: start,
		EndTime:   end,
		Duration:  duration,
		Completed: completed,
		Skipped:   skipped,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a user gains XP from any source.
type XPGainedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Source string `json:"source"` // "session", "quest"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"amount":  e.Amount,
		"source":  e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		Source:    source,
	}
}

// LevelUpEvent is emitted when accumulated XP crosses the level requirement.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// StreakExtendedEvent is emitted when a user's daily streak grows or restarts.
type StreakExtendedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	StreakDays int    `json:"streak_days"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"streak_days": e.StreakDays,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, streakDays int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:  NewBaseEvent(EventStreakExtended, userID),
		UserID:     userID,
		StreakDays: streakDays,
	}
}

// StreakBrokenEvent is emitted when a gap of more than one day resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	PreviousDays int    `json:"previous_days"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"previous_days": e.PreviousDays,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousDays int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:    NewBaseEvent(EventStreakBroken, userID),
		UserID:       userID,
		PreviousDays: previousDays,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Quest Events
// ═══════════════════════════════════════════════════════════════════════════

// QuestSetGeneratedEvent is emitted when a weekly quest set is created.
type QuestSetGeneratedEvent struct {
	BaseEvent
	UserID    string   `json:"user_id"`
	WeekID    string   `json:"week_id"`
	QuestKeys []string `json:"quest_keys"`
}

// Payload implements Event interface.
func (e QuestSetGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"week_id":    e.WeekID,
		"quest_keys": e.QuestKeys,
	}
}

// NewQuestSetGeneratedEvent creates a new QuestSetGeneratedEvent.
func NewQuestSetGeneratedEvent(userID, weekID string, questKeys []string) QuestSetGeneratedEvent {
	return QuestSetGeneratedEvent{
		BaseEvent: NewBaseEvent(EventQuestSetGenerated, userID),
		UserID:    userID,
		WeekID:    weekID,
		QuestKeys: questKeys,
	}
}

// QuestCompletedEvent is emitted exactly once per quest, when its reward is paid.
type QuestCompletedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	WeekID      string `json:"week_id"`
	QuestID     string `json:"quest_id"`
	RewardCoins int    `json:"reward_coins"`
	RewardXP    int    `json:"reward_xp"`
}

// Payload implements Event interface.
func (e QuestCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"week_id":      e.WeekID,
		"quest_id":     e.QuestID,
		"reward_coins": e.RewardCoins,
		"reward_xp":    e.RewardXP,
	}
}

// NewQuestCompletedEvent creates a new QuestCompletedEvent.
func NewQuestCompletedEvent(userID, weekID, questID string, coins, xp int) QuestCompletedEvent {
	return QuestCompletedEvent{
		BaseEvent:   NewBaseEvent(EventQuestCompleted, userID),
		UserID:      userID,
		WeekID:      weekID,
		QuestID:     questID,
		RewardCoins: coins,
		RewardXP:    xp,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Calendar Events
// ═══════════════════════════════════════════════════════════════════════════

// CalendarEventCompletedEvent is emitted when auto-completion marks an
// agenda event done. The transition is monotonic and never reverted.
type CalendarEventCompletedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	EventID   string `json:"event_id"`
	SubjectID string `json:"subject_id,omitempty"`
	Rule      string `json:"rule"` // "coverage", "goal_crossing" or "manual"
}

// Payload implements Event interface.
func (e CalendarEventCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"event_id":   e.EventID,
		"subject_id": e.SubjectID,
		"rule":       e.Rule,
	}
}

// NewCalendarEventCompletedEvent creates a new CalendarEventCompletedEvent.
func NewCalendarEventCompletedEvent(userID, eventID, subjectID, rule string) CalendarEventCompletedEvent {
	return CalendarEventCompletedEvent{
		BaseEvent: NewBaseEvent(EventCalendarCompleted, userID),
		UserID:    userID,
		EventID:   eventID,
		SubjectID: subjectID,
		Rule:      rule,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Presence Events
// ═══════════════════════════════════════════════════════════════════════════

// PresenceChangedEvent is emitted when a presence write verb changes the
// derived status. Used by the cleanup job for logging only; presence status
// itself is always recomputed on read, never stored.
type PresenceChangedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Payload implements Event interface.
func (e PresenceChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"old_status": e.OldStatus,
		"new_status": e.NewStatus,
	}
}

// NewPresenceChangedEvent creates a new PresenceChangedEvent.
func NewPresenceChangedEvent(userID, oldStatus, newStatus string) PresenceChangedEvent {
	eventType := EventUserWentOnline
	if newStatus == "offline" {
		eventType = EventUserWentOffline
	}
	return PresenceChangedEvent{
		BaseEvent: NewBaseEvent(eventType, userID),
		UserID:    userID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
