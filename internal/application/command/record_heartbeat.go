package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/presence"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD HEARTBEAT COMMAND
// Applies one of the three presence write verbs. Only timestamps and the tab
// count are stored; status is derived on every read, never here.
// ══════════════════════════════════════════════════════════════════════════════

// HeartbeatVerb is one of the presence write verbs.
type HeartbeatVerb string

const (
	// VerbOpen - a tab opened; counts the tab and stamps both timestamps.
	VerbOpen HeartbeatVerb = "open"

	// VerbPing - periodic heartbeat; stamps activity, and interaction only
	// when the client reports real input.
	VerbPing HeartbeatVerb = "ping"

	// VerbLeave - a tab closed; decrements the count, floored at zero.
	VerbLeave HeartbeatVerb = "leave"
)

// RecordHeartbeatCommand contains one presence verb.
type RecordHeartbeatCommand struct {
	// UserID is the user the heartbeat belongs to.
	UserID string

	// Verb is the presence write verb.
	Verb HeartbeatVerb

	// Interacted reports real input since the last ping (ping verb only).
	Interacted bool

	// Timestamp is when the verb occurred (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c RecordHeartbeatCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_heartbeat: user_id is required")
	}
	switch c.Verb {
	case VerbOpen, VerbPing, VerbLeave:
		return nil
	default:
		return fmt.Errorf("record_heartbeat: unknown verb: %s", c.Verb)
	}
}

// RecordHeartbeatResult reports the record after the verb and the derived
// status transition.
type RecordHeartbeatResult struct {
	Record    presence.Record
	OldStatus presence.Status
	NewStatus presence.Status
}

// RecordHeartbeatHandler handles the RecordHeartbeatCommand.
type RecordHeartbeatHandler struct {
	store     presence.Store
	policy    presence.Policy
	features  FeatureGate // optional
	publisher shared.EventPublisher
}

// NewRecordHeartbeatHandler creates a new RecordHeartbeatHandler.
func NewRecordHeartbeatHandler(store presence.Store, policy presence.Policy, publisher shared.EventPublisher) *RecordHeartbeatHandler {
	return &RecordHeartbeatHandler{store: store, policy: policy, publisher: publisher}
}

// WithFeatureGate wires the rollout gate for presence tracking.
func (h *RecordHeartbeatHandler) WithFeatureGate(gate FeatureGate) *RecordHeartbeatHandler {
	h.features = gate
	return h
}

// Handle executes the heartbeat command.
func (h *RecordHeartbeatHandler) Handle(ctx context.Context, cmd RecordHeartbeatCommand) (*RecordHeartbeatResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_heartbeat: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	record, err := h.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("record_heartbeat: failed to load record: %w", err)
	}
	record.UserID = userID
	oldStatus := h.policy.Derive(record, now)

	// Tracking held back for this user: report the stored record without
	// touching it.
	if h.features != nil && !h.features.PresenceTrackingEnabled(userID.String()) {
		return &RecordHeartbeatResult{
			Record:    record,
			OldStatus: oldStatus,
			NewStatus: oldStatus,
		}, nil
	}

	switch cmd.Verb {
	case VerbOpen:
		record = record.Open(now)
	case VerbPing:
		record = record.Ping(now, cmd.Interacted)
	case VerbLeave:
		record = record.Leave(now)
	}

	if err := h.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("record_heartbeat: failed to store record: %w", err)
	}

	newStatus := h.policy.Derive(record, now)
	if newStatus != oldStatus {
		_ = h.publisher.Publish(shared.NewPresenceChangedEvent(
			userID.String(), oldStatus.String(), newStatus.String()))
	}

	return &RecordHeartbeatResult{
		Record:    record,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}, nil
}
