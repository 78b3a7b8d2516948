package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/presence"
	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PRESENCE QUERY
// Batch presence for group views: derived status plus the active-session
// timer snapshot, all recomputed at read time.
// ══════════════════════════════════════════════════════════════════════════════

// GetPresenceQuery requests presence for a batch of users.
type GetPresenceQuery struct {
	UserIDs []string

	// Now is the derivation instant (defaults to the current time if zero).
	Now time.Time
}

// Validate validates the query.
func (q GetPresenceQuery) Validate() error {
	if len(q.UserIDs) == 0 {
		return errors.New("get_presence: at least one user_id is required")
	}
	return nil
}

// UserPresence is one user's derived view.
type UserPresence struct {
	UserID        shared.UserID
	Status        presence.Status
	ActiveSession *session.ActiveSession // nil when no timer is running
}

// GetPresenceResult maps users to their presence.
type GetPresenceResult struct {
	Users []UserPresence
}

// GetPresenceHandler handles the query.
type GetPresenceHandler struct {
	store       presence.Store
	activeStore session.ActiveStore
	policy      presence.Policy
}

// NewGetPresenceHandler creates the handler.
func NewGetPresenceHandler(store presence.Store, activeStore session.ActiveStore, policy presence.Policy) *GetPresenceHandler {
	return &GetPresenceHandler{store: store, activeStore: activeStore, policy: policy}
}

// Handle executes the query.
func (h *GetPresenceHandler) Handle(ctx context.Context, q GetPresenceQuery) (*GetPresenceResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_presence: validation failed: %w", err)
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	ids := make([]shared.UserID, 0, len(q.UserIDs))
	for _, raw := range q.UserIDs {
		id, err := shared.NewUserID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	records, err := h.store.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get_presence: failed to load records: %w", err)
	}

	result := &GetPresenceResult{Users: make([]UserPresence, 0, len(ids))}
	for _, id := range ids {
		record := records[id]
		record.UserID = id
		status := h.policy.Derive(record, now)

		up := UserPresence{UserID: id, Status: status}
		if status != presence.StatusOffline {
			// The timer snapshot only matters for visible users.
			if active, err := h.activeStore.GetActive(ctx, id); err == nil {
				up.ActiveSession = active
			}
		}
		result.Users = append(result.Users, up)
	}

	return result, nil
}
