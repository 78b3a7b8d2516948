// Package presence derives Online/Away/Offline from heartbeat timestamps.
// Status is never stored: every read recomputes it from the raw record, so
// there are no background timers to drift out of sync.
package presence

import (
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// Status is the derived presence state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// Policy holds the derivation thresholds.
type Policy struct {
	// ActivityTimeout bounds how stale the last heartbeat may be before
	// the user counts as offline.
	ActivityTimeout time.Duration

	// InteractionTimeout bounds how long without real input (keyboard,
	// mouse) before an open tab counts as away.
	InteractionTimeout time.Duration
}

// DefaultPolicy returns the production thresholds: 120s activity, 30m
// interaction.
func DefaultPolicy() Policy {
	return Policy{
		ActivityTimeout:    120 * time.Second,
		InteractionTimeout: 1800 * time.Second,
	}
}

// Record is the raw per-user presence state the write verbs maintain.
// Zero timestamps mean "never observed".
type Record struct {
	UserID          shared.UserID `json:"user_id"`
	TabsOpen        int           `json:"tabs_open"`
	LastActivity    time.Time     `json:"last_activity"`
	LastInteraction time.Time     `json:"last_interaction"`
}

// Derive computes the status from a record. Order matters: a closed tab or
// stale heartbeat is offline no matter how fresh the interaction is.
func (p Policy) Derive(r Record, now time.Time) Status {
	if r.TabsOpen <= 0 {
		return StatusOffline
	}
	if r.LastActivity.IsZero() || now.Sub(r.LastActivity) > p.ActivityTimeout {
		return StatusOffline
	}
	if r.LastInteraction.IsZero() || now.Sub(r.LastInteraction) > p.InteractionTimeout {
		return StatusAway
	}
	return StatusOnline
}

// The three write verbs. Each mutates only timestamps and the tab count;
// none of them stores a status.

// Open registers a new tab and stamps both timestamps.
func (r Record) Open(now time.Time) Record {
	r.TabsOpen++
	r.LastActivity = now
	r.LastInteraction = now
	return r
}

// Ping stamps the activity heartbeat; the interaction timestamp moves only
// when the client reports real input.
func (r Record) Ping(now time.Time, interacted bool) Record {
	r.LastActivity = now
	if interacted {
		r.LastInteraction = now
	}
	return r
}

// Leave closes a tab, never dropping the count below zero, and stamps
// activity so a quick reopen is not mistaken for a stale record.
func (r Record) Leave(now time.Time) Record {
	if r.TabsOpen > 0 {
		r.TabsOpen--
	}
	r.LastActivity = now
	return r
}
