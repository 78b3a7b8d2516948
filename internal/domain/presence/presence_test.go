package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func TestDerive_NoTabsIsOffline(t *testing.T) {
	policy := DefaultPolicy()

	// Fresh timestamps do not matter with no tab open.
	r := Record{TabsOpen: 0, LastActivity: now, LastInteraction: now}
	assert.Equal(t, StatusOffline, policy.Derive(r, now))
}

func TestDerive_StaleActivityIsOffline(t *testing.T) {
	policy := DefaultPolicy()

	r := Record{
		TabsOpen:        1,
		LastActivity:    now.Add(-121 * time.Second),
		LastInteraction: now,
	}
	assert.Equal(t, StatusOffline, policy.Derive(r, now))
}

func TestDerive_MissingActivityIsOffline(t *testing.T) {
	policy := DefaultPolicy()

	r := Record{TabsOpen: 1, LastInteraction: now}
	assert.Equal(t, StatusOffline, policy.Derive(r, now))
}

func TestDerive_StaleInteractionIsAway(t *testing.T) {
	policy := DefaultPolicy()

	r := Record{
		TabsOpen:        1,
		LastActivity:    now.Add(-10 * time.Second),
		LastInteraction: now.Add(-2000 * time.Second),
	}
	assert.Equal(t, StatusAway, policy.Derive(r, now))
}

func TestDerive_FreshEverythingIsOnline(t *testing.T) {
	policy := DefaultPolicy()

	r := Record{
		TabsOpen:        1,
		LastActivity:    now.Add(-10 * time.Second),
		LastInteraction: now.Add(-10 * time.Second),
	}
	assert.Equal(t, StatusOnline, policy.Derive(r, now))
}

func TestDerive_BoundaryTimings(t *testing.T) {
	policy := DefaultPolicy()

	// Exactly at the timeout is still inside it.
	atActivityLimit := Record{
		TabsOpen:        1,
		LastActivity:    now.Add(-120 * time.Second),
		LastInteraction: now,
	}
	assert.Equal(t, StatusOnline, policy.Derive(atActivityLimit, now))

	atInteractionLimit := Record{
		TabsOpen:        1,
		LastActivity:    now,
		LastInteraction: now.Add(-1800 * time.Second),
	}
	assert.Equal(t, StatusOnline, policy.Derive(atInteractionLimit, now))
}

func TestOpen_StampsBothAndCountsTabs(t *testing.T) {
	r := Record{UserID: "user-1"}

	r = r.Open(now)
	r = r.Open(now.Add(time.Second))

	assert.Equal(t, 2, r.TabsOpen)
	assert.Equal(t, now.Add(time.Second), r.LastActivity)
	assert.Equal(t, now.Add(time.Second), r.LastInteraction)
}

func TestPing_InteractionOnlyWhenReported(t *testing.T) {
	r := Record{UserID: "user-1", TabsOpen: 1, LastActivity: now, LastInteraction: now}

	later := now.Add(30 * time.Second)
	r = r.Ping(later, false)
	assert.Equal(t, later, r.LastActivity)
	assert.Equal(t, now, r.LastInteraction, "heartbeat alone must not refresh interaction")

	evenLater := now.Add(60 * time.Second)
	r = r.Ping(evenLater, true)
	assert.Equal(t, evenLater, r.LastInteraction)
}

func TestLeave_FloorsTabCountAtZero(t *testing.T) {
	r := Record{UserID: "user-1", TabsOpen: 1}

	r = r.Leave(now)
	assert.Equal(t, 0, r.TabsOpen)

	r = r.Leave(now.Add(time.Second))
	assert.Equal(t, 0, r.TabsOpen, "extra leave events must not go negative")
	assert.Equal(t, now.Add(time.Second), r.LastActivity)
}

func TestVerbSequence_DerivedTransitions(t *testing.T) {
	policy := DefaultPolicy()
	r := Record{UserID: "user-1"}

	r = r.Open(now)
	assert.Equal(t, StatusOnline, policy.Derive(r, now.Add(5*time.Second)))

	// Heartbeats keep activity fresh; without interaction the user decays
	// to away once the interaction window lapses.
	cursor := now
	for i := 0; i < 31; i++ {
		cursor = cursor.Add(time.Minute)
		r = r.Ping(cursor, false)
	}
	assert.Equal(t, StatusAway, policy.Derive(r, cursor))

	r = r.Leave(cursor)
	assert.Equal(t, StatusOffline, policy.Derive(r, cursor))
}
