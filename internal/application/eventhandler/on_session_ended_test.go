package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyseal/study-hub/internal/domain/presence"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// flakyPresenceStore fails a configurable number of calls before recovering,
// the way a cache behaves during a connection blip.
type flakyPresenceStore struct {
	records  map[shared.UserID]presence.Record
	getFails int
	putFails int
	getCalls int
	putCalls int
}

func newFlakyPresenceStore() *flakyPresenceStore {
	return &flakyPresenceStore{records: make(map[shared.UserID]presence.Record)}
}

func (s *flakyPresenceStore) Get(_ context.Context, userID shared.UserID) (presence.Record, error) {
	s.getCalls++
	if s.getFails > 0 {
		s.getFails--
		return presence.Record{}, errors.New("connection reset")
	}
	r, ok := s.records[userID]
	if !ok {
		return presence.Record{UserID: userID}, nil
	}
	return r, nil
}

func (s *flakyPresenceStore) GetMany(ctx context.Context, userIDs []shared.UserID) (map[shared.UserID]presence.Record, error) {
	out := make(map[shared.UserID]presence.Record, len(userIDs))
	for _, id := range userIDs {
		r, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, nil
}

func (s *flakyPresenceStore) Put(_ context.Context, r presence.Record) error {
	s.putCalls++
	if s.putFails > 0 {
		s.putFails--
		return errors.New("connection reset")
	}
	s.records[r.UserID] = r
	return nil
}

func (s *flakyPresenceStore) DeleteStale(_ context.Context, _ int64) (int, error) {
	return 0, nil
}

var endedAt = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func sessionEnded() shared.Event {
	return shared.NewSessionEndedEvent(
		"f47ac10b-58cc-4372-a567-0e02b2c3d479", "user-1", "math",
		endedAt.Add(-50*time.Minute), endedAt, 50, true, false)
}

func TestOnSessionEnded_RefreshesPresence(t *testing.T) {
	store := newFlakyPresenceStore()
	handler := NewOnSessionEndedHandler(store, nil)

	require.NoError(t, handler.Handle(sessionEnded()))

	record := store.records["user-1"]
	assert.Equal(t, endedAt, record.LastActivity)
	assert.Equal(t, endedAt, record.LastInteraction, "finishing a session counts as interaction")
}

func TestOnSessionEnded_RetriesTransientStoreFailure(t *testing.T) {
	store := newFlakyPresenceStore()
	store.putFails = 1
	handler := NewOnSessionEndedHandler(store, nil)

	require.NoError(t, handler.Handle(sessionEnded()))

	assert.Equal(t, 2, store.putCalls, "first write failed, second succeeded")
	assert.Equal(t, endedAt, store.records["user-1"].LastActivity)
}

func TestOnSessionEnded_GivesUpAfterRetriesExhausted(t *testing.T) {
	store := newFlakyPresenceStore()
	store.getFails = 10
	handler := NewOnSessionEndedHandler(store, nil)

	err := handler.Handle(sessionEnded())

	assert.Error(t, err)
	assert.Empty(t, store.records)
}

func TestOnSessionEnded_RejectsForeignEvent(t *testing.T) {
	store := newFlakyPresenceStore()
	handler := NewOnSessionEndedHandler(store, nil)

	err := handler.Handle(shared.NewStreakBrokenEvent("user-1", 3))

	assert.Error(t, err)
	assert.Zero(t, store.getCalls)
}
