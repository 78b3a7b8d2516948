package messaging

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type testEvent struct {
	shared.BaseEvent
	Seq int
}

func (e testEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"seq": e.Seq}
}

func newTestEvent(aggregateID string, seq int) testEvent {
	return testEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventSessionEnded, aggregateID),
		Seq:       seq,
	}
}

func newTestDispatcher(t *testing.T, mutate func(*DispatcherConfig)) *Dispatcher {
	t.Helper()

	config := DefaultDispatcherConfig()
	config.MaxRetries = 0
	config.RetryBaseDelay = time.Millisecond
	config.HandlerTimeout = 0
	if mutate != nil {
		mutate(&config)
	}

	d := NewDispatcher(config)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// ─────────────────────────────────────────────────────────────────────────────
// Dispatcher
// ─────────────────────────────────────────────────────────────────────────────

func TestDispatcher_DeliversToRegisteredHandler(t *testing.T) {
	d := newTestDispatcher(t, nil)

	received := make(chan shared.Event, 1)
	err := d.Register(shared.EventSessionEnded, "recorder", func(event shared.Event) error {
		received <- event
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(newTestEvent("user-1", 1)))

	select {
	case event := <-received:
		assert.Equal(t, "user-1", event.AggregateID())
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestDispatcher_SameAggregateProcessedInOrder(t *testing.T) {
	d := newTestDispatcher(t, func(c *DispatcherConfig) {
		c.Workers = 4
	})

	const total = 50

	var mu sync.Mutex
	seen := make([]int, 0, total)
	done := make(chan struct{})

	err := d.Register(shared.EventSessionEnded, "order-check", func(event shared.Event) error {
		te := event.(testEvent)

		mu.Lock()
		seen = append(seen, te.Seq)
		if len(seen) == total {
			close(done)
		}
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < total; i++ {
		require.NoError(t, d.Dispatch(newTestEvent("user-42", i)))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all events were processed")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, seq := range seen {
		assert.Equal(t, i, seq, "events for one aggregate must keep dispatch order")
	}
}

func TestDispatcher_AggregatesMapToStableQueues(t *testing.T) {
	d := newTestDispatcher(t, func(c *DispatcherConfig) {
		c.Workers = 8
	})

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("user-%d", i)
		first := d.queueIndex(id)

		assert.Equal(t, first, d.queueIndex(id))
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, 8)
	}
}

func TestDispatcher_RetriesBeforeDeadLetter(t *testing.T) {
	d := newTestDispatcher(t, func(c *DispatcherConfig) {
		c.MaxRetries = 2
	})

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	err := d.Register(shared.EventSessionEnded, "flaky", func(event shared.Event) error {
		mu.Lock()
		defer mu.Unlock()

		attempts++
		if attempts < 3 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(newTestEvent("user-1", 1)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
	assert.Empty(t, d.DeadLetters())
}

func TestDispatcher_ExhaustedRetriesGoToDeadLetter(t *testing.T) {
	d := newTestDispatcher(t, func(c *DispatcherConfig) {
		c.MaxRetries = 1
	})

	processed := make(chan struct{}, 4)
	err := d.Register(shared.EventSessionEnded, "always-fails", func(event shared.Event) error {
		processed <- struct{}{}
		return errors.New("permanent failure")
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(newTestEvent("user-1", 1)))

	for i := 0; i < 2; i++ {
		select {
		case <-processed:
		case <-time.After(2 * time.Second):
			t.Fatal("expected retry attempts")
		}
	}

	assert.Eventually(t, func() bool {
		return len(d.DeadLetters()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	letters := d.DeadLetters()
	require.Len(t, letters, 1)
	assert.Equal(t, "always-fails", letters[0].HandlerName)
	assert.Contains(t, letters[0].Error, "permanent failure")
}

func TestDispatcher_RecoversFromHandlerPanic(t *testing.T) {
	d := newTestDispatcher(t, nil)

	err := d.Register(shared.EventSessionEnded, "panics", func(event shared.Event) error {
		panic("boom")
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(newTestEvent("user-1", 1)))

	assert.Eventually(t, func() bool {
		return len(d.DeadLetters()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	letters := d.DeadLetters()
	require.Len(t, letters, 1)
	assert.Contains(t, letters[0].Error, "boom")
}

func TestDispatcher_DispatchAfterCloseFails(t *testing.T) {
	d := NewDispatcher(DefaultDispatcherConfig())
	require.NoError(t, d.Close())

	err := d.Dispatch(newTestEvent("user-1", 1))
	assert.ErrorIs(t, err, ErrDispatcherClosed)

	err = d.Register(shared.EventSessionEnded, "late", func(event shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestDispatcher_MetricsTrackOutcomes(t *testing.T) {
	d := newTestDispatcher(t, nil)

	err := d.Register(shared.EventSessionEnded, "fails", func(event shared.Event) error {
		return errors.New("no")
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(newTestEvent("user-1", 1)))

	assert.Eventually(t, func() bool {
		return d.Metrics().Snapshot().TotalDeadLetter == 1
	}, 2*time.Second, 10*time.Millisecond)

	snapshot := d.Metrics().Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalDispatched)
	assert.Equal(t, int64(1), snapshot.TotalFailures)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dead letter queue
// ─────────────────────────────────────────────────────────────────────────────

func TestDeadLetterQueue_EvictsOldestWhenFull(t *testing.T) {
	q := NewDeadLetterQueue(2)

	for i := 0; i < 3; i++ {
		q.Add(DeadLetter{HandlerName: fmt.Sprintf("h-%d", i)})
	}

	items := q.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "h-1", items[0].HandlerName)
	assert.Equal(t, "h-2", items[1].HandlerName)
}

// ─────────────────────────────────────────────────────────────────────────────
// In-memory event bus
// ─────────────────────────────────────────────────────────────────────────────

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	t.Cleanup(func() { _ = bus.Close() })

	var calls int
	err := bus.Subscribe(shared.EventSessionEnded, func(event shared.Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(newTestEvent("user-1", 1)))
	assert.Equal(t, 1, calls)
}

func TestInMemoryEventBus_SubscribeAllSeesEveryType(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	t.Cleanup(func() { _ = bus.Close() })

	var types []shared.EventType
	err := bus.SubscribeAll(func(event shared.Event) error {
		types = append(types, event.EventType())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(newTestEvent("user-1", 1)))

	other := testEvent{BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, "user-1")}
	require.NoError(t, bus.Publish(other))

	assert.Equal(t, []shared.EventType{shared.EventSessionEnded, shared.EventLevelUp}, types)
}

func TestInMemoryEventBus_PublishAfterCloseFails(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	require.NoError(t, bus.Close())

	err := bus.Publish(newTestEvent("user-1", 1))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
