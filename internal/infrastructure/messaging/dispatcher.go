package messaging

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes events to registered handlers through a fixed set of
// worker queues. Events are assigned to a queue by hashing their aggregate
// id, so all events for one user are processed in the order they were
// dispatched while different users proceed in parallel.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]HandlerRegistration

	queues []chan shared.Event
	logger *slog.Logger

	maxRetries     int
	retryBaseDelay time.Duration
	handlerTimeout time.Duration
	middleware     []Middleware
	deadLetter     *DeadLetterQueue
	metrics        *DispatcherMetrics

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// HandlerRegistration pairs a handler with its name for logging and
// dead-letter attribution.
type HandlerRegistration struct {
	Name    string
	Handler shared.EventHandler
}

// Middleware wraps an event handler with cross-cutting behavior.
type Middleware func(next shared.EventHandler) shared.EventHandler

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// Workers is the number of serial queues (and goroutines) to run
	Workers int

	// QueueSize is the buffer size of each worker queue
	QueueSize int

	// MaxRetries is how many times a failing handler is retried
	MaxRetries int

	// RetryBaseDelay is the delay before the first retry; it doubles per attempt
	RetryBaseDelay time.Duration

	// HandlerTimeout bounds a single handler execution (0 disables)
	HandlerTimeout time.Duration

	// DeadLetterCapacity bounds the dead-letter buffer
	DeadLetterCapacity int

	// Logger for structured logging
	Logger *slog.Logger

	// EnableMetrics enables metrics collection
	EnableMetrics bool
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:            8,
		QueueSize:          256,
		MaxRetries:         3,
		RetryBaseDelay:     100 * time.Millisecond,
		HandlerTimeout:     30 * time.Second,
		DeadLetterCapacity: 1000,
		EnableMetrics:      true,
	}
}

// NewDispatcher creates a dispatcher and starts its workers.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 100 * time.Millisecond
	}
	if config.DeadLetterCapacity <= 0 {
		config.DeadLetterCapacity = 1000
	}

	d := &Dispatcher{
		handlers:       make(map[shared.EventType][]HandlerRegistration),
		queues:         make([]chan shared.Event, config.Workers),
		logger:         config.Logger,
		maxRetries:     config.MaxRetries,
		retryBaseDelay: config.RetryBaseDelay,
		handlerTimeout: config.HandlerTimeout,
		deadLetter:     NewDeadLetterQueue(config.DeadLetterCapacity),
		closeCh:        make(chan struct{}),
	}

	if config.EnableMetrics {
		d.metrics = NewDispatcherMetrics()
	}

	d.middleware = []Middleware{
		RecoveryMiddleware(d.logger),
		LoggingMiddleware(d.logger),
	}
	if d.handlerTimeout > 0 {
		d.middleware = append(d.middleware, TimeoutMiddleware(d.handlerTimeout))
	}

	for i := range d.queues {
		d.queues[i] = make(chan shared.Event, config.QueueSize)
		d.wg.Add(1)
		go d.workerLoop(i)
	}

	return d
}

// Register adds a named handler for an event type.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if name == "" {
		return errors.New("handler name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	d.handlers[eventType] = append(d.handlers[eventType], HandlerRegistration{
		Name:    name,
		Handler: handler,
	})
	d.logger.Debug("registered handler", "event_type", eventType, "handler", name)

	return nil
}

// Use appends a middleware applied to every handler. Must be called before
// the first Dispatch.
func (d *Dispatcher) Use(mw Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.middleware = append(d.middleware, mw)
}

// Dispatch enqueues an event onto the queue owned by its aggregate.
// It blocks when that queue is full, which backpressures the publisher
// instead of reordering the user's events.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed
	}
	d.mu.RUnlock()

	queue := d.queues[d.queueIndex(event.AggregateID())]

	select {
	case queue <- event:
		if d.metrics != nil {
			d.metrics.RecordDispatch(event.EventType())
		}
		return nil
	case <-d.closeCh:
		return ErrDispatcherClosed
	}
}

// queueIndex maps an aggregate id onto a worker queue.
func (d *Dispatcher) queueIndex(aggregateID string) int {
	h := fnv.New32a()
	h.Write([]byte(aggregateID))
	return int(h.Sum32() % uint32(len(d.queues)))
}

// workerLoop drains one queue serially.
func (d *Dispatcher) workerLoop(index int) {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queues[index]:
			d.processEvent(event)
		case <-d.closeCh:
			// Drain what was already enqueued before shutdown.
			for {
				select {
				case event := <-d.queues[index]:
					d.processEvent(event)
				default:
					return
				}
			}
		}
	}
}

// processEvent runs every registered handler for the event, with retries.
func (d *Dispatcher) processEvent(event shared.Event) {
	d.mu.RLock()
	registrations := make([]HandlerRegistration, len(d.handlers[event.EventType()]))
	copy(registrations, d.handlers[event.EventType()])
	middleware := d.middleware
	d.mu.RUnlock()

	for _, reg := range registrations {
		handler := reg.Handler
		for i := len(middleware) - 1; i >= 0; i-- {
			handler = middleware[i](handler)
		}

		start := time.Now()
		err := d.executeWithRetry(event, handler)
		duration := time.Since(start)

		if d.metrics != nil {
			d.metrics.RecordExecution(event.EventType(), duration, err == nil)
		}

		if err != nil {
			d.logger.Error("handler failed after retries",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"handler", reg.Name,
				"error", err,
			)
			d.deadLetter.Add(DeadLetter{
				Event:       event,
				HandlerName: reg.Name,
				Error:       err.Error(),
				FailedAt:    time.Now().UTC(),
			})
			if d.metrics != nil {
				d.metrics.RecordDeadLetter(event.EventType())
			}
		}
	}
}

// executeWithRetry runs a handler with exponential backoff.
func (d *Dispatcher) executeWithRetry(event shared.Event, handler shared.EventHandler) error {
	var lastErr error

	delay := d.retryBaseDelay
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-d.closeCh:
				return lastErr
			}
			delay *= 2
		}

		if lastErr = handler(event); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("after %d attempts: %w", d.maxRetries+1, lastErr)
}

// Close stops accepting events, drains the queues, and waits for workers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	close(d.closeCh)
	d.wg.Wait()

	d.logger.Info("dispatcher closed")
	return nil
}

// DeadLetters returns the undeliverable events captured so far.
func (d *Dispatcher) DeadLetters() []DeadLetter {
	return d.deadLetter.Items()
}

// Metrics returns the current metrics.
func (d *Dispatcher) Metrics() *DispatcherMetrics {
	return d.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic",
						"event_type", event.EventType(),
						"panic", r,
					)
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs handler executions at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			logger.Debug("handled event",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
				"success", err == nil,
			)
			return err
		}
	}
}

// TimeoutMiddleware bounds a handler execution.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- next(event)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return fmt.Errorf("handler timed out after %s", timeout)
			}
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetter records an event that exhausted its retries.
type DeadLetter struct {
	Event       shared.Event
	HandlerName string
	Error       string
	FailedAt    time.Time
}

// DeadLetterQueue is a bounded in-memory buffer of failed events. When full,
// the oldest entry is dropped.
type DeadLetterQueue struct {
	mu       sync.Mutex
	items    []DeadLetter
	capacity int
}

// NewDeadLetterQueue creates a dead-letter queue with the given capacity.
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	return &DeadLetterQueue{
		items:    make([]DeadLetter, 0, capacity),
		capacity: capacity,
	}
}

// Add appends a failed event, evicting the oldest when at capacity.
func (q *DeadLetterQueue) Add(letter DeadLetter) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, letter)
}

// Items returns a copy of the buffered dead letters.
func (q *DeadLetterQueue) Items() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetter, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of buffered dead letters.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// DispatcherMetrics tracks dispatcher performance.
type DispatcherMetrics struct {
	mu sync.RWMutex

	Dispatched    map[shared.EventType]int64
	Executions    int64
	Successes     int64
	Failures      int64
	DeadLettered  map[shared.EventType]int64
	TotalDuration time.Duration
}

// NewDispatcherMetrics creates a new metrics tracker.
func NewDispatcherMetrics() *DispatcherMetrics {
	return &DispatcherMetrics{
		Dispatched:   make(map[shared.EventType]int64),
		DeadLettered: make(map[shared.EventType]int64),
	}
}

// RecordDispatch records an enqueued event.
func (m *DispatcherMetrics) RecordDispatch(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dispatched[eventType]++
}

// RecordExecution records a completed handler run.
func (m *DispatcherMetrics) RecordExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Executions++
	m.TotalDuration += duration
	if success {
		m.Successes++
	} else {
		m.Failures++
	}
}

// RecordDeadLetter records an event that exhausted its retries.
func (m *DispatcherMetrics) RecordDeadLetter(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeadLettered[eventType]++
}

// Snapshot returns a point-in-time copy of the counters.
func (m *DispatcherMetrics) Snapshot() DispatcherMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var dispatched, deadLettered int64
	for _, v := range m.Dispatched {
		dispatched += v
	}
	for _, v := range m.DeadLettered {
		deadLettered += v
	}

	avg := time.Duration(0)
	if m.Executions > 0 {
		avg = m.TotalDuration / time.Duration(m.Executions)
	}

	return DispatcherMetricsSnapshot{
		TotalDispatched: dispatched,
		TotalExecutions: m.Executions,
		TotalFailures:   m.Failures,
		TotalDeadLetter: deadLettered,
		AverageDuration: avg,
	}
}

// DispatcherMetricsSnapshot is a point-in-time view of dispatcher counters.
type DispatcherMetricsSnapshot struct {
	TotalDispatched int64
	TotalExecutions int64
	TotalFailures   int64
	TotalDeadLetter int64
	AverageDuration time.Duration
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrDispatcherClosed is returned when dispatching on a closed dispatcher.
var ErrDispatcherClosed = errors.New("dispatcher is closed")
