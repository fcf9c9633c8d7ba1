package events

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrBusClosed is returned by Publish once Close has begun draining the bus.
var ErrBusClosed = stdErrors.New("event bus is closed")

// DefaultHandlerTimeout bounds one asynchronous delivery, so a stuck audit
// write cannot hold up shutdown forever.
const DefaultHandlerTimeout = 10 * time.Second

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

// caseScoped events name the case they concern, which goes into every log line.
type caseScoped interface {
	CaseRef() string
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

type EventBus struct {
	handlers map[string][]Handler
	logger   *slog.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

type Option func(*EventBus)

// WithHandlerTimeout sets how long an asynchronous handler may run. Zero disables the bound.
func WithHandlerTimeout(d time.Duration) Option {
	return func(eb *EventBus) { eb.timeout = d }
}

func NewEventBus(logger *slog.Logger, opts ...Option) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	eb := &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
		timeout:  DefaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Info("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

func logArgs(event Event, extra ...any) []any {
	args := []any{"event_type", event.EventType(), "event_id", event.EventID()}
	if cs, ok := event.(caseScoped); ok && cs.CaseRef() != "" {
		args = append(args, "case_id", cs.CaseRef())
	}
	return append(args, extra...)
}

// Publish hands the event to every subscriber on its own goroutine and returns
// at once. Handlers outlive the request: they get a context detached from the
// caller's cancellation.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := eb.handlers[event.EventType()]
	eb.inflight.Add(len(handlers))
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.Info("publishing event", logArgs(event, "handlers_count", len(handlers))...)

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h Handler) {
			defer eb.inflight.Done()
			hctx, cancel := detached, context.CancelFunc(func() {})
			if eb.timeout > 0 {
				hctx, cancel = context.WithTimeout(detached, eb.timeout)
			}
			defer cancel()
			if err := eb.invoke(hctx, h, event); err != nil {
				eb.logger.Error("event handler failed", logArgs(event, "error", err)...)
			}
		}(handler)
	}

	return nil
}

// PublishSync runs the subscribers in order on the caller's goroutine and stops
// at the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	eb.mu.RLock()
	handlers := eb.handlers[event.EventType()]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.Info("publishing event synchronously", logArgs(event, "handlers_count", len(handlers))...)

	for _, handler := range handlers {
		if err := eb.invoke(ctx, handler, event); err != nil {
			eb.logger.Error("event handler failed", logArgs(event, "error", err)...)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}

	return nil
}

// invoke turns a handler panic into an error so one bad subscriber cannot take the server down.
func (eb *EventBus) invoke(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ctx, event)
}

// Wait blocks until every handler started by Publish has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

// Close refuses further asynchronous events and drains the ones in flight.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	eb.closed = true
	eb.mu.Unlock()
	eb.inflight.Wait()
}
