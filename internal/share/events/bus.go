package events

import (
	"log/slog"
	"sync"
	"time"
)

const defaultBuffer = 256

// Handler consumes one lifecycle event. Handlers run on the bus goroutine,
// off the session manager's hot path.
type Handler func(Event)

// Bus fans lifecycle events out to registered handlers through a buffered
// channel. Publish never blocks: when the buffer is full the event is
// dropped and logged rather than stalling a session transition.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler

	events    chan Event
	wg        sync.WaitGroup
	logger    *slog.Logger
	closeOnce sync.Once
}

// BusOption configures the Bus.
type BusOption func(*Bus)

// WithBuffer overrides the event buffer size when greater than zero.
func WithBuffer(size int) BusOption {
	return func(b *Bus) {
		if size > 0 {
			b.events = make(chan Event, size)
		}
	}
}

// WithBusLogger sets a logger for drop reporting.
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus constructs a running bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		events: make(chan Event, defaultBuffer),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event without blocking. A zero timestamp is stamped
// with the current time.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.events <- event:
	default:
		b.logger.Warn("event buffer full, lifecycle event dropped",
			"kind", string(event.Kind),
			"session_id", event.SessionID.String(),
		)
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.events)
		b.wg.Wait()
	})
}

func (b *Bus) dispatch() {
	defer b.wg.Done()
	for event := range b.events {
		b.mu.RLock()
		handlers := b.handlers
		b.mu.RUnlock()
		for _, h := range handlers {
			h(event)
		}
	}
}
