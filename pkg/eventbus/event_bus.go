// Package eventbus routes chain events to subscribers by event type.
package eventbus

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dukex/flowhook/pkg/models"
)

var ErrBusClosed = errors.New("event bus is closed")

// Stats is a snapshot of the bus counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	DroppedByType map[string]uint64
}

type Option func(*Bus)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger.With("module", "eventbus")
	}
}

// Bus is an in-process publish/subscribe router. Publish never blocks: when a
// subscriber's channel is full the event is dropped for that subscriber and counted.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan<- models.Event
	drops       map[string]*atomic.Uint64
	closed      bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64

	logger *slog.Logger
}

func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[string][]chan<- models.Event),
		drops:       make(map[string]*atomic.Uint64),
		logger:      slog.Default().With("module", "eventbus"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers sink for events of eventType. The caller owns the channel
// and sizes its buffer.
func (b *Bus) Subscribe(eventType string, sink chan<- models.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.subscribers[eventType] = append(b.subscribers[eventType], sink)
	if _, ok := b.drops[eventType]; !ok {
		b.drops[eventType] = &atomic.Uint64{}
	}

	b.logger.Debug("Subscriber registered", "event_type", eventType, "subscribers", len(b.subscribers[eventType]))

	return nil
}

// Publish fans evt out to every subscriber of evt.Type. It is a no-op once the
// bus is closed.
func (b *Bus) Publish(evt models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	b.published.Add(1)

	for _, sink := range b.subscribers[evt.Type] {
		select {
		case sink <- evt:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
			b.drops[evt.Type].Add(1)
			b.logger.Debug("Subscriber full, dropping event", "event_type", evt.Type, "height", evt.Height)
		}
	}
}

// Close stops delivery. Subscriber channels are left open for their owners to close.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}

func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	byType := make(map[string]uint64, len(b.drops))
	for eventType, counter := range b.drops {
		if n := counter.Load(); n > 0 {
			byType[eventType] = n
		}
	}

	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		DroppedByType: byType,
	}
}
