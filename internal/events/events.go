package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the booking engine.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"
	SlotCreated      = "slot.created"
	SlotUpdated      = "slot.updated"
	SlotDeleted      = "slot.deleted"

	// All subscribes a handler to every event type.
	All = "*"
)

// Actors recorded on events.
const (
	ActorUser  = "user"
	ActorAdmin = "admin"
)

// Event is a lightweight domain notification.
type Event struct {
	Type      string
	SlotID    string
	BookingID string
	Actor     string
	Category  string
	Amount    float64
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bus{subscribers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers a handler for a given event type, or All.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handler errors are logged
// and never reach the publisher. A nil bus drops the event.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[All]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}
