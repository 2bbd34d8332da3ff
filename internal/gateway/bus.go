// File: internal/gateway/bus.go
package gateway

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies the kind of row change carried by an Event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is a single row-change notification pushed to subscribers after a
// write commits.
type Event struct {
	Table    string
	Type     EventType
	RecordID uuid.UUID
	// OwnerID identifies the actor whose data the row belongs to. Rows
	// with no owner (inventory) are visible to staff only.
	OwnerID uuid.UUID
	Payload interface{}
}

// Handler receives events for a subscription. Handlers run on the
// subscription's delivery goroutine, so they must not block indefinitely.
type Handler func(Event)

type subscription struct {
	table   string
	types   map[EventType]bool
	ch      chan Event
	done    chan struct{}
	handler Handler
}

// Bus fans out committed row changes to interested subscribers. Each
// subscriber gets its own delivery goroutine, so events arrive in publish
// order per subscription and a slow handler cannot stall writers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	logger *zap.Logger
}

const subscriptionBuffer = 64

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]*subscription),
		logger: logger.Named("gateway"),
	}
}

// Subscribe registers a handler for changes to the given table. An empty
// types slice means all event types. The returned function cancels the
// subscription; it is safe to call more than once.
func (b *Bus) Subscribe(table string, types []EventType, handler Handler) (unsubscribe func()) {
	sub := &subscription{
		table:   table,
		types:   make(map[EventType]bool, len(types)),
		ch:      make(chan Event, subscriptionBuffer),
		done:    make(chan struct{}),
		handler: handler,
	}
	for _, t := range types {
		sub.types[t] = true
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go sub.deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

// Publish delivers evt to every matching subscription. It never blocks the
// caller: if a subscriber's buffer is full the event is dropped for that
// subscriber and logged, since stale subscribers recover on their next
// full refresh.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.table != evt.Table {
			continue
		}
		if len(sub.types) > 0 && !sub.types[evt.Type] {
			continue
		}
		select {
		case sub.ch <- evt:
		case <-sub.done:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				zap.String("table", evt.Table),
				zap.String("type", string(evt.Type)),
				zap.String("recordID", evt.RecordID.String()),
			)
		}
	}
}

func (s *subscription) deliver() {
	for {
		select {
		case evt := <-s.ch:
			s.handler(evt)
		case <-s.done:
			return
		}
	}
}
