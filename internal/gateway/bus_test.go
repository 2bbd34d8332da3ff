// File: internal/gateway/bus_test.go
package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func collectEvents(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case evt := <-ch:
			out = append(out, evt)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(out))
		}
	}
	return out
}

func TestBus_SubscribeReceivesMatchingTable(t *testing.T) {
	bus := NewBus(zap.NewNop())
	received := make(chan Event, 8)

	unsub := bus.Subscribe("service_requests", nil, func(evt Event) {
		received <- evt
	})
	defer unsub()

	id := uuid.New()
	bus.Publish(Event{Table: "service_requests", Type: EventUpdate, RecordID: id})
	bus.Publish(Event{Table: "notifications", Type: EventInsert, RecordID: uuid.New()})

	events := collectEvents(t, received, 1)
	assert.Equal(t, "service_requests", events[0].Table)
	assert.Equal(t, EventUpdate, events[0].Type)
	assert.Equal(t, id, events[0].RecordID)

	select {
	case evt := <-received:
		t.Fatalf("unexpected event for table %s", evt.Table)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_EventTypeFilter(t *testing.T) {
	bus := NewBus(zap.NewNop())
	received := make(chan Event, 8)

	unsub := bus.Subscribe("notifications", []EventType{EventInsert}, func(evt Event) {
		received <- evt
	})
	defer unsub()

	bus.Publish(Event{Table: "notifications", Type: EventDelete, RecordID: uuid.New()})
	bus.Publish(Event{Table: "notifications", Type: EventInsert, RecordID: uuid.New()})

	events := collectEvents(t, received, 1)
	assert.Equal(t, EventInsert, events[0].Type)
}

func TestBus_PerSubscriberOrdering(t *testing.T) {
	bus := NewBus(zap.NewNop())
	received := make(chan Event, 16)

	unsub := bus.Subscribe("request_notes", nil, func(evt Event) {
		received <- evt
	})
	defer unsub()

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		bus.Publish(Event{Table: "request_notes", Type: EventInsert, RecordID: ids[i]})
	}

	events := collectEvents(t, received, len(ids))
	for i, evt := range events {
		assert.Equal(t, ids[i], evt.RecordID, "event %d out of order", i)
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var mu sync.Mutex
	count := 0

	unsub := bus.Subscribe("service_requests", nil, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()
	unsub() // safe to call twice

	bus.Publish(Event{Table: "service_requests", Type: EventUpdate, RecordID: uuid.New()})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestBus_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus(zap.NewNop())
	block := make(chan struct{})

	unsub := bus.Subscribe("service_requests", nil, func(Event) {
		<-block
	})
	defer unsub()
	defer close(block)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriptionBuffer*2; i++ {
			bus.Publish(Event{Table: "service_requests", Type: EventUpdate, RecordID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a saturated subscriber")
	}
}
