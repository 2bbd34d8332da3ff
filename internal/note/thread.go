// File: internal/note/thread.go
package note

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk_backend/internal/gateway"
)

// ThreadView owns the live note history for one open request thread. It
// merges notes arriving over the push bus into the loaded history, so a
// note echoed back after the viewer's own append never duplicates.
type ThreadView struct {
	mu          sync.Mutex
	requestID   uuid.UUID
	notes       []ServiceNote
	listeners   map[uint64]func([]ServiceNote)
	nextID      uint64
	unsubscribe func()
	disposed    bool
	logger      *zap.Logger
}

func newThreadView(requestID uuid.UUID, bus *gateway.Bus, logger *zap.Logger) *ThreadView {
	tv := &ThreadView{
		requestID: requestID,
		listeners: make(map[uint64]func([]ServiceNote)),
		logger:    logger,
	}
	tv.unsubscribe = bus.Subscribe(ServiceNote{}.TableName(), []gateway.EventType{gateway.EventInsert}, tv.onInsert)
	return tv
}

// seed merges the loaded history into the view. The bus subscription is
// already active, so a note pushed during the load dedupes by id here.
func (tv *ThreadView) seed(notes []ServiceNote) {
	tv.mu.Lock()
	for _, n := range notes {
		tv.notes = MergeIncoming(tv.notes, n)
	}
	snapshot := tv.snapshotLocked()
	notify := tv.notifyLocked(snapshot)
	tv.mu.Unlock()
	notify()
}

func (tv *ThreadView) onInsert(evt gateway.Event) {
	n, ok := evt.Payload.(*ServiceNote)
	if !ok || n.RequestID != tv.requestID {
		return
	}

	tv.mu.Lock()
	if tv.disposed {
		tv.mu.Unlock()
		return
	}
	tv.notes = MergeIncoming(tv.notes, *n)
	snapshot := tv.snapshotLocked()
	notify := tv.notifyLocked(snapshot)
	tv.mu.Unlock()
	notify()
}

// Notes returns the thread in chronological order.
func (tv *ThreadView) Notes() []ServiceNote {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.snapshotLocked()
}

// OnChange registers a listener invoked with the full thread snapshot after
// every change. The returned function cancels the registration.
func (tv *ThreadView) OnChange(fn func([]ServiceNote)) (unsubscribe func()) {
	tv.mu.Lock()
	id := tv.nextID
	tv.nextID++
	tv.listeners[id] = fn
	tv.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			tv.mu.Lock()
			delete(tv.listeners, id)
			tv.mu.Unlock()
		})
	}
}

// Dispose cancels the bus subscription and drops all listeners.
func (tv *ThreadView) Dispose() {
	tv.mu.Lock()
	if tv.disposed {
		tv.mu.Unlock()
		return
	}
	tv.disposed = true
	tv.listeners = make(map[uint64]func([]ServiceNote))
	unsubscribe := tv.unsubscribe
	tv.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (tv *ThreadView) snapshotLocked() []ServiceNote {
	snapshot := make([]ServiceNote, len(tv.notes))
	copy(snapshot, tv.notes)
	return snapshot
}

// notifyLocked captures the current listeners; the returned closure runs
// them outside the lock.
func (tv *ThreadView) notifyLocked(snapshot []ServiceNote) func() {
	listeners := make([]func([]ServiceNote), 0, len(tv.listeners))
	for _, fn := range tv.listeners {
		listeners = append(listeners, fn)
	}
	return func() {
		for _, fn := range listeners {
			fn(snapshot)
		}
	}
}
