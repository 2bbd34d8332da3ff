// File: internal/unread/tracker.go
package unread

import (
	"fmt"
	"sync"

	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/note"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertListener receives one-shot alerts for foreign notes.
type AlertListener func(Alert)

// Tracker derives the per-request unread flags for one actor. The flag for
// a request is true when the latest note was written by someone else and
// the actor has not opened the thread since. It is rebuilt wholesale on a
// foreground refresh and updated incrementally from pushed note inserts;
// silent background refreshes never touch it, so badges do not flash
// during routine polling.
type Tracker struct {
	mu         sync.Mutex
	actorID    uuid.UUID
	openThread uuid.UUID // uuid.Nil when no thread is open
	unread     map[uuid.UUID]bool
	volume     float64

	listeners   map[uint64]AlertListener
	nextID      uint64
	unsubscribe func()
	disposed    bool

	logger *zap.Logger
}

// NewTracker builds a tracker for one actor and subscribes it to pushed
// note inserts. Dispose must be called when the actor's session ends.
func NewTracker(actorID uuid.UUID, volume float64, bus *gateway.Bus, logger *zap.Logger) *Tracker {
	t := &Tracker{
		actorID:   actorID,
		unread:    make(map[uuid.UUID]bool),
		volume:    volume,
		listeners: make(map[uint64]AlertListener),
		logger:    logger,
	}
	t.unsubscribe = bus.Subscribe(note.ServiceNote{}.TableName(), []gateway.EventType{gateway.EventInsert}, func(evt gateway.Event) {
		n, ok := evt.Payload.(*note.ServiceNote)
		if !ok {
			logger.Warn("Unexpected payload on note insert event", zap.String("recordID", evt.RecordID.String()))
			return
		}
		t.OnNoteInserted(n)
	})
	return t
}

// Rebuild recomputes the whole map from the latest note per request. Called
// on foreground refreshes only.
func (t *Tracker) Rebuild(requestIDs []uuid.UUID, latest map[uuid.UUID]note.ServiceNote) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	t.unread = make(map[uuid.UUID]bool, len(requestIDs))
	for _, id := range requestIDs {
		n, ok := latest[id]
		t.unread[id] = ok && n.AuthorID != t.actorID
	}
}

// OnNoteInserted applies one pushed note. Own notes are ignored; notes for
// the currently open thread are considered read on arrival; anything else
// flips the flag and raises a single alert.
func (t *Tracker) OnNoteInserted(n *note.ServiceNote) {
	t.mu.Lock()
	if t.disposed || n.AuthorID == t.actorID {
		t.mu.Unlock()
		return
	}
	if n.RequestID == t.openThread {
		// The actor is looking at this thread right now.
		t.mu.Unlock()
		return
	}
	t.unread[n.RequestID] = true

	alert := Alert{
		RequestID: n.RequestID,
		Title:     "New note",
		Message:   alertMessage(n),
		Volume:    t.volume,
	}
	listeners := make([]AlertListener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.mu.Unlock()

	for _, l := range listeners {
		l(alert)
	}
}

// OpenThread marks a thread as being viewed and acknowledges its unread
// flag. Acknowledgment happens exactly here, never on a timer.
func (t *Tracker) OpenThread(requestID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	t.openThread = requestID
	t.unread[requestID] = false
}

// CloseThread clears the open-thread marker.
func (t *Tracker) CloseThread() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openThread = uuid.Nil
}

// Snapshot returns a copy of the unread map.
func (t *Tracker) Snapshot() map[uuid.UUID]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make(map[uuid.UUID]bool, len(t.unread))
	for id, v := range t.unread {
		snapshot[id] = v
	}
	return snapshot
}

// SetVolume updates the sound volume used for subsequent alerts.
func (t *Tracker) SetVolume(volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = volume
}

// OnAlert registers a listener. The returned function removes it.
func (t *Tracker) OnAlert(listener AlertListener) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.listeners, id)
		})
	}
}

// Dispose detaches the tracker from the push stream and drops listeners.
func (t *Tracker) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	t.listeners = make(map[uint64]AlertListener)
	unsub := t.unsubscribe
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func alertMessage(n *note.ServiceNote) string {
	if n.Note != "" {
		return n.Note
	}
	return fmt.Sprintf("New attachment on request %s.", n.RequestID)
}
