package unread

import (
	"testing"
	"time"

	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/note"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestTracker(t *testing.T, actorID uuid.UUID, volume float64) (*Tracker, *gateway.Bus) {
	t.Helper()
	bus := gateway.NewBus(zap.NewNop())
	tracker := NewTracker(actorID, volume, bus, zap.NewNop())
	t.Cleanup(tracker.Dispose)
	return tracker, bus
}

func foreignNote(requestID uuid.UUID) *note.ServiceNote {
	return &note.ServiceNote{
		ID:        uuid.New(),
		RequestID: requestID,
		AuthorID:  uuid.New(),
		Note:      "A note from the other side",
		CreatedAt: time.Now(),
	}
}

func TestTracker_ForeignNoteOnOtherRequestMarksUnreadAndAlertsOnce(t *testing.T) {
	actorID := uuid.New()
	tracker, _ := newTestTracker(t, actorID, 0.4)
	requestA := uuid.New()
	requestB := uuid.New()

	tracker.OpenThread(requestA)

	alerts := 0
	tracker.OnAlert(func(a Alert) {
		alerts++
		assert.Equal(t, requestB, a.RequestID)
		assert.Equal(t, 0.4, a.Volume)
	})

	// A note for request B lands while the actor views request A.
	tracker.OnNoteInserted(foreignNote(requestB))

	snapshot := tracker.Snapshot()
	assert.True(t, snapshot[requestB])
	assert.False(t, snapshot[requestA]) // thread A is unaffected
	assert.Equal(t, 1, alerts)
}

func TestTracker_OwnNoteIsIgnored(t *testing.T) {
	actorID := uuid.New()
	tracker, _ := newTestTracker(t, actorID, 0.4)
	requestID := uuid.New()

	alerted := false
	tracker.OnAlert(func(Alert) { alerted = true })

	own := foreignNote(requestID)
	own.AuthorID = actorID
	tracker.OnNoteInserted(own)

	assert.False(t, tracker.Snapshot()[requestID])
	assert.False(t, alerted)
}

func TestTracker_NoteForOpenThreadIsNotMarkedUnread(t *testing.T) {
	tracker, _ := newTestTracker(t, uuid.New(), 0.4)
	requestID := uuid.New()
	tracker.OpenThread(requestID)

	alerted := false
	tracker.OnAlert(func(Alert) { alerted = true })

	tracker.OnNoteInserted(foreignNote(requestID))

	assert.False(t, tracker.Snapshot()[requestID])
	assert.False(t, alerted)
}

func TestTracker_AcknowledgeClearsAndStaysClearedUntilNewForeignNote(t *testing.T) {
	tracker, _ := newTestTracker(t, uuid.New(), 0.4)
	requestID := uuid.New()

	tracker.OnNoteInserted(foreignNote(requestID))
	assert.True(t, tracker.Snapshot()[requestID])

	tracker.OpenThread(requestID)
	assert.False(t, tracker.Snapshot()[requestID])

	// Still false after closing the thread with no new activity.
	tracker.CloseThread()
	assert.False(t, tracker.Snapshot()[requestID])

	// A new foreign note flips it again.
	tracker.OnNoteInserted(foreignNote(requestID))
	assert.True(t, tracker.Snapshot()[requestID])
}

func TestTracker_MutedVolumeStillAlertsWithZero(t *testing.T) {
	tracker, _ := newTestTracker(t, uuid.New(), 0)

	var got *Alert
	tracker.OnAlert(func(a Alert) { got = &a })

	tracker.OnNoteInserted(foreignNote(uuid.New()))

	// The toast still shows; only the sound is muted.
	assert.NotNil(t, got)
	assert.Equal(t, 0.0, got.Volume)
}

func TestTracker_RebuildDerivesFromLatestAuthors(t *testing.T) {
	actorID := uuid.New()
	tracker, _ := newTestTracker(t, actorID, 0.4)
	mine := uuid.New()
	theirs := uuid.New()
	silent := uuid.New()

	latest := map[uuid.UUID]note.ServiceNote{
		mine:   {ID: uuid.New(), RequestID: mine, AuthorID: actorID},
		theirs: {ID: uuid.New(), RequestID: theirs, AuthorID: uuid.New()},
	}
	tracker.Rebuild([]uuid.UUID{mine, theirs, silent}, latest)

	snapshot := tracker.Snapshot()
	assert.False(t, snapshot[mine])
	assert.True(t, snapshot[theirs])
	assert.False(t, snapshot[silent]) // no notes at all
}

func TestTracker_ReceivesPushedInsertsFromBus(t *testing.T) {
	actorID := uuid.New()
	tracker, bus := newTestTracker(t, actorID, 0.4)
	requestID := uuid.New()

	done := make(chan Alert, 1)
	tracker.OnAlert(func(a Alert) { done <- a })

	n := foreignNote(requestID)
	bus.Publish(gateway.Event{
		Table:    note.ServiceNote{}.TableName(),
		Type:     gateway.EventInsert,
		RecordID: n.ID,
		Payload:  n,
	})

	select {
	case a := <-done:
		assert.Equal(t, requestID, a.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an alert from the pushed note insert")
	}
	assert.True(t, tracker.Snapshot()[requestID])
}

func TestTracker_DisposedTrackerIgnoresEverything(t *testing.T) {
	tracker, _ := newTestTracker(t, uuid.New(), 0.4)
	requestID := uuid.New()

	alerted := false
	tracker.OnAlert(func(Alert) { alerted = true })
	tracker.Dispose()

	tracker.OnNoteInserted(foreignNote(requestID))

	assert.False(t, tracker.Snapshot()[requestID])
	assert.False(t, alerted)
}
