package note

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/shared"
)

func watchedThread(t *testing.T, ts *noteServiceTestSuite, requestID uuid.UUID, initial []ServiceNote) *ThreadView {
	t.Helper()
	ts.mockRepo.On("FindByRequestID", mock.Anything, requestID).Return(initial, nil)
	ts.mockAuthors.On("ResolveAuthors", mock.Anything, mock.Anything).
		Return(map[uuid.UUID]shared.Author{}, nil).Maybe()

	view, err := ts.service.Watch(context.Background(), requestID)
	require.NoError(t, err)
	t.Cleanup(view.Dispose)
	return view
}

func awaitSnapshot(t *testing.T, snapshots <-chan []ServiceNote) []ServiceNote {
	t.Helper()
	select {
	case notes := <-snapshots:
		return notes
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a thread snapshot")
		return nil
	}
}

func TestWatch_LoadsHistoryThenMergesPushedNote(t *testing.T) {
	ts := setupNoteServiceTestSuite(t)
	requestID := uuid.New()
	first := ServiceNote{ID: uuid.New(), RequestID: requestID, AuthorID: uuid.New(), Note: "Device received.", CreatedAt: time.Now().Add(-time.Hour)}

	view := watchedThread(t, ts, requestID, []ServiceNote{first})
	require.Len(t, view.Notes(), 1)

	snapshots := make(chan []ServiceNote, 4)
	unsubscribe := view.OnChange(func(notes []ServiceNote) { snapshots <- notes })
	defer unsubscribe()

	pushed := ServiceNote{ID: uuid.New(), RequestID: requestID, AuthorID: uuid.New(), Note: "Diagnosis started.", CreatedAt: time.Now()}
	ts.bus.Publish(gateway.Event{Table: ServiceNote{}.TableName(), Type: gateway.EventInsert, RecordID: pushed.ID, Payload: &pushed})

	notes := awaitSnapshot(t, snapshots)
	require.Len(t, notes, 2)
	assert.Equal(t, "Device received.", notes[0].Note)
	assert.Equal(t, "Diagnosis started.", notes[1].Note)
}

func TestWatch_EchoOfOwnNoteDoesNotDuplicate(t *testing.T) {
	ts := setupNoteServiceTestSuite(t)
	requestID := uuid.New()
	own := ServiceNote{ID: uuid.New(), RequestID: requestID, AuthorID: uuid.New(), Note: "Hello", CreatedAt: time.Now()}

	view := watchedThread(t, ts, requestID, []ServiceNote{own})

	snapshots := make(chan []ServiceNote, 4)
	unsubscribe := view.OnChange(func(notes []ServiceNote) { snapshots <- notes })
	defer unsubscribe()

	echo := own
	ts.bus.Publish(gateway.Event{Table: ServiceNote{}.TableName(), Type: gateway.EventInsert, RecordID: echo.ID, Payload: &echo})

	notes := awaitSnapshot(t, snapshots)
	assert.Len(t, notes, 1)
	assert.Len(t, view.Notes(), 1)
}

func TestWatch_IgnoresNotesForOtherThreads(t *testing.T) {
	ts := setupNoteServiceTestSuite(t)
	requestID := uuid.New()

	view := watchedThread(t, ts, requestID, []ServiceNote{})

	foreign := ServiceNote{ID: uuid.New(), RequestID: uuid.New(), AuthorID: uuid.New(), Note: "Wrong thread", CreatedAt: time.Now()}
	ts.bus.Publish(gateway.Event{Table: ServiceNote{}.TableName(), Type: gateway.EventInsert, RecordID: foreign.ID, Payload: &foreign})

	// Give the bus delivery goroutine a chance to run before asserting.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, view.Notes())
}

func TestWatch_DisposeStopsMerging(t *testing.T) {
	ts := setupNoteServiceTestSuite(t)
	requestID := uuid.New()

	view := watchedThread(t, ts, requestID, []ServiceNote{})
	view.Dispose()

	late := ServiceNote{ID: uuid.New(), RequestID: requestID, AuthorID: uuid.New(), Note: "Too late", CreatedAt: time.Now()}
	ts.bus.Publish(gateway.Event{Table: ServiceNote{}.TableName(), Type: gateway.EventInsert, RecordID: late.ID, Payload: &late})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, view.Notes())
}

func TestWatch_LoadFailurePropagates(t *testing.T) {
	ts := setupNoteServiceTestSuite(t)
	requestID := uuid.New()
	ts.mockRepo.On("FindByRequestID", mock.Anything, requestID).Return(nil, errors.New("timeout"))

	view, err := ts.service.Watch(context.Background(), requestID)

	assert.Nil(t, view)
	assert.True(t, common.IsCode(err, common.ErrFetch.Code))
}
