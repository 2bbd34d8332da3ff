package note

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func mkNote(text string, at time.Time) ServiceNote {
	return ServiceNote{ID: uuid.New(), Note: text, CreatedAt: at}
}

func TestMergeIncoming_EchoOfOwnInsertIsDropped(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hello := mkNote("Hello", base)
	thread := []ServiceNote{mkNote("Welcome", base.Add(-time.Minute)), hello}

	// Push delivers the same note back after the optimistic insert.
	merged := MergeIncoming(thread, hello)

	assert.Len(t, merged, 2)
	count := 0
	for _, n := range merged {
		if n.Note == "Hello" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMergeIncoming_DedupeIsByIDNotContent(t *testing.T) {
	base := time.Now()
	thread := []ServiceNote{mkNote("Ok", base)}

	// Same text, different note.
	merged := MergeIncoming(thread, mkNote("Ok", base.Add(time.Second)))

	assert.Len(t, merged, 2)
}

func TestMergeIncoming_KeepsChronologicalOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	thread := []ServiceNote{
		mkNote("first", base),
		mkNote("third", base.Add(2*time.Second)),
	}

	merged := MergeIncoming(thread, mkNote("second", base.Add(time.Second)))

	assert.Equal(t, []string{"first", "second", "third"},
		[]string{merged[0].Note, merged[1].Note, merged[2].Note})
	for i := 1; i < len(merged); i++ {
		assert.False(t, merged[i].CreatedAt.Before(merged[i-1].CreatedAt))
	}
}

func TestMergeIncoming_EqualTimestampsKeepArrivalOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := mkNote("first", at)
	second := mkNote("second", at)

	merged := MergeIncoming([]ServiceNote{first}, second)

	assert.Equal(t, first.ID, merged[0].ID)
	assert.Equal(t, second.ID, merged[1].ID)
}

func TestMergeIncoming_EmptyThread(t *testing.T) {
	n := mkNote("only", time.Now())
	merged := MergeIncoming(nil, n)
	assert.Len(t, merged, 1)
	assert.Equal(t, n.ID, merged[0].ID)
}
