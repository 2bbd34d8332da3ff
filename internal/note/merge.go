package note

import "sort"

// MergeIncoming reconciles a note delivered by a push event with an already
// loaded thread. Delivery is idempotent against the sender's own optimistic
// insert: a note whose id is already present is dropped, so an echoed push
// never duplicates an entry. De-duplication is by id, never by content;
// two distinct notes can carry identical text.
//
// The incoming note is placed to keep created_at ascending order. Among
// notes sharing a timestamp, arrival order is the tiebreak.
func MergeIncoming(thread []ServiceNote, incoming ServiceNote) []ServiceNote {
	for _, n := range thread {
		if n.ID == incoming.ID {
			return thread
		}
	}

	// First position strictly after the incoming timestamp. Equal
	// timestamps sort the newcomer behind existing entries.
	idx := sort.Search(len(thread), func(i int) bool {
		return thread[i].CreatedAt.After(incoming.CreatedAt)
	})

	merged := make([]ServiceNote, 0, len(thread)+1)
	merged = append(merged, thread[:idx]...)
	merged = append(merged, incoming)
	merged = append(merged, thread[idx:]...)
	return merged
}
