package domain

import (
	"sort"
	"time"
)

// Message is an immutable chat event. SentAt is assigned by the store
// at write time; a nil SentAt means the authoritative timestamp has not
// arrived yet (optimistic local echo).
type Message struct {
	ID       string
	ChatRoom ConversationID
	SenderID string
	Text     string
	Lang     string
	SentAt   *time.Time
	IsRead   bool

	// Seq is the store insertion order, used as a stable tiebreak
	// for equal timestamps.
	Seq uint64
}

// SortMessages orders messages ascending by timestamp. A pending
// timestamp sorts as "now" so an optimistic echo stays at the bottom
// until the authoritative time arrives and the list re-sorts.
// Ties keep insertion order.
func SortMessages(messages []Message, now time.Time) {
	sort.SliceStable(messages, func(i, j int) bool {
		ti, tj := messages[i].effectiveTime(now), messages[j].effectiveTime(now)
		if ti.Equal(tj) {
			return messages[i].Seq < messages[j].Seq
		}
		return ti.Before(tj)
	})
}

func (m Message) effectiveTime(now time.Time) time.Time {
	if m.SentAt == nil {
		return now
	}
	return *m.SentAt
}
