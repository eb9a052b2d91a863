package domain

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func Test_SortMessages_By_Authoritative_Timestamp(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	t1, t2, t3 := now.Add(-3*time.Minute), now.Add(-2*time.Minute), now.Add(-1*time.Minute)

	// Arrival order does not matter, only the store timestamps do
	messages := []Message{
		{ID: "c", SentAt: &t3, Seq: 7},
		{ID: "a", SentAt: &t1, Seq: 9},
		{ID: "b", SentAt: &t2, Seq: 8},
	}
	SortMessages(messages, now)
	req.Equal([]string{"a", "b", "c"}, ids(messages))
}

func Test_SortMessages_Pending_Timestamp_Sorts_As_Now(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	earlier := now.Add(-time.Minute)

	messages := []Message{
		{ID: "echo", SentAt: nil, Seq: 2},
		{ID: "acked", SentAt: &earlier, Seq: 1},
	}
	SortMessages(messages, now)
	req.Equal([]string{"acked", "echo"}, ids(messages))
}

func Test_SortMessages_Equal_Timestamps_Keep_Insertion_Order(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	at := now.Add(-time.Minute)

	messages := []Message{
		{ID: "second", SentAt: &at, Seq: 2},
		{ID: "first", SentAt: &at, Seq: 1},
	}
	SortMessages(messages, now)
	req.Equal([]string{"first", "second"}, ids(messages))
}

func ids(messages []Message) []string {
	return lo.Map(messages, func(m Message, _ int) string { return m.ID })
}
