package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"mingle/errors"
)

func openTestStore(t *testing.T, opts ...Option) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewBadgerStore(db, slog.Default(), opts...)
	require.NoError(t, err)
	return s
}

func Test_Add_Assigns_Server_Timestamp(t *testing.T) {
	req := require.New(t)
	serverNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := openTestStore(t, WithClock(func() time.Time { return serverNow }))
	ctx := context.Background()

	id, err := s.Add(ctx, "messages", map[string]any{
		"text":      "hi",
		"timestamp": ServerTimestamp,
	})
	req.NoError(err)
	req.NotEmpty(id)

	doc, err := s.Get(ctx, "messages", id)
	req.NoError(err)
	at, ok := TimeField(doc.Fields, "timestamp")
	req.True(ok)
	req.Equal(serverNow, at)
}

func Test_Get_Unknown_Document(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "matches", "nope")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Merge_Preserves_Untouched_Fields_And_Seq(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	req.NoError(s.Set(ctx, "matches", "u1_u2", map[string]any{
		"status":      "active",
		"unreadCount": map[string]any{"u1": 0, "u2": 0},
	}, true))

	before, err := s.Get(ctx, "matches", "u1_u2")
	req.NoError(err)

	req.NoError(s.Set(ctx, "matches", "u1_u2", map[string]any{
		"lastMessage": "hi",
	}, true))

	after, err := s.Get(ctx, "matches", "u1_u2")
	req.NoError(err)
	req.Equal(before.Seq, after.Seq)
	req.Equal("active", after.Fields["status"])
	req.Equal("hi", after.Fields["lastMessage"])
	req.Contains(after.Fields, "unreadCount")
}

func Test_Subscribe_Delivers_Initial_And_Updated_Snapshots(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	var snapshots []Snapshot
	sink := SinkFunc(func(_ context.Context, snap Snapshot) error {
		snapshots = append(snapshots, snap)
		return nil
	})

	unsubscribe, err := s.Subscribe(ctx, Query{
		Collection: "messages",
		Equals:     map[string]any{"chatRoomId": "u1_u2"},
	}, sink)
	req.NoError(err)
	defer unsubscribe()

	// Initial snapshot is empty and delivered synchronously
	req.Len(snapshots, 1)
	req.Empty(snapshots[0].Docs)

	_, err = s.Add(ctx, "messages", map[string]any{"chatRoomId": "u1_u2", "text": "hi"})
	req.NoError(err)
	// A write to another conversation still triggers a snapshot,
	// but the filtered result set must not include it
	_, err = s.Add(ctx, "messages", map[string]any{"chatRoomId": "u3_u4", "text": "other"})
	req.NoError(err)

	req.Len(snapshots, 3)
	last := snapshots[len(snapshots)-1]
	req.Len(last.Docs, 1)
	req.Equal("hi", last.Docs[0].Fields["text"])
}

func Test_Unsubscribe_Stops_Deliveries_And_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	deliveries := 0
	sink := SinkFunc(func(_ context.Context, _ Snapshot) error {
		deliveries++
		return nil
	})

	unsubscribe, err := s.Subscribe(ctx, Query{Collection: "messages"}, sink)
	req.NoError(err)
	req.Equal(1, deliveries)

	unsubscribe()
	unsubscribe() // second call must be a no-op

	_, err = s.Add(ctx, "messages", map[string]any{"text": "after"})
	req.NoError(err)
	req.Equal(1, deliveries)
}

func Test_Ordered_Subscription_Requires_Index(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)

	_, err := s.Subscribe(context.Background(), Query{
		Collection: "messages",
		OrderBy:    "timestamp",
	}, SinkFunc(func(context.Context, Snapshot) error { return nil }))
	req.ErrorIs(err, errors.ErrIndexRequired)
}

func Test_Ordered_Subscription_Sorts_By_Field_With_Seq_Tiebreak(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t, WithIndex("messages", "timestamp"))
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Written out of chronological order, and two share a timestamp
	writes := []map[string]any{
		{"text": "third", "timestamp": base.Add(2 * time.Minute)},
		{"text": "first", "timestamp": base},
		{"text": "second", "timestamp": base.Add(2 * time.Minute)},
	}
	for _, fields := range writes {
		_, err := s.Add(ctx, "messages", fields)
		req.NoError(err)
	}

	var last Snapshot
	unsubscribe, err := s.Subscribe(ctx, Query{
		Collection: "messages",
		OrderBy:    "timestamp",
	}, SinkFunc(func(_ context.Context, snap Snapshot) error {
		last = snap
		return nil
	}))
	req.NoError(err)
	defer unsubscribe()

	texts := lo.Map(last.Docs, func(d Document, _ int) string {
		return d.Fields["text"].(string)
	})
	// "third" and "second" share a timestamp: insertion order decides
	req.Equal([]string{"first", "third", "second"}, texts)
}

func Test_ArrayContains_Filter(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	req.NoError(s.Set(ctx, "matches", "u1_u2", map[string]any{
		"participants": []string{"u1", "u2"},
	}, false))
	req.NoError(s.Set(ctx, "matches", "u3_u4", map[string]any{
		"participants": []string{"u3", "u4"},
	}, false))

	var last Snapshot
	unsubscribe, err := s.Subscribe(ctx, Query{
		Collection:    "matches",
		ArrayContains: map[string]string{"participants": "u1"},
	}, SinkFunc(func(_ context.Context, snap Snapshot) error {
		last = snap
		return nil
	}))
	req.NoError(err)
	defer unsubscribe()

	req.Len(last.Docs, 1)
	req.Equal("u1_u2", last.Docs[0].ID)
}

func Test_Sequence_Survives_Reopen(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	s, err := NewBadgerStore(db, slog.Default())
	req.NoError(err)
	_, err = s.Add(ctx, "messages", map[string]any{"text": "one"})
	req.NoError(err)
	req.NoError(db.Close())

	db, err = badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	s, err = NewBadgerStore(db, slog.Default())
	req.NoError(err)
	id, err := s.Add(ctx, "messages", map[string]any{"text": "two"})
	req.NoError(err)

	doc, err := s.Get(ctx, "messages", id)
	req.NoError(err)
	req.Equal(uint64(2), doc.Seq)
}
