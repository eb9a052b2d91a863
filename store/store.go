//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// Package store exposes the reactive document store the app is built on:
// generated-id writes, merge upserts, point reads and live queries that
// re-deliver the full matching set on every change.
package store

import (
	"context"
	"time"
)

// serverTimestamp is the sentinel replaced by the store clock at write
// time. Clients never assign message or match times themselves.
type serverTimestamp struct{}

var ServerTimestamp = serverTimestamp{}

// Document is one stored record. Seq is the insertion order across the
// whole store and serves as the stable tiebreak for equal timestamps.
type Document struct {
	ID     string
	Seq    uint64
	Fields map[string]any
}

// Snapshot is the complete current result set of a subscribed query.
type Snapshot struct {
	Docs []Document
}

// Query supports equality filters, one array-membership filter and an
// optional ordering. Ordering needs a declared index; without one the
// subscription fails with errors.ErrIndexRequired and the caller falls
// back to an unordered query with client-side sorting.
type Query struct {
	Collection    string
	Equals        map[string]any
	ArrayContains map[string]string
	OrderBy       string
	Descending    bool
}

// Unsubscribe tears down a live query. Safe to call more than once;
// no snapshot is delivered after the first call returns.
type Unsubscribe func()

// SnapshotSink consumes pushed snapshots. Sinks must not call back
// into the store; delivery happens under the store lock.
type SnapshotSink interface {
	Consume(ctx context.Context, snap Snapshot) error
}

// SinkFunc adapts a function to SnapshotSink.
type SinkFunc func(ctx context.Context, snap Snapshot) error

func (f SinkFunc) Consume(ctx context.Context, snap Snapshot) error { return f(ctx, snap) }

type DocumentStore interface {
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Subscribe(ctx context.Context, q Query, sink SnapshotSink) (Unsubscribe, error)
}

// Timestamps are persisted as integer microseconds since epoch, which
// survive the JSON round trip without precision loss (nanoseconds do
// not fit a float64 mantissa).

// TimeField reads a timestamp field back as UTC time. The second
// return is false when the field is absent or not a timestamp.
func TimeField(fields map[string]any, key string) (time.Time, bool) {
	micros, ok := numeric(fields[key])
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMicro(int64(micros)).UTC(), true
}

// EncodeTime converts a concrete time into the persisted representation.
func EncodeTime(t time.Time) int64 {
	return t.UnixMicro()
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
