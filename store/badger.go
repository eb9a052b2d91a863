package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"mingle/errors"
)

const (
	docPrefix = "doc:"
	seqKey    = "meta:seq"
)

// envelope is the persisted form of a document.
type envelope struct {
	Seq    uint64         `json:"seq"`
	Fields map[string]any `json:"fields"`
}

// BadgerStore is the badger-backed reactive document store.
//
// Writes are serialized under one mutex and snapshot fanout happens
// while it is held, so every subscriber observes mutations in the same
// total order. Sinks therefore must not call back into the store.
type BadgerStore struct {
	db       *badger.DB
	log      *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
	seq      uint64
	registry *registry
	indexes  map[string]map[string]struct{}
}

type Option func(*BadgerStore)

// WithIndex declares a server-side ordering index for a collection
// field. Ordered subscriptions on undeclared fields fail with
// errors.ErrIndexRequired.
func WithIndex(collection, field string) Option {
	return func(s *BadgerStore) {
		if _, ok := s.indexes[collection]; !ok {
			s.indexes[collection] = make(map[string]struct{})
		}
		s.indexes[collection][field] = struct{}{}
	}
}

// WithClock overrides the server clock. Tests pin it to get
// deterministic server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BadgerStore) { s.now = now }
}

func NewBadgerStore(db *badger.DB, log *slog.Logger, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{
		db:       db,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		registry: newRegistry(),
		indexes:  make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.loadSeq(); err != nil {
		return nil, fmt.Errorf("loading store sequence: %w", err)
	}
	return s, nil
}

func (s *BadgerStore) loadSeq() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(seqKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s.seq)
		})
	})
}

// Add writes a new document under a generated id.
func (s *BadgerStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes or upserts a document. With merge, existing fields not
// present in the write are preserved and the insertion sequence stays
// the original one; a plain write replaces the document entirely.
func (s *BadgerStore) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.resolveSentinels(fields)
	key := docKey(collection, id)

	err := s.db.Update(func(txn *badger.Txn) error {
		env := envelope{Fields: resolved}

		existing, err := txn.Get(key)
		switch {
		case err == badger.ErrKeyNotFound:
			s.seq++
			env.Seq = s.seq
		case err != nil:
			return err
		default:
			var prev envelope
			if err := existing.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err != nil {
				return err
			}
			env.Seq = prev.Seq
			if merge {
				merged := make(map[string]any, len(prev.Fields)+len(resolved))
				for k, v := range prev.Fields {
					merged[k] = v
				}
				for k, v := range resolved {
					merged[k] = v
				}
				env.Fields = merged
			}
		}

		bytes, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		seqBytes, err := json.Marshal(s.seq)
		if err != nil {
			return err
		}
		return txn.Set([]byte(seqKey), seqBytes)
	})
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}

	s.fanout(collection)
	return nil
}

// Get is a point read.
func (s *BadgerStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	var doc Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(collection, id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var env envelope
			if err := json.Unmarshal(val, &env); err != nil {
				return err
			}
			doc = Document{ID: id, Seq: env.Seq, Fields: env.Fields}
			return nil
		})
	})
	return doc, err
}

// Subscribe registers a live query. The initial snapshot is delivered
// before Subscribe returns; every later write touching the collection
// re-delivers the full matching set. The returned Unsubscribe is
// idempotent and guarantees no delivery after it returns.
func (s *BadgerStore) Subscribe(ctx context.Context, q Query, sink SnapshotSink) (Unsubscribe, error) {
	if q.OrderBy != "" && !s.hasIndex(q.Collection, q.OrderBy) {
		return nil, fmt.Errorf("subscribe %s order by %s: %w", q.Collection, q.OrderBy, errors.ErrIndexRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{ctx: ctx, query: q, sink: sink}
	id := s.registry.add(sub)

	snap, err := s.runQuery(q)
	if err != nil {
		s.registry.remove(q.Collection, id)
		return nil, err
	}
	if err := sink.Consume(ctx, snap); err != nil {
		s.log.Warn("Initial snapshot rejected by sink", "collection", q.Collection, "error", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.registry.remove(q.Collection, id)
		})
	}, nil
}

func (s *BadgerStore) hasIndex(collection, field string) bool {
	fields, ok := s.indexes[collection]
	if !ok {
		return false
	}
	_, ok = fields[field]
	return ok
}

// fanout recomputes and pushes snapshots for every live subscription on
// the collection. Called with the store mutex held.
func (s *BadgerStore) fanout(collection string) {
	for _, sub := range s.registry.forCollection(collection) {
		snap, err := s.runQuery(sub.query)
		if err != nil {
			s.log.Error("Snapshot query failed", "collection", collection, "error", err)
			continue
		}
		if err := sub.sink.Consume(sub.ctx, snap); err != nil {
			s.log.Warn("Snapshot rejected by sink", "collection", collection, "error", err)
		}
	}
}

// runQuery scans the collection prefix and filters in memory. Without
// an explicit ordering the snapshot follows insertion order.
func (s *BadgerStore) runQuery(q Query) (Snapshot, error) {
	var docs []Document
	prefix := []byte(docPrefix + q.Collection + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var env envelope
				if err := json.Unmarshal(val, &env); err != nil {
					return err
				}
				doc := Document{ID: id, Seq: env.Seq, Fields: env.Fields}
				if matches(q, doc) {
					docs = append(docs, doc)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	sortDocs(q, docs)
	return Snapshot{Docs: docs}, nil
}

func matches(q Query, doc Document) bool {
	for field, want := range q.Equals {
		if !valuesEqual(doc.Fields[field], want) {
			return false
		}
	}
	for field, member := range q.ArrayContains {
		if !arrayContains(doc.Fields[field], member) {
			return false
		}
	}
	return true
}

func sortDocs(q Query, docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy == "" {
			return docs[i].Seq < docs[j].Seq
		}
		less, equal := compareField(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
		if equal {
			return docs[i].Seq < docs[j].Seq
		}
		if q.Descending {
			return !less
		}
		return less
	})
}

// compareField orders two field values: numerically when both are
// numbers, lexicographically when both are strings. A missing value
// sorts first.
func compareField(a, b any) (less, equal bool) {
	na, aNum := numeric(a)
	nb, bNum := numeric(b)
	if aNum && bNum {
		return na < nb, na == nb
	}
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		return sa < sb, sa == sb
	}
	if a == nil || b == nil {
		return a == nil && b != nil, a == nil && b == nil
	}
	return false, true
}

func valuesEqual(have, want any) bool {
	if nh, ok := numeric(have); ok {
		if nw, okWant := numeric(want); okWant {
			return nh == nw
		}
		return false
	}
	return reflect.DeepEqual(have, want)
}

func arrayContains(value any, member string) bool {
	switch items := value.(type) {
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok && s == member {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if item == member {
				return true
			}
		}
	}
	return false
}

// resolveSentinels replaces ServerTimestamp markers with the store
// clock and converts concrete times to the persisted representation.
// The input map is never mutated.
func (s *BadgerStore) resolveSentinels(fields map[string]any) map[string]any {
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		switch value := v.(type) {
		case serverTimestamp:
			resolved[k] = EncodeTime(s.now())
		case time.Time:
			resolved[k] = EncodeTime(value)
		case map[string]any:
			resolved[k] = s.resolveSentinels(value)
		default:
			resolved[k] = v
		}
	}
	return resolved
}

func docKey(collection, id string) []byte {
	return []byte(docPrefix + collection + ":" + id)
}
