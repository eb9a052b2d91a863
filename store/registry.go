package store

import (
	"context"
	"sync"
)

type subscription struct {
	id    uint64
	ctx   context.Context
	query Query
	sink  SnapshotSink
}

// registry tracks live subscriptions per collection.
// It performs a two-step lookup on fanout: collections resolve to
// subscription ids, ids resolve to the actual sinks, so a teardown in
// one place is enough regardless of how many queries a caller holds.
type registry struct {
	mu           sync.RWMutex
	next         uint64
	byCollection map[string]map[uint64]*subscription
}

func newRegistry() *registry {
	return &registry{byCollection: make(map[string]map[uint64]*subscription)}
}

func (r *registry) add(sub *subscription) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	sub.id = r.next
	if _, ok := r.byCollection[sub.query.Collection]; !ok {
		r.byCollection[sub.query.Collection] = make(map[uint64]*subscription)
	}
	r.byCollection[sub.query.Collection][sub.id] = sub
	return sub.id
}

// remove drops a subscription and leaves no empty sets behind.
func (r *registry) remove(collection string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.byCollection[collection]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.byCollection, collection)
		}
	}
}

// forCollection returns the active subscriptions touching a collection.
// Cancelled contexts are filtered out here so a dead subscriber never
// receives another snapshot even before its Unsubscribe runs.
func (r *registry) forCollection(collection string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*subscription
	for _, sub := range r.byCollection[collection] {
		if sub.ctx.Err() != nil {
			continue
		}
		active = append(active, sub)
	}
	return active
}
