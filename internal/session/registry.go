package session

import (
	"sort"
	"sync"
	"time"
)

// Subscription is the registry entry for one topic filter.
type Subscription struct {
	// Topic is the filter as subscribed, matched case-sensitively and
	// exactly; no client-side wildcard expansion.
	Topic string

	// QoS is the requested delivery guarantee level (0 or 1).
	QoS byte

	// GrantedQoS is the level the broker acknowledged.
	GrantedQoS byte

	// ID is the correlation handle assigned when the subscribe was
	// acknowledged.
	ID string

	// SubscribedAt is when the acknowledgement arrived.
	SubscribedAt time.Time
}

// Registry maps topic filters to subscription metadata.
//
// Subscribe and unsubscribe run on the foreground command loop, but the
// resume path restores subscriptions from a background goroutine, so the
// map carries its own lock.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]Subscription)}
}

// Put inserts or replaces the entry for sub.Topic. Re-subscribing a known
// topic with a different level replaces the prior entry: last write wins.
func (r *Registry) Put(sub Subscription) {
	r.mu.Lock()
	r.subs[sub.Topic] = sub
	r.mu.Unlock()
}

// Get looks up a topic by exact, case-sensitive match.
func (r *Registry) Get(topic string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[topic]
	return sub, ok
}

// Remove deletes the entry for topic, if present.
func (r *Registry) Remove(topic string) {
	r.mu.Lock()
	delete(r.subs, topic)
	r.mu.Unlock()
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Snapshot returns all entries ordered by topic.
func (r *Registry) Snapshot() []Subscription {
	r.mu.RLock()
	subs := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].Topic < subs[j].Topic })
	return subs
}
