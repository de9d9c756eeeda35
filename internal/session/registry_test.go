package session

import (
	"testing"
	"time"
)

func TestRegistryPutReplace(t *testing.T) {
	r := NewRegistry()

	r.Put(Subscription{Topic: "a/b", QoS: 0, ID: "first"})
	r.Put(Subscription{Topic: "a/b", QoS: 1, ID: "second"})

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	sub, ok := r.Get("a/b")
	if !ok {
		t.Fatal("Get() = false, want entry")
	}
	if sub.QoS != 1 || sub.ID != "second" {
		t.Errorf("entry = %+v, want the replacement", sub)
	}
}

func TestRegistryExactMatch(t *testing.T) {
	r := NewRegistry()
	r.Put(Subscription{Topic: "a/b"})

	if _, ok := r.Get("A/B"); ok {
		t.Error("Get() matched case-insensitively, want case-sensitive")
	}
	if _, ok := r.Get("a/+"); ok {
		t.Error("Get() expanded wildcards, want exact match only")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Put(Subscription{Topic: "a/b"})

	r.Remove("a/b")
	if r.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", r.Len())
	}

	// Removing an absent topic is a no-op.
	r.Remove("never/there")
}

func TestRegistrySnapshotSorted(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.Put(Subscription{Topic: "z", SubscribedAt: now})
	r.Put(Subscription{Topic: "a", SubscribedAt: now})
	r.Put(Subscription{Topic: "m", SubscribedAt: now})

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	for i, want := range []string{"a", "m", "z"} {
		if snap[i].Topic != want {
			t.Errorf("Snapshot()[%d].Topic = %q, want %q", i, snap[i].Topic, want)
		}
	}
}
