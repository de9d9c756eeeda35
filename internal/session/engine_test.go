package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wrenhall/iot-explorer/internal/transport"
)

func newTestEngine(conn Conn) (*Engine, *bytes.Buffer) {
	out := &bytes.Buffer{}
	e := New(conn, Options{
		ClientID:  "test-client",
		TestTopic: "explorer/test",
		Out:       out,
	})
	return e, out
}

func TestSubscribe(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	sub, err := e.Subscribe("orders/new", 1)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if sub.Topic != "orders/new" || sub.QoS != 1 {
		t.Errorf("Subscribe() = %+v", sub)
	}
	if sub.ID == "" {
		t.Error("subscription has no correlation id")
	}
	if sub.SubscribedAt.IsZero() {
		t.Error("subscription has no timestamp")
	}
	if e.reg.Len() != 1 {
		t.Errorf("registry len = %d, want 1", e.reg.Len())
	}
}

func TestSubscribeReplacesEntry(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	if _, err := e.Subscribe("orders/new", 0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := e.Subscribe("orders/new", 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if e.reg.Len() != 1 {
		t.Fatalf("registry len = %d, want exactly 1 entry", e.reg.Len())
	}
	sub, ok := e.reg.Get("orders/new")
	if !ok {
		t.Fatal("registry entry missing")
	}
	if sub.QoS != 1 {
		t.Errorf("QoS = %d, want the most recent level 1", sub.QoS)
	}
}

func TestSubscribePreconditions(t *testing.T) {
	conn := newStubConn(false)
	e, _ := newTestEngine(conn)

	if _, err := e.Subscribe("", 0); !errors.Is(err, ErrEmptyTopic) {
		t.Errorf("Subscribe(\"\") error = %v, want ErrEmptyTopic", err)
	}
	if _, err := e.Subscribe("a/b", 0); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}

	if subs, _, _ := conn.calls(); subs != 0 {
		t.Errorf("subscribe calls = %d, want 0 (no network call on precondition failure)", subs)
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry len = %d, want 0", e.reg.Len())
	}
}

func TestSubscribeFailureNotRecorded(t *testing.T) {
	conn := newStubConn(true)
	conn.failSubscribe = errors.New("broker refused")
	e, _ := newTestEngine(conn)

	if _, err := e.Subscribe("a/b", 0); err == nil {
		t.Fatal("Subscribe() expected error")
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry len = %d after failed subscribe, want 0", e.reg.Len())
	}
}

func TestPublishBothLevels(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	for _, qos := range []byte{0, 1} {
		res, err := e.Publish("temp", "72", qos)
		if err != nil {
			t.Fatalf("Publish(qos %d) error = %v", qos, err)
		}
		if res.Size != 2 {
			t.Errorf("Publish(qos %d) size = %d, want 2", qos, res.Size)
		}
	}

	if len(conn.published) != 2 {
		t.Fatalf("published = %d messages, want 2", len(conn.published))
	}
	if conn.published[0].qos != 0 || conn.published[1].qos != 1 {
		t.Errorf("published QoS = %d, %d; want 0, 1", conn.published[0].qos, conn.published[1].qos)
	}
}

func TestPublishDisconnectedNoCall(t *testing.T) {
	conn := newStubConn(false)
	e, _ := newTestEngine(conn)

	_, err := e.Publish("temp", "72", 0)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish() error = %v, want ErrNotConnected", err)
	}

	if _, pubs, _ := conn.calls(); pubs != 0 {
		t.Errorf("publish calls = %d, want 0 while disconnected", pubs)
	}
	received, sent := e.hist.Counts()
	if received != 0 || sent != 0 {
		t.Errorf("counters = (%d, %d), want untouched", received, sent)
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry len = %d, want untouched", e.reg.Len())
	}
}

func TestPublishSerializesStructured(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	payload := map[string]any{"price": 9, "available": true}
	if _, err := e.Publish("items", payload, 0); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(conn.published[0].payload, &decoded); err != nil {
		t.Fatalf("published payload is not JSON: %v", err)
	}
	if decoded["price"] != float64(9) || decoded["available"] != true {
		t.Errorf("decoded payload = %v", decoded)
	}
}

func TestUnsubscribe(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	if _, err := e.Subscribe("a/b", 0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := e.Unsubscribe("a/b"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry len = %d after unsubscribe, want 0", e.reg.Len())
	}
}

func TestUnsubscribeUnknownTopicNoCall(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	err := e.Unsubscribe("never/subscribed")
	if !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("Unsubscribe() error = %v, want ErrNotSubscribed", err)
	}
	if _, _, unsubs := conn.calls(); unsubs != 0 {
		t.Errorf("unsubscribe calls = %d, want 0", unsubs)
	}
}

func TestInboundDelivery(t *testing.T) {
	conn := newStubConn(true)
	e, out := newTestEngine(conn)

	if _, err := e.Subscribe("orders/new", 0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if !conn.deliver(transport.Message{Topic: "orders/new", Payload: []byte(`{"id":42}`), QoS: 0}) {
		t.Fatal("no handler registered for orders/new")
	}

	received, _ := e.hist.Counts()
	if received != 1 {
		t.Errorf("received counter = %d, want 1", received)
	}
	if e.hist.Len() != 1 {
		t.Errorf("history len = %d, want 1", e.hist.Len())
	}

	out.Reset()
	if _, err := e.execute("messages"); err != nil {
		t.Fatalf("execute(messages) error = %v", err)
	}
	listing := out.String()
	if !strings.Contains(listing, "orders/new") {
		t.Errorf("messages output missing topic:\n%s", listing)
	}
	if got := strings.Count(listing, "orders/new"); got != 1 {
		t.Errorf("messages output lists topic %d times, want 1", got)
	}
}

func TestInterruptResumeSignals(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	if _, err := e.Subscribe("a/b", 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	subsBefore, _, _ := conn.calls()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.consumeEvents(ctx)

	// Interrupted: connected flips false, registry untouched.
	conn.setConnected(false)
	conn.events <- transport.Event{Kind: transport.EventInterrupted, Err: errors.New("reset")}

	// Resumed with retained broker state: registry untouched, no
	// re-subscribe traffic.
	conn.setConnected(true)
	conn.events <- transport.Event{Kind: transport.EventResumed, SessionPresent: true}

	deadline := time.Now().Add(2 * time.Second)
	for len(conn.events) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out draining events")
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if subs, _, _ := conn.calls(); subs != subsBefore {
		t.Errorf("subscribe calls = %d, want unchanged %d (no re-subscribe when SessionPresent)", subs, subsBefore)
	}
	if e.reg.Len() != 1 {
		t.Errorf("registry len = %d, want unchanged 1", e.reg.Len())
	}
}

func TestResumeRestoresSubscriptions(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	if _, err := e.Subscribe("a/b", 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := e.Subscribe("c/d", 0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	subsBefore, _, _ := conn.calls()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.consumeEvents(ctx)

	conn.events <- transport.Event{Kind: transport.EventResumed, SessionPresent: false}

	deadline := time.After(2 * time.Second)
	for {
		subs, _, _ := conn.calls()
		if subs == subsBefore+2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("re-subscribe calls = %d, want %d", subs, subsBefore+2)
		case <-time.After(10 * time.Millisecond):
		}
	}

	if e.reg.Len() != 2 {
		t.Errorf("registry len = %d, want 2 after restoration", e.reg.Len())
	}
}

func TestCloseDisconnectsOnce(t *testing.T) {
	conn := newStubConn(true)
	e, _ := newTestEngine(conn)

	e.Close()
	e.Close()

	if conn.disconnects != 1 {
		t.Errorf("disconnects = %d, want exactly 1", conn.disconnects)
	}
}
