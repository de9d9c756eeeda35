package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wrenhall/iot-explorer/internal/infrastructure/logging"
	"github.com/wrenhall/iot-explorer/internal/transport"
)

// Conn is the engine's view of the transport. *transport.Connector
// satisfies it; tests substitute a stub.
type Conn interface {
	Subscribe(topic string, qos byte, handler transport.MessageHandler) (byte, error)
	Unsubscribe(topic string) error
	Publish(topic string, qos byte, payload []byte) (uint16, error)
	Disconnect()
	IsConnected() bool
	Events() <-chan transport.Event
	NegotiatedVersion() transport.Version
	Describe() string
}

// Options configures a session engine.
type Options struct {
	ClientID    string
	HistorySize int

	// TestTopic receives the canned diagnostic payload of the test
	// command.
	TestTopic string

	// Out receives the interactive display. Defaults to os.Stdout.
	Out io.Writer

	Logger *logging.Logger
}

// PublishResult reports a completed publish operation.
type PublishResult struct {
	PacketID uint16
	Size     int
	At       time.Time
}

// Engine owns the connection, the subscription registry and the message
// history, and drives the interactive command loop.
//
// The loop runs on one foreground goroutine; the dispatcher and lifecycle
// events arrive on the transport's background goroutines. The history is
// the only state both sides mutate, guarded inside History.
type Engine struct {
	conn Conn
	reg  *Registry
	hist *History
	disp *Dispatcher
	log  *logging.Logger
	out  io.Writer

	outMu     sync.Mutex
	clientID  string
	testTopic string

	disconnectOnce sync.Once
}

// New assembles an engine around an established connection.
func New(conn Conn, opts Options) *Engine {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.HistorySize < 1 {
		opts.HistorySize = 100
	}
	if opts.TestTopic == "" {
		opts.TestTopic = "explorer/test"
	}

	e := &Engine{
		conn:      conn,
		reg:       NewRegistry(),
		hist:      NewHistory(opts.HistorySize),
		log:       opts.Logger,
		out:       opts.Out,
		clientID:  opts.ClientID,
		testTopic: opts.TestTopic,
	}
	e.disp = &Dispatcher{
		history:  e.hist,
		out:      e.out,
		outMu:    &e.outMu,
		log:      opts.Logger,
		describe: conn.Describe,
	}
	return e
}

// Subscribe issues a subscribe at the given level and records the
// acknowledged subscription. Re-subscribing a known topic replaces its
// entry. Preconditions are rejected before any network call.
func (e *Engine) Subscribe(topic string, qos byte) (Subscription, error) {
	if topic == "" {
		return Subscription{}, ErrEmptyTopic
	}
	if !e.conn.IsConnected() {
		return Subscription{}, ErrNotConnected
	}

	granted, err := e.conn.Subscribe(topic, qos, e.disp.HandleMessage)
	if err != nil {
		return Subscription{}, err
	}

	sub := Subscription{
		Topic:        topic,
		QoS:          qos,
		GrantedQoS:   granted,
		ID:           newCorrelationID(),
		SubscribedAt: time.Now(),
	}
	e.reg.Put(sub)
	return sub, nil
}

// Unsubscribe removes a subscription both broker-side and from the
// registry. Unknown topics are rejected without a network call.
func (e *Engine) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if _, ok := e.reg.Get(topic); !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, topic)
	}
	if !e.conn.IsConnected() {
		return ErrNotConnected
	}

	if err := e.conn.Unsubscribe(topic); err != nil {
		return err
	}
	e.reg.Remove(topic)
	return nil
}

// Publish sends a payload at the given level and blocks until the broker
// (at-least-once) or the local send (at-most-once) acknowledges. A string
// payload is sent as text; any other value is serialized to JSON. There is
// no automatic retry: a failed publish must be re-issued by the operator.
func (e *Engine) Publish(topic string, payload any, qos byte) (PublishResult, error) {
	if topic == "" {
		return PublishResult{}, ErrEmptyTopic
	}
	if !e.conn.IsConnected() {
		return PublishResult{}, ErrNotConnected
	}

	var (
		body   []byte
		isJSON bool
	)
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	case []byte:
		body = p
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return PublishResult{}, fmt.Errorf("session: encoding payload: %w", err)
		}
		body = encoded
		isJSON = true
	}

	id, err := e.conn.Publish(topic, qos, body)
	if err != nil {
		return PublishResult{}, err
	}

	now := time.Now()
	e.hist.Append(Record{
		Direction: Outbound,
		Topic:     topic,
		QoS:       qos,
		Payload:   string(body),
		JSON:      isJSON,
		Size:      len(body),
		PacketID:  id,
		Timestamp: now,
	})

	return PublishResult{PacketID: id, Size: len(body), At: now}, nil
}

// Close disconnects the transport. Safe to call from any exit path; the
// underlying disconnect runs exactly once.
func (e *Engine) Close() {
	e.disconnectOnce.Do(func() {
		e.conn.Disconnect()
	})
}

// consumeEvents reacts to lifecycle signals until ctx is cancelled.
//
// An interruption is non-fatal: the session is marked disconnected by the
// transport and subsequent operations fail their precondition until the
// connection resumes. On resume without retained broker state, every
// registry entry is re-subscribed; entries the broker refuses are dropped.
func (e *Engine) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.conn.Events():
			switch ev.Kind {
			case transport.EventInterrupted:
				e.log.Warn("connection interrupted, transport is retrying", "error", ev.Err)
				e.printf("\nconnection interrupted: %v (auto-reconnect in progress)\n%s", ev.Err, prompt)
			case transport.EventResumed:
				e.log.Info("connection resumed", "session_present", ev.SessionPresent)
				e.printf("\nconnection resumed\n")
				if !ev.SessionPresent {
					e.restoreSubscriptions()
				}
				e.printf(prompt)
			}
		}
	}
}

// restoreSubscriptions re-issues every tracked subscription after a resume
// that did not retain broker-side state.
func (e *Engine) restoreSubscriptions() {
	subs := e.reg.Snapshot()
	if len(subs) == 0 {
		return
	}

	e.printf("re-subscribing to %d topic(s) after reconnection\n", len(subs))
	for _, sub := range subs {
		if _, err := e.conn.Subscribe(sub.Topic, sub.QoS, e.disp.HandleMessage); err != nil {
			e.log.Warn("re-subscribe failed, dropping topic", "topic", sub.Topic, "error", err)
			e.reg.Remove(sub.Topic)
			continue
		}
		e.printf("  re-subscribed to %s (qos %d)\n", sub.Topic, sub.QoS)
	}
}

// printf writes to the interactive display under the output lock.
func (e *Engine) printf(format string, args ...any) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	fmt.Fprintf(e.out, format, args...)
}

// newCorrelationID returns a short opaque handle for a subscription. The
// transport does not expose the SUBSCRIBE packet identifier, so the handle
// is assigned here.
func newCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
