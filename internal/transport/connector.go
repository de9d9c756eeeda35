package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wrenhall/iot-explorer/internal/infrastructure/logging"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the CONNACK.
	defaultConnectTimeout = 10 * time.Second

	// defaultOpTimeout is the maximum time to wait for subscribe, publish
	// and unsubscribe acknowledgements.
	defaultOpTimeout = 5 * time.Second

	// defaultKeepAlive matches the AWS IoT recommended ping interval.
	defaultKeepAlive = 30 * time.Second

	// maxReconnectInterval caps the library's reconnect backoff.
	maxReconnectInterval = 60 * time.Second

	// disconnectQuiesce is the time in milliseconds to wait for pending
	// operations on disconnect.
	disconnectQuiesce = 1000

	// eventBuffer bounds the lifecycle event channel. Events beyond the
	// buffer are dropped rather than blocking the library's dispatch
	// goroutine.
	eventBuffer = 16

	// subackFailure is the SUBACK return code brokers use to refuse a
	// subscription.
	subackFailure = 0x80
)

// EventKind identifies a lifecycle signal.
type EventKind int

const (
	// EventInterrupted signals the connection was lost. The library keeps
	// retrying beneath this layer.
	EventInterrupted EventKind = iota

	// EventResumed signals the connection was restored after an
	// interruption.
	EventResumed
)

func (k EventKind) String() string {
	switch k {
	case EventResumed:
		return "resumed"
	default:
		return "interrupted"
	}
}

// Event is a lifecycle signal delivered on the connector's event channel.
// Events originate on the library's dispatch goroutine, never on the
// caller's.
type Event struct {
	Kind EventKind

	// Err is the cause for EventInterrupted.
	Err error

	// SessionPresent reports whether the broker retained subscription
	// state across the interruption. Sessions here are always clean, so
	// this is false and subscribers must be restored by the consumer.
	SessionPresent bool
}

// Message is one inbound MQTT message.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       byte
	Duplicate bool
	Retained  bool
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked on the library's dispatch goroutines, concurrently
// with any foreground operation on the same connector. They should not
// block for extended periods.
type MessageHandler func(Message)

// Options configures a Dial attempt.
type Options struct {
	// Endpoint is the IoT data endpoint hostname. The connection always
	// uses the standard secured WebSocket port 443.
	Endpoint string

	// ClientID identifies the session to the broker. Validated by the
	// caller before dialing.
	ClientID string

	// Version is the requested MQTT protocol version. A failed Version5
	// attempt falls back to 3.1.1 once, surfaced through the logger.
	Version Version

	// Signer produces the presigned wss URL for each attempt.
	Signer *Signer

	KeepAlive      time.Duration
	ConnectTimeout time.Duration

	Logger *logging.Logger
}

// Connector maintains one MQTT-over-WebSocket connection.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Lifecycle events are delivered on the channel returned by Events,
//     not as callbacks, so the consumer chooses its own goroutine.
type Connector struct {
	opts Options
	log  *logging.Logger

	mu         sync.RWMutex
	client     pahomqtt.Client
	connected  bool
	sawConnect bool
	negotiated Version

	events chan Event
}

// Dial establishes the connection, handling the protocol version fallback.
//
// On Version5 requests the first attempt fails (the WebSocket stack carries
// 3.1.1 only); the fallback is logged and the same identity, credentials
// and endpoint are retried at 3.1.1. The negotiated version is recorded and
// available via NegotiatedVersion.
//
// Cancelling ctx during the blocking connect aborts the attempt cleanly.
func Dial(ctx context.Context, opts Options) (*Connector, error) {
	if opts.Signer == nil {
		return nil, ErrIncompleteCredentials
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	c := &Connector{
		opts:   opts,
		log:    opts.Logger,
		events: make(chan Event, eventBuffer),
	}

	negotiated, err := negotiate(opts.Version,
		func(v Version) error {
			return c.connectOnce(ctx, v)
		},
		func(from, to Version, cause error) {
			c.log.Warn("MQTT version fallback",
				"requested", from.String(),
				"using", to.String(),
				"error", cause,
			)
		})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.negotiated = negotiated
	c.mu.Unlock()

	return c, nil
}

// connectOnce runs a single connection attempt at the given version.
func (c *Connector) connectOnce(ctx context.Context, v Version) error {
	proto, err := pahoProtocolVersion(v)
	if err != nil {
		return err
	}

	signed, err := c.opts.Signer.SignURL(c.opts.Endpoint, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(signed)
	opts.SetClientID(c.opts.ClientID)
	opts.SetProtocolVersion(proto)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(c.opts.KeepAlive)
	opts.SetConnectTimeout(c.opts.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleInterrupted(err)
	})
	// Auto-reconnect re-dials the stored URL. The signature expires after
	// five minutes, so it is re-derived before every reconnect attempt.
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, o *pahomqtt.ClientOptions) {
		c.refreshSignature(o)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-ctx.Done():
		client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	case <-time.After(c.opts.ConnectTimeout + time.Second):
		client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ErrTimeout)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	c.client = client
	c.connected = true
	c.sawConnect = true
	c.mu.Unlock()

	return nil
}

// handleConnect runs on the library's dispatch goroutine for the initial
// connect and for every reconnect. Only reconnects emit EventResumed.
func (c *Connector) handleConnect() {
	c.mu.Lock()
	resumed := c.sawConnect && !c.connected
	c.connected = true
	c.mu.Unlock()

	if resumed {
		c.emit(Event{Kind: EventResumed, SessionPresent: false})
	}
}

func (c *Connector) handleInterrupted(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.emit(Event{Kind: EventInterrupted, Err: err})
}

// emit delivers an event without ever blocking the dispatch goroutine.
func (c *Connector) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("lifecycle event dropped, channel full", "kind", ev.Kind.String())
	}
}

// refreshSignature replaces the broker URL with a freshly signed one before
// a reconnect attempt.
func (c *Connector) refreshSignature(o *pahomqtt.ClientOptions) {
	signed, err := c.opts.Signer.SignURL(c.opts.Endpoint, time.Now())
	if err != nil {
		c.log.Error("re-signing connection URL failed", "error", err)
		return
	}
	u, err := url.Parse(signed)
	if err != nil {
		c.log.Error("parsing re-signed URL failed", "error", err)
		return
	}
	o.Servers = []*url.URL{u}
}

// Events returns the lifecycle event channel. The channel is never closed;
// consumers stop via their own context.
func (c *Connector) Events() <-chan Event {
	return c.events
}

// IsConnected returns the current connection state.
func (c *Connector) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// NegotiatedVersion returns the protocol version that actually connected.
func (c *Connector) NegotiatedVersion() Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiated
}

// Describe returns a human-readable transport description for display.
func (c *Connector) Describe() string {
	return fmt.Sprintf("MQTT %s over WebSocket (SigV4), port 443", c.NegotiatedVersion())
}

// Subscribe issues a protocol subscribe and blocks until the broker
// acknowledges it or the operation times out. It returns the granted QoS.
func (c *Connector) Subscribe(topic string, qos byte, handler MessageHandler) (byte, error) {
	client := c.currentClient()
	if client == nil || !c.IsConnected() {
		return 0, ErrNotConnected
	}

	token := client.Subscribe(topic, qos, func(_ pahomqtt.Client, m pahomqtt.Message) {
		handler(Message{
			Topic:     m.Topic(),
			Payload:   m.Payload(),
			QoS:       m.Qos(),
			Duplicate: m.Duplicate(),
			Retained:  m.Retained(),
		})
	})

	if !token.WaitTimeout(defaultOpTimeout) {
		return 0, fmt.Errorf("%w: %w after %v", ErrSubscribeFailed, ErrTimeout, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	granted := qos
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if g, ok := st.Result()[topic]; ok {
			granted = g
		}
	}
	if granted >= subackFailure {
		return 0, fmt.Errorf("%w: broker refused subscription to %q", ErrSubscribeFailed, topic)
	}

	return granted, nil
}

// Unsubscribe removes a broker-side subscription and blocks until
// acknowledged.
func (c *Connector) Unsubscribe(topic string) error {
	client := c.currentClient()
	if client == nil || !c.IsConnected() {
		return ErrNotConnected
	}

	token := client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultOpTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrUnsubscribeFailed, ErrTimeout, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// Publish sends a message and blocks until the broker (QoS 1) or the local
// send (QoS 0) acknowledges completion. It returns the packet identifier,
// which is zero for QoS 0.
func (c *Connector) Publish(topic string, qos byte, payload []byte) (uint16, error) {
	client := c.currentClient()
	if client == nil || !c.IsConnected() {
		return 0, ErrNotConnected
	}

	token := client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(defaultOpTimeout) {
		return 0, fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	var id uint16
	if pt, ok := token.(*pahomqtt.PublishToken); ok {
		id = pt.MessageID()
	}
	return id, nil
}

// Disconnect gracefully closes the connection. Idempotent: calling it on an
// already-closed or never-opened connection is a no-op.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	client := c.client
	c.connected = false
	c.mu.Unlock()

	if client == nil {
		return
	}
	if client.IsConnected() {
		client.Disconnect(disconnectQuiesce)
	}
}

func (c *Connector) currentClient() pahomqtt.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
