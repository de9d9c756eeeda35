package session

import (
	"sync"

	"github.com/wrenhall/iot-explorer/internal/transport"
)

// stubConn is an in-memory Conn for engine tests. It records every call so
// tests can assert that precondition failures never reach the transport.
type stubConn struct {
	mu        sync.Mutex
	connected bool
	events    chan transport.Event
	handlers  map[string]transport.MessageHandler

	subscribeCalls   int
	publishCalls     int
	unsubscribeCalls int
	disconnects      int

	failSubscribe   error
	failPublish     error
	failUnsubscribe error

	published []stubPublish
}

type stubPublish struct {
	topic   string
	qos     byte
	payload []byte
}

func newStubConn(connected bool) *stubConn {
	return &stubConn{
		connected: connected,
		events:    make(chan transport.Event, 8),
		handlers:  make(map[string]transport.MessageHandler),
	}
}

func (s *stubConn) Subscribe(topic string, qos byte, handler transport.MessageHandler) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeCalls++
	if s.failSubscribe != nil {
		return 0, s.failSubscribe
	}
	s.handlers[topic] = handler
	return qos, nil
}

func (s *stubConn) Unsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribeCalls++
	if s.failUnsubscribe != nil {
		return s.failUnsubscribe
	}
	delete(s.handlers, topic)
	return nil
}

func (s *stubConn) Publish(topic string, qos byte, payload []byte) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishCalls++
	if s.failPublish != nil {
		return 0, s.failPublish
	}
	s.published = append(s.published, stubPublish{topic: topic, qos: qos, payload: payload})
	return uint16(s.publishCalls), nil
}

func (s *stubConn) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	s.connected = false
}

func (s *stubConn) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubConn) Events() <-chan transport.Event {
	return s.events
}

func (s *stubConn) NegotiatedVersion() transport.Version {
	return transport.Version311
}

func (s *stubConn) Describe() string {
	return "stub transport"
}

// deliver invokes the handler registered for topic, mimicking the
// transport's dispatch goroutine.
func (s *stubConn) deliver(msg transport.Message) bool {
	s.mu.Lock()
	handler, ok := s.handlers[msg.Topic]
	s.mu.Unlock()
	if !ok {
		return false
	}
	handler(msg)
	return true
}

func (s *stubConn) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *stubConn) calls() (subscribe, publish, unsubscribe int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeCalls, s.publishCalls, s.unsubscribeCalls
}
