package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// prompt is the interactive prompt. The dispatcher reprints it after every
// asynchronous message display.
const prompt = "mqtt-ws> "

// historyDisplayLimit caps the messages command output.
const historyDisplayLimit = 10

// payloadPreviewLimit truncates payloads in the messages listing.
const payloadPreviewLimit = 50

// maxTopicLength is the broker's topic length limit, reported by debug.
const maxTopicLength = 256

// Run drives the interactive command loop until quit, EOF, context
// cancellation (operator interrupt) or a panicking command handler. On
// every exit path the transport is disconnected exactly once.
func (e *Engine) Run(ctx context.Context, in io.Reader) error {
	defer e.Close()

	evCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go e.consumeEvents(evCtx)

	// Stdin reads cannot be unblocked by a context, so the scanner feeds
	// a channel and the loop selects between input and cancellation.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-evCtx.Done():
				return
			}
		}
	}()

	e.printHelp()

	for {
		e.printf(prompt)
		select {
		case <-ctx.Done():
			// Operator interrupt: a shutdown request, not a crash.
			e.printf("\ninterrupted, shutting down\n")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := e.execute(line)
			if err != nil {
				// A panicking handler was reported; exit the loop.
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// execute runs one command line. The returned error is non-nil only for a
// recovered handler panic; command failures are reported and the loop
// continues.
func (e *Engine) execute(line string) (quit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.printf("command failed: %v\n", r)
			err = fmt.Errorf("session: command handler panic: %v", r)
		}
	}()

	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	parts := strings.SplitN(line, " ", 3)
	verb := strings.ToLower(parts[0])

	switch verb {
	case "quit":
		return true, nil
	case "help":
		e.printHelp()
	case "status":
		e.cmdStatus()
	case "sub", "sub1":
		e.cmdSubscribe(parts, verbQoS(verb))
	case "unsub":
		e.cmdUnsubscribe(parts)
	case "pub", "pub1":
		e.cmdPublish(parts, verbQoS(verb))
	case "json":
		e.cmdJSON(parts)
	case "test":
		e.cmdTest()
	case "messages":
		e.cmdMessages()
	case "debug":
		e.cmdDebug(parts)
	case "clear":
		e.cmdClear()
	default:
		e.printf("unknown command: %s (type 'help' for available commands)\n", verb)
	}
	return false, nil
}

// verbQoS maps a command verb to its delivery guarantee level: the "1"
// suffix selects at-least-once.
func verbQoS(verb string) byte {
	if strings.HasSuffix(verb, "1") {
		return 1
	}
	return 0
}

func (e *Engine) printHelp() {
	e.printf(`
commands:
  sub <topic>              subscribe (qos 0)
  sub1 <topic>             subscribe (qos 1)
  unsub <topic>            unsubscribe
  pub <topic> <message>    publish text (qos 0)
  pub1 <topic> <message>   publish text (qos 1)
  json <topic> key=value.. publish a JSON object (qos 0)
  test                     publish a canned diagnostic payload to %s
  status                   connection and subscription status
  messages                 show the last %d messages
  debug [topic]            connection diagnostics, or one topic's metadata
  clear                    clear the screen
  help                     show this help
  quit                     exit
`, e.testTopic, historyDisplayLimit)
}

func (e *Engine) cmdStatus() {
	connected := "no"
	if e.conn.IsConnected() {
		connected = "yes"
	}
	received, sent := e.hist.Counts()

	e.printf("connection status:\n")
	e.printf("  connected:     %s\n", connected)
	e.printf("  client id:     %s\n", e.clientID)
	e.printf("  transport:     %s\n", e.conn.Describe())
	e.printf("  subscriptions: %d\n", e.reg.Len())
	for _, sub := range e.reg.Snapshot() {
		e.printf("    - %s (qos %d, id %s)\n", sub.Topic, sub.QoS, sub.ID)
	}
	e.printf("  messages sent: %d, received: %d\n", sent, received)
}

func (e *Engine) cmdSubscribe(parts []string, qos byte) {
	if len(parts) < 2 {
		e.printf("usage: sub <topic>\n")
		return
	}
	topic := parts[1]

	sub, err := e.Subscribe(topic, qos)
	if err != nil {
		e.printf("subscribe to %s failed: %v\n", topic, err)
		return
	}
	e.printf("subscribed to %s (qos %d granted %d, id %s)\n", sub.Topic, sub.QoS, sub.GrantedQoS, sub.ID)
}

func (e *Engine) cmdUnsubscribe(parts []string) {
	if len(parts) < 2 {
		e.printf("usage: unsub <topic>\n")
		return
	}
	topic := parts[1]

	if err := e.Unsubscribe(topic); err != nil {
		e.printf("unsubscribe from %s failed: %v\n", topic, err)
		return
	}
	e.printf("unsubscribed from %s\n", topic)
}

func (e *Engine) cmdPublish(parts []string, qos byte) {
	if len(parts) < 3 {
		e.printf("usage: pub <topic> <message>\n")
		return
	}
	topic, message := parts[1], parts[2]

	res, err := e.Publish(topic, message, qos)
	if err != nil {
		e.printf("publish to %s failed: %v\n", topic, err)
		return
	}
	e.reportPublish(topic, qos, res)
}

func (e *Engine) cmdJSON(parts []string) {
	if len(parts) < 3 {
		e.printf("usage: json <topic> key=value [key=value...]\n")
		return
	}
	topic := parts[1]

	pairs := ParsePairs(strings.Fields(parts[2]))
	if len(pairs) == 0 {
		e.printf("publish to %s failed: %v\n", topic, ErrNoPairs)
		return
	}
	pairs["timestamp"] = time.Now().Format(time.RFC3339)
	pairs["transport"] = "websocket"

	res, err := e.Publish(topic, pairs, 0)
	if err != nil {
		e.printf("publish to %s failed: %v\n", topic, err)
		return
	}
	e.reportPublish(topic, 0, res)
}

func (e *Engine) cmdTest() {
	payload := map[string]any{
		"message":   "test message from the websocket explorer",
		"timestamp": time.Now().Format(time.RFC3339),
		"test_id":   newCorrelationID(),
		"transport": "websocket",
	}

	res, err := e.Publish(e.testTopic, payload, 0)
	if err != nil {
		e.printf("publish to %s failed: %v\n", e.testTopic, err)
		return
	}
	e.reportPublish(e.testTopic, 0, res)
}

func (e *Engine) reportPublish(topic string, qos byte, res PublishResult) {
	e.printf("published to %s [%s]\n", topic, res.At.Format("15:04:05.000"))
	e.printf("  qos: %d (%s), size: %d bytes, packet id: %d\n", qos, qosWord(qos), res.Size, res.PacketID)
}

func (e *Engine) cmdMessages() {
	records := e.hist.Last(historyDisplayLimit)
	if len(records) == 0 {
		e.printf("no messages yet\n")
		return
	}

	e.printf("message history (last %d):\n", len(records))
	for _, rec := range records {
		arrow := "<-"
		if rec.Direction == Outbound {
			arrow = "->"
		}
		preview := rec.Payload
		if len(preview) > payloadPreviewLimit {
			preview = preview[:payloadPreviewLimit] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")
		e.printf("  %s [%s] %s (qos %d, %d bytes)\n", arrow, rec.Timestamp.Format("15:04:05"), rec.Topic, rec.QoS, rec.Size)
		e.printf("     %s\n", preview)
	}
}

func (e *Engine) cmdDebug(parts []string) {
	if len(parts) > 1 && parts[1] != "" {
		e.debugTopic(parts[1])
		return
	}

	received, sent := e.hist.Counts()
	e.printf("diagnostics:\n")
	e.printf("  connected:     %v\n", e.conn.IsConnected())
	e.printf("  transport:     %s\n", e.conn.Describe())
	e.printf("  negotiated:    MQTT %s\n", e.conn.NegotiatedVersion())
	e.printf("  subscriptions: %d\n", e.reg.Len())
	e.printf("  received:      %d\n", received)
	e.printf("  sent:          %d\n", sent)
}

// debugTopic reports one topic's subscription metadata, or its absence,
// plus a shape analysis of the topic string itself.
func (e *Engine) debugTopic(topic string) {
	if sub, ok := e.reg.Get(topic); ok {
		e.printf("subscription %s:\n", topic)
		e.printf("  qos requested: %d, granted: %d\n", sub.QoS, sub.GrantedQoS)
		e.printf("  correlation:   %s\n", sub.ID)
		e.printf("  subscribed at: %s\n", sub.SubscribedAt.Format(time.RFC3339))
	} else {
		e.printf("no subscription for %s\n", topic)
	}

	e.printf("topic analysis:\n")
	e.printf("  length:         %d characters (max %d)\n", len(topic), maxTopicLength)
	e.printf("  leading slash:  %v (brokers reject it)\n", strings.HasPrefix(topic, "/"))
	e.printf("  contains '$':   %v (reserved namespace)\n", strings.Contains(topic, "$"))
	e.printf("  charset ok:     %v\n", topicCharsetOK(topic))
}

// topicCharsetOK reports whether the topic uses the conventional
// alphanumeric/hyphen/underscore/slash set (wildcards included).
func topicCharsetOK(topic string) bool {
	for _, r := range topic {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '/' || r == '-' || r == '_' || r == '+' || r == '#':
		default:
			return false
		}
	}
	return topic != ""
}

func (e *Engine) cmdClear() {
	received, _ := e.hist.Counts()
	e.printf("\033[2J\033[H")
	e.printf("websocket mqtt explorer - session active\n")
	e.printf("connected: %v | subscriptions: %d | messages: %d\n", e.conn.IsConnected(), e.reg.Len(), received)
}
