package session

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/wrenhall/iot-explorer/internal/infrastructure/logging"
	"github.com/wrenhall/iot-explorer/internal/transport"
)

// Dispatcher handles inbound messages delivered on the transport's
// dispatch goroutines, concurrently with the foreground command loop.
//
// For each message it decodes the payload, updates the shared history and
// counter, and renders the record. Decode and render failures degrade or
// are recovered; they never tear down the session.
type Dispatcher struct {
	history  *History
	out      io.Writer
	outMu    *sync.Mutex
	log      *logging.Logger
	describe func() string
}

// HandleMessage is the transport.MessageHandler for every subscription.
func (d *Dispatcher) HandleMessage(msg transport.Message) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("message render panic recovered", "topic", msg.Topic, "panic", r)
		}
	}()

	display, isJSON := decodePayload(msg.Payload)

	rec := Record{
		Direction: Inbound,
		Topic:     msg.Topic,
		QoS:       msg.QoS,
		Payload:   display,
		JSON:      isJSON,
		Size:      len(msg.Payload),
		Duplicate: msg.Duplicate,
		Retained:  msg.Retained,
		Timestamp: time.Now(),
	}
	count := d.history.Append(rec)

	d.render(rec, count)
}

// decodePayload attempts a structured decode: the payload is treated as
// UTF-8 text and re-indented if it parses as JSON. Failure degrades to the
// raw text and never propagates.
func decodePayload(payload []byte) (display string, isJSON bool) {
	var v any
	if err := json.Unmarshal(payload, &v); err == nil {
		if pretty, err := json.MarshalIndent(v, "  ", "  "); err == nil {
			return string(pretty), true
		}
	}
	return string(payload), false
}

// qosWord names a delivery guarantee level for display.
func qosWord(qos byte) string {
	switch qos {
	case 0:
		return "at most once"
	case 1:
		return "at least once"
	default:
		return "exactly once"
	}
}

func (d *Dispatcher) render(rec Record, count uint64) {
	d.outMu.Lock()
	defer d.outMu.Unlock()

	w := d.out
	stamp := rec.Timestamp.Format("15:04:05.000")

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(w, "incoming message #%d [%s]\n", count, stamp)
	fmt.Fprintf(w, "  topic:     %s\n", rec.Topic)
	fmt.Fprintf(w, "  qos:       %d (%s)\n", rec.QoS, qosWord(rec.QoS))
	fmt.Fprintf(w, "  size:      %d bytes\n", rec.Size)
	fmt.Fprintf(w, "  transport: %s\n", d.describe())

	var flags []string
	if rec.Duplicate {
		flags = append(flags, "duplicate (retransmitted)")
	}
	if rec.Retained {
		flags = append(flags, "retain (stored by broker)")
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "  flags:     %s\n", strings.Join(flags, ", "))
	}

	if rec.JSON {
		fmt.Fprintf(w, "  payload (json):\n  %s\n", rec.Payload)
	} else {
		fmt.Fprintf(w, "  payload: %s\n", rec.Payload)
	}
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 70))

	// Restore the prompt the loop was showing before the interruption.
	fmt.Fprint(w, prompt)
}
