package session

import (
	"sync"
	"time"
)

// Direction distinguishes sent from received records.
type Direction int

const (
	// Inbound marks a message delivered by the broker.
	Inbound Direction = iota

	// Outbound marks a message published by the operator.
	Outbound
)

// Record is one entry in the bounded message history.
type Record struct {
	Direction Direction
	Topic     string
	QoS       byte

	// Payload is the display form: re-indented JSON when the payload
	// parsed as such, otherwise the raw text.
	Payload string

	// JSON reports whether Payload is the structured form.
	JSON bool

	Size      int
	Duplicate bool
	Retained  bool
	PacketID  uint16
	Timestamp time.Time
}

// History is the bounded in-memory message ring plus the delivery counter.
//
// It is the only state shared between the background dispatcher and the
// foreground command loop; one mutex guards both the ring and the
// counters, held for the shortest possible duration.
type History struct {
	mu       sync.Mutex
	records  []Record
	limit    int
	received uint64
	sent     uint64
}

// NewHistory returns a History bounded to limit entries.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Append records one message and returns the inbound delivery count after
// the append (unchanged for outbound records).
func (h *History) Append(rec Record) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}

	if rec.Direction == Inbound {
		h.received++
	} else {
		h.sent++
	}
	return h.received
}

// Last returns up to n of the most recent records, oldest first.
func (h *History) Last(n int) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > len(h.records) {
		n = len(h.records)
	}
	out := make([]Record, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}

// Counts returns the received and sent totals.
func (h *History) Counts() (received, sent uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.received, h.sent
}

// Len returns the number of records currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
