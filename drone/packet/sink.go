package packet

import "sync/atomic"

// Sink is the sending half of a neighbor's inbound packet channel. It
// wraps a buffered Go channel with a closed flag so a peer that has gone
// away can be observed by TrySend rather than causing a send-on-closed-
// channel panic in whichever drone still holds a reference to it.
//
// A Sink may be cloned into many neighbor maps (every drone that treats the
// owning drone as a neighbor holds the same *Sink); TrySend is safe to call
// concurrently from all of them, matching the "multi-producer single-
// consumer" channel discipline the event loop assumes on its receive side.
type Sink struct {
	ch     chan *Packet
	closed atomic.Bool
}

// NewSink creates a Sink and the receive-only channel its owner should
// drain. buffer is the channel's capacity. The event loop's drain
// predicate ("packet channel not empty") relies on this channel being
// buffered so its length can be inspected without consuming from it.
func NewSink(buffer int) (*Sink, <-chan *Packet) {
	ch := make(chan *Packet, buffer)
	return &Sink{ch: ch}, ch
}

// TrySend attempts a non-blocking send. It returns false if the sink has
// been closed or the channel's buffer is full — both are treated as the
// same "can't reach this neighbor right now" failure by callers.
func (s *Sink) TrySend(pkt *Packet) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.ch <- pkt:
		return true
	default:
		return false
	}
}

// Close marks the sink unusable. Safe to call from the owning drone's loop
// goroutine when it stops; it does not close the underlying channel, so
// concurrent TrySend callers never race with channel closure.
func (s *Sink) Close() {
	s.closed.Store(true)
}

// EventSink is the controller-facing analogue of Sink, carrying Events
// instead of Packets.
type EventSink struct {
	ch     chan Event
	closed atomic.Bool
}

// NewEventSink creates an EventSink and the receive-only channel the
// controller should drain.
func NewEventSink(buffer int) (*EventSink, <-chan Event) {
	ch := make(chan Event, buffer)
	return &EventSink{ch: ch}, ch
}

// TrySend attempts a non-blocking send, returning false if closed or full.
func (s *EventSink) TrySend(ev Event) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Close marks the sink unusable.
func (s *EventSink) Close() {
	s.closed.Store(true)
}
