// Package forwarding implements the drone's per-packet forwarding state
// machine: validation, hop advancement, PDR-based drop, and the
// differentiated handling of data fragments vs acknowledgements/negatives/
// flood-responses. It also builds and sends the Nacks that the other
// checks raise.
//
// This corresponds to the Rust reference implementation's forward_packet.rs
// and send_nack.rs, restructured the way github.com/kabili207/meshcore-go
// structures its device/router.Router: a Config-constructed Engine holding
// a pointer to shared state, with one exported entry point and several
// unexported per-payload-kind helpers.
package forwarding

import (
	"log/slog"
	"math/rand/v2"

	"github.com/kabili207/dronemesh/drone/hunt"
	"github.com/kabili207/dronemesh/drone/metrics"
	"github.com/kabili207/dronemesh/drone/packet"
	"github.com/kabili207/dronemesh/drone/routeopt"
	"github.com/kabili207/dronemesh/drone/state"
)

// Config configures an Engine.
type Config struct {
	// Logger for forwarding events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
	// Metrics records forwarding counters. Nil disables metrics.
	Metrics *metrics.Recorder
}

// Engine is the drone's forwarding state machine.
type Engine struct {
	st      *state.State
	log     *slog.Logger
	metrics *metrics.Recorder
}

// New creates an Engine bound to st.
func New(st *state.State, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{st: st, log: logger.WithGroup("forward"), metrics: cfg.Metrics}
}

// Forward runs the fixed validate-advance-drop-or-forward sequence over
// pkt. allowOptimized gates whether any Nack this call raises is allowed to
// run through the route optimizer; the event loop always calls Forward
// with allowOptimized=true.
//
// FloodRequest must never reach Forward — the event loop routes those to
// the flood package instead — but Forward still recognizes the case and
// logs an invariant violation rather than panicking, since Payload
// dispatch here is a total case analysis over the closed packet.Payload
// union.
func (e *Engine) Forward(pkt *packet.Packet, allowOptimized bool) {
	frag, isFragment := pkt.Payload.(*packet.MsgFragment)

	// 1. Correct-recipient check. The cursor has not advanced yet, so this
	// drone's own position in the traversed prefix is HopIndex itself, not
	// HopIndex-1 (that adjustment only applies once step 2 has run).
	hop, ok := pkt.Routing.CurrentHop()
	if !ok || hop != e.st.ID() {
		e.log.Warn("unexpected recipient", "self", e.st.ID(), "hop", hop, "in_bounds", ok)
		if isFragment {
			e.sendNack(pkt, pkt.Routing.HopIndex, packet.NackUnexpectedRecipient, e.st.ID(), frag.FragmentIndex, allowOptimized)
		}
		return
	}

	// 2. Advance cursor.
	pkt.Routing.HopIndex++

	// Every check from here on runs after step 2's advance, so this
	// drone's own position in the original hops is always HopIndex-1.
	selfPos := pkt.Routing.HopIndex - 1

	// 3. Crashed-but-draining check. Only MsgFragments short-circuit; every
	// other kind is non-droppable and proceeds normally during drain.
	if !e.st.Running() && isFragment {
		e.sendNack(pkt, selfPos, packet.NackErrorInRouting, e.st.ID(), frag.FragmentIndex, allowOptimized)
		return
	}

	// 4. Destination-is-me check.
	if pkt.Routing.Hops[len(pkt.Routing.Hops)-1] == e.st.ID() {
		if isFragment {
			e.sendNack(pkt, selfPos, packet.NackDestinationIsDrone, 0, frag.FragmentIndex, allowOptimized)
		}
		return
	}

	// 5. Next-hop neighbor check. MsgFragment and FloodRequest fail fast
	// here; Ack/Nack/FloodResponse fall through to step 6, which shortcuts.
	nextHop := pkt.Routing.Hops[pkt.Routing.HopIndex]
	if !e.st.IsNeighbor(nextHop) {
		switch p := pkt.Payload.(type) {
		case *packet.MsgFragment:
			e.sendNack(pkt, selfPos, packet.NackErrorInRouting, nextHop, p.FragmentIndex, allowOptimized)
			return
		case *packet.FloodRequest:
			e.log.Error("flood request reached forwarding engine", "flood_id", p.FloodID)
			return
		}
	}

	// 6. Type-specific handling.
	switch p := pkt.Payload.(type) {
	case *packet.MsgFragment:
		e.forwardFragment(pkt, p, nextHop, selfPos, allowOptimized)
	case *packet.Ack:
		e.forwardNonDroppable(pkt, allowOptimized)
	case *packet.Nack:
		e.forwardNack(pkt, p, allowOptimized)
	case *packet.FloodResponse:
		e.forwardNonDroppable(pkt, allowOptimized)
	case *packet.FloodRequest:
		e.log.Error("flood request reached forwarding engine; invariant violation", "flood_id", p.FloodID)
	}
}

// forwardFragment implements the MsgFragment branch of step 6: a PDR roll,
// then either a Dropped Nack or a forwarded hop.
func (e *Engine) forwardFragment(pkt *packet.Packet, frag *packet.MsgFragment, nextHop packet.NodeID, selfPos int, allowOptimized bool) {
	roll := 1 + rand.IntN(100) // uniform over 1..=100
	if roll <= e.st.PDR() {
		e.sendNack(pkt, selfPos, packet.NackDropped, 0, frag.FragmentIndex, allowOptimized)
		rolledBack := pkt.Clone()
		rolledBack.Routing.HopIndex--
		e.st.EmitEvent(packet.PacketDropped{Packet: rolledBack})
		e.metrics.IncDropped()
		return
	}

	if e.st.TrySendToNeighbor(nextHop, pkt) {
		e.st.EmitEvent(packet.PacketSent{Packet: pkt})
		e.metrics.IncSent()
		return
	}
	e.sendNack(pkt, selfPos, packet.NackErrorInRouting, nextHop, frag.FragmentIndex, allowOptimized)
}

// forwardNonDroppable implements the Ack/FloodResponse branch of step 6:
// optimize the remaining tail if enabled, then send or shortcut. Exactly
// one of PacketSent/ControllerShortcut is emitted.
func (e *Engine) forwardNonDroppable(pkt *packet.Packet, allowOptimized bool) {
	e.optimizeTail(pkt, allowOptimized)
	nextHop := pkt.Routing.Hops[pkt.Routing.HopIndex]
	if e.st.TrySendToNeighbor(nextHop, pkt) {
		e.st.EmitEvent(packet.PacketSent{Packet: pkt})
		e.metrics.IncSent()
		return
	}
	e.st.EmitEvent(packet.ControllerShortcut{Packet: pkt})
	e.metrics.IncShortcut()
}

// forwardNack implements the Nack branch of step 6: same send-or-shortcut
// policy as forwardNonDroppable, plus the hunt-mode hook that fires when a
// Dropped Nack transits this drone.
func (e *Engine) forwardNack(pkt *packet.Packet, nack *packet.Nack, allowOptimized bool) {
	e.optimizeTail(pkt, allowOptimized)
	nextHop := pkt.Routing.Hops[pkt.Routing.HopIndex]
	if e.st.TrySendToNeighbor(nextHop, pkt) {
		e.st.EmitEvent(packet.PacketSent{Packet: pkt})
		e.metrics.IncSent()
	} else {
		e.st.EmitEvent(packet.ControllerShortcut{Packet: pkt})
		e.metrics.IncShortcut()
	}

	if e.st.HuntMode() && nack.Kind == packet.NackDropped {
		dropper := pkt.Routing.Hops[0]
		if err := hunt.Ghost(e.st, dropper, hunt.NormalShot, 0); err != nil {
			e.log.Debug("hunt ghost suppressed", "error", err)
		}
	}
}

// optimizeTail runs the route optimizer, in place, over the portion of
// pkt's path from this drone onward, when both optimized_routing and
// allowOptimized permit it.
func (e *Engine) optimizeTail(pkt *packet.Packet, allowOptimized bool) {
	if !e.st.OptimizedRouting() || !allowOptimized {
		return
	}
	selfIdx := pkt.Routing.HopIndex - 1
	if selfIdx < 0 || selfIdx >= len(pkt.Routing.Hops) {
		return
	}
	tail := pkt.Routing.Hops[selfIdx:]
	optimized := routeopt.Optimize(tail, e.st.IsNeighbor)
	if len(optimized) == len(tail) {
		return
	}
	newHops := make([]packet.NodeID, 0, selfIdx+len(optimized))
	newHops = append(newHops, pkt.Routing.Hops[:selfIdx]...)
	newHops = append(newHops, optimized...)
	pkt.Routing.Hops = newHops
}

// sendNack is the Nack Builder/Sender: given the packet that failed at
// this drone and selfPos — this drone's own index in original.Routing.Hops
// — it computes the reverse path back to the sender, optimizes it if
// permitted, and sends the resulting Nack. A final PacketSent event is
// always emitted for the constructed Nack, even when the hop itself fell
// back to a ControllerShortcut — this is the one place the spec explicitly
// asks for both events on the same outcome.
//
// selfPos is HopIndex-1 once step 2 has advanced the cursor, but the
// unexpected-recipient check in step 1 fires before that advance, so its
// caller passes the pre-advance HopIndex itself: the packet physically
// reached this drone at that position even though the header names
// someone else there.
func (e *Engine) sendNack(original *packet.Packet, selfPos int, kind packet.NackKind, node packet.NodeID, fragmentIndex uint64, allowOptimized bool) {
	if selfPos < 1 || selfPos >= len(original.Routing.Hops) {
		e.log.Warn("cannot construct nack: degenerate hop index", "self_pos", selfPos)
		return
	}

	prefix := original.Routing.Hops[:selfPos+1]
	reversed := make([]packet.NodeID, len(prefix))
	for i, h := range prefix {
		reversed[len(prefix)-1-i] = h
	}

	hops := reversed
	if e.st.OptimizedRouting() && allowOptimized {
		hops = routeopt.Optimize(reversed, e.st.IsNeighbor)
	}
	if len(hops) < 2 {
		e.log.Warn("cannot send nack: no return hop after reversing path")
		return
	}

	nackPkt := &packet.Packet{
		Routing:   packet.SourceRoutingHeader{Hops: hops, HopIndex: 1},
		SessionID: original.SessionID,
		Payload:   &packet.Nack{Kind: kind, FragmentIndex: fragmentIndex, Node: node},
	}

	target := hops[1]
	if e.st.TrySendToNeighbor(target, nackPkt) {
		e.metrics.IncNackSent()
	} else {
		e.st.EmitEvent(packet.ControllerShortcut{Packet: nackPkt})
		e.metrics.IncShortcut()
	}
	e.st.EmitEvent(packet.PacketSent{Packet: nackPkt})
}
