// Package flood implements network discovery: handling inbound
// FloodRequests, deduplicating repeats, fanning new ones out to neighbors,
// and folding a terminated flood back into a FloodResponse that retraces
// its recorded path.
//
// This corresponds to the reference implementation's handle_flood.rs,
// restructured in the same Config+constructor shape as the forwarding
// package.
package flood

import (
	"log/slog"

	"github.com/kabili207/dronemesh/drone/metrics"
	"github.com/kabili207/dronemesh/drone/packet"
	"github.com/kabili207/dronemesh/drone/routeopt"
	"github.com/kabili207/dronemesh/drone/state"
)

// Config configures a Handler.
type Config struct {
	// Logger for flood events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
	// Metrics records flood counters. Nil disables metrics.
	Metrics *metrics.Recorder
}

// Handler processes FloodRequest packets on behalf of a drone.
type Handler struct {
	st      *state.State
	log     *slog.Logger
	metrics *metrics.Recorder
}

// New creates a Handler bound to st.
func New(st *state.State, cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{st: st, log: logger.WithGroup("flood"), metrics: cfg.Metrics}
}

// HandleFloodRequest processes an inbound FloodRequest packet, which
// arrives with no usable source-routing header of its own — the path so
// far is recorded entirely in the payload's PathTrace. A crashed drone
// (not Running) drops FloodRequests rather than extending their trace,
// since spreading from a draining node would only grow the network's
// discovery surface for no benefit.
func (h *Handler) HandleFloodRequest(pkt *packet.Packet, fr *packet.FloodRequest) {
	if !h.st.Running() {
		return
	}

	senderID := fr.InitiatorID
	if n := len(fr.PathTrace); n > 0 {
		senderID = fr.PathTrace[n-1].Node
	}

	fr.PathTrace = append(fr.PathTrace, packet.PathEntry{Node: h.st.ID(), Kind: packet.NodeDrone})

	key := state.FloodKey{FloodID: fr.FloodID, InitiatorID: fr.InitiatorID}
	if h.st.SeenFlood(key) {
		h.sendFloodResponse(pkt.SessionID, fr, senderID)
		return
	}

	h.spread(pkt.SessionID, fr, senderID)
}

// sendFloodResponse folds a terminated flood back toward its initiator by
// reversing the recorded path trace. If the trace doesn't already end at
// the initiator, its ID is appended so the response always reaches home.
func (h *Handler) sendFloodResponse(sessionID uint64, fr *packet.FloodRequest, senderID packet.NodeID) {
	hops := make([]packet.NodeID, len(fr.PathTrace))
	for i, entry := range fr.PathTrace {
		hops[len(fr.PathTrace)-1-i] = entry.Node
	}
	if len(hops) == 0 || hops[len(hops)-1] != fr.InitiatorID {
		hops = append(hops, fr.InitiatorID)
	}

	if h.st.OptimizedRouting() {
		hops = routeopt.Optimize(hops, h.st.IsNeighbor)
	}

	respPkt := &packet.Packet{
		Routing:   packet.SourceRoutingHeader{Hops: hops, HopIndex: 1},
		SessionID: sessionID,
		Payload:   &packet.FloodResponse{FloodID: fr.FloodID, PathTrace: fr.PathTrace},
	}

	if len(hops) < 2 {
		h.st.EmitEvent(packet.ControllerShortcut{Packet: respPkt})
		h.metrics.IncShortcut()
		return
	}

	if h.st.TrySendToNeighbor(hops[1], respPkt) {
		h.st.EmitEvent(packet.PacketSent{Packet: respPkt})
		h.metrics.IncSent()
		return
	}
	h.st.EmitEvent(packet.ControllerShortcut{Packet: respPkt})
	h.metrics.IncShortcut()
	_ = senderID
}

// spread re-broadcasts fr to every known neighbor except the one it arrived
// from, each hop carrying its own two-entry header of {self, neighbor}. A
// drone with no other neighbors has nowhere to spread to, so the flood
// degenerates into an immediate response instead.
func (h *Handler) spread(sessionID uint64, fr *packet.FloodRequest, senderID packet.NodeID) {
	targets := h.st.NeighborIDsExcept(senderID)
	if len(targets) == 0 {
		h.sendFloodResponse(sessionID, fr, senderID)
		return
	}

	for _, neighbor := range targets {
		outPkt := &packet.Packet{
			Routing:   packet.SourceRoutingHeader{Hops: []packet.NodeID{h.st.ID(), neighbor}, HopIndex: 1},
			SessionID: sessionID,
			Payload:   &packet.FloodRequest{FloodID: fr.FloodID, InitiatorID: fr.InitiatorID, PathTrace: fr.PathTrace},
		}
		if h.st.TrySendToNeighbor(neighbor, outPkt) {
			h.st.EmitEvent(packet.PacketSent{Packet: outPkt})
			h.metrics.IncFloodForwarded()
			continue
		}
		// TrySendToNeighbor already removed the unreachable neighbor
		// (self-heal); a flood fan-out failure has no ControllerShortcut
		// fallback, unlike the non-droppable payload kinds in forwarding.
	}
}
