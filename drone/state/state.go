// Package state holds a drone's exclusively-owned mutable state: identity,
// packet-drop rate, neighbor table, flood dedup set, and lifecycle flags.
// Every method assumes it is called from the single goroutine that owns the
// drone's event loop — there is no internal locking, by design, since a
// drone is strictly single-threaded and cooperative.
//
// This corresponds to github.com/kabili207/meshcore-go's
// device/connection.Manager (peer map + owner-goroutine mutation) and
// core/dedupe.PacketDeduplicator (check-and-insert HasSeen semantics),
// adapted to a single-owner model since a drone, unlike that repository's
// router.Router, is never touched by more than one goroutine.
package state

import (
	"log/slog"
	"math"
	"sort"

	"github.com/kabili207/dronemesh/drone/packet"
)

// FloodKey identifies a flood for dedup purposes.
type FloodKey struct {
	FloodID     uint64
	InitiatorID packet.NodeID
}

// Config configures a new State.
type Config struct {
	ID        packet.NodeID
	PDR       float64 // fraction in [0,1]
	Neighbors map[packet.NodeID]*packet.Sink

	OptimizedRouting bool
	HuntMode         bool

	ControllerSend *packet.EventSink
	Logger         *slog.Logger
}

// State is a drone's shared mutable state.
type State struct {
	id               packet.NodeID
	pdr              int
	neighbors        map[packet.NodeID]*packet.Sink
	seenFloods       map[FloodKey]struct{}
	optimizedRouting bool
	huntMode         bool
	running          bool
	controllerSend   *packet.EventSink
	log              *slog.Logger
}

// New constructs a State with running=true, per the drone's documented
// default lifecycle.
func New(cfg Config) *State {
	neighbors := make(map[packet.NodeID]*packet.Sink, len(cfg.Neighbors))
	for id, sink := range cfg.Neighbors {
		neighbors[id] = sink
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		id:               cfg.ID,
		pdr:              clampPDR(cfg.PDR),
		neighbors:        neighbors,
		seenFloods:       make(map[FloodKey]struct{}),
		optimizedRouting: cfg.OptimizedRouting,
		huntMode:         cfg.HuntMode,
		running:          true,
		controllerSend:   cfg.ControllerSend,
		log:              logger.WithGroup("state"),
	}
}

func clampPDR(rate float64) int {
	v := int(math.Round(rate * 100))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ID returns the drone's immutable identity.
func (s *State) ID() packet.NodeID { return s.id }

// PDR returns the current packet-drop rate, an integer in [0,100].
func (s *State) PDR() int { return s.pdr }

// SetPDR updates the packet-drop rate from a fraction in [0,1].
func (s *State) SetPDR(rate float64) { s.pdr = clampPDR(rate) }

// Running reports whether the drone is still accepting new work.
func (s *State) Running() bool { return s.running }

// SetRunning flips the running flag. Setting it false is what the Crash
// command does; nothing else ever sets it false.
func (s *State) SetRunning(running bool) { s.running = running }

// OptimizedRouting reports whether the route optimizer should run on
// outbound Ack/Nack/FloodResponse/Nack-construction paths.
func (s *State) OptimizedRouting() bool { return s.optimizedRouting }

// SetOptimizedRouting toggles the optimizer.
func (s *State) SetOptimizedRouting(enabled bool) { s.optimizedRouting = enabled }

// HuntMode reports whether dropped-Nack transits should report a hunt
// event to the controller.
func (s *State) HuntMode() bool { return s.huntMode }

// SetHuntMode toggles hunt mode.
func (s *State) SetHuntMode(enabled bool) { s.huntMode = enabled }

// AddNeighbor installs or overwrites the outbound sink for a neighbor.
func (s *State) AddNeighbor(id packet.NodeID, sink *packet.Sink) {
	s.neighbors[id] = sink
}

// RemoveNeighbor deletes a neighbor if present; a no-op otherwise.
func (s *State) RemoveNeighbor(id packet.NodeID) {
	delete(s.neighbors, id)
}

// Neighbor returns the sink for id, if known.
func (s *State) Neighbor(id packet.NodeID) (*packet.Sink, bool) {
	sink, ok := s.neighbors[id]
	return sink, ok
}

// IsNeighbor reports whether id is a known neighbor.
func (s *State) IsNeighbor(id packet.NodeID) bool {
	_, ok := s.neighbors[id]
	return ok
}

// NeighborIDsExcept returns every known neighbor other than exclude, sorted
// for deterministic iteration (flood spreading needs only fan-out, not a
// specific order, but a stable order keeps behavior reproducible in tests).
func (s *State) NeighborIDsExcept(exclude packet.NodeID) []packet.NodeID {
	ids := make([]packet.NodeID, 0, len(s.neighbors))
	for id := range s.neighbors {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SeenFlood checks whether key has been seen before. If not, it records the
// key and returns false. If it has, it returns true. Entries are never
// evicted: seen_floods is monotonic for the drone's whole lifetime (see
// the design note on bounding this for a production deployment).
func (s *State) SeenFlood(key FloodKey) bool {
	if _, ok := s.seenFloods[key]; ok {
		return true
	}
	s.seenFloods[key] = struct{}{}
	return false
}

// TrySendToNeighbor attempts a non-blocking send to neighbor id's sink. On
// failure — unknown neighbor, or a send that didn't go through — the
// neighbor is removed (self-heal) and false is returned.
func (s *State) TrySendToNeighbor(id packet.NodeID, pkt *packet.Packet) bool {
	sink, ok := s.neighbors[id]
	if !ok {
		return false
	}
	if sink.TrySend(pkt) {
		return true
	}
	delete(s.neighbors, id)
	s.log.Warn("neighbor unreachable; removed from neighbor table", "neighbor", id)
	return false
}

// EmitEvent attempts a non-blocking send to the controller's event channel.
// Failure is logged, never propagated — per the spec, a down controller
// channel never interrupts the drone's own processing.
func (s *State) EmitEvent(ev packet.Event) bool {
	if s.controllerSend == nil {
		return false
	}
	if s.controllerSend.TrySend(ev) {
		return true
	}
	s.log.Warn("controller event channel unavailable; dropping event", "event", ev)
	return false
}
