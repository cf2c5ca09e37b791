// Package packet defines the data model shared by every drone component:
// node identifiers, the source-routing header, and the closed set of
// packet payload kinds a drone forwards.
//
// This corresponds to wg_2024::network and wg_2024::packet in the Rust
// reference implementation these types model.
package packet

import "fmt"

// NodeID identifies a node (drone, client, or server) in the mesh overlay.
type NodeID uint8

// NodeKind distinguishes the role a node played when it appended itself to
// a flood's path trace.
type NodeKind uint8

const (
	NodeClient NodeKind = iota
	NodeServer
	NodeDrone
)

func (k NodeKind) String() string {
	switch k {
	case NodeClient:
		return "client"
	case NodeServer:
		return "server"
	case NodeDrone:
		return "drone"
	default:
		return "unknown"
	}
}

// FragmentDataSize is the fixed payload capacity of a MsgFragment.
const FragmentDataSize = 128

// SourceRoutingHeader carries the sender-supplied hop list and a cursor
// pointing at the node the packet currently resides at. The packet resides
// at Hops[HopIndex]; forwarding advances HopIndex by one.
type SourceRoutingHeader struct {
	Hops     []NodeID
	HopIndex int
}

// CurrentHop returns the node the packet resides at, and whether HopIndex
// is within bounds.
func (h SourceRoutingHeader) CurrentHop() (NodeID, bool) {
	if h.HopIndex < 0 || h.HopIndex >= len(h.Hops) {
		return 0, false
	}
	return h.Hops[h.HopIndex], true
}

func (h SourceRoutingHeader) clone() SourceRoutingHeader {
	hops := make([]NodeID, len(h.Hops))
	copy(hops, h.Hops)
	return SourceRoutingHeader{Hops: hops, HopIndex: h.HopIndex}
}

// NackKind enumerates the reasons a Nack can be raised.
type NackKind uint8

const (
	NackDropped NackKind = iota
	NackDestinationIsDrone
	NackUnexpectedRecipient
	NackErrorInRouting
)

func (k NackKind) String() string {
	switch k {
	case NackDropped:
		return "dropped"
	case NackDestinationIsDrone:
		return "destination_is_drone"
	case NackUnexpectedRecipient:
		return "unexpected_recipient"
	case NackErrorInRouting:
		return "error_in_routing"
	default:
		return "unknown"
	}
}

// Payload is the closed union of packet payload kinds a drone understands.
// Only the types in this package implement it; dispatch on Payload is
// always a total type switch, never open extension.
type Payload interface {
	payload()
}

// MsgFragment is user data. It is the only droppable payload kind.
type MsgFragment struct {
	FragmentIndex   uint64
	TotalNFragments uint64
	Length          uint16
	Data            [FragmentDataSize]byte
}

func (*MsgFragment) payload() {}

// Ack is a positive acknowledgement. Never dropped by PDR policy.
type Ack struct {
	FragmentIndex uint64
}

func (*Ack) payload() {}

// Nack is a negative acknowledgement. Node is populated for
// NackUnexpectedRecipient and NackErrorInRouting; it is unused otherwise.
type Nack struct {
	FragmentIndex uint64
	Kind          NackKind
	Node          NodeID
}

func (*Nack) payload() {}

// PathEntry is one hop recorded in a flood's path trace.
type PathEntry struct {
	Node NodeID
	Kind NodeKind
}

// FloodRequest propagates a network-discovery flood.
type FloodRequest struct {
	FloodID     uint64
	InitiatorID NodeID
	PathTrace   []PathEntry
}

func (*FloodRequest) payload() {}

// FloodResponse carries a completed flood's path trace back toward its
// initiator. Never dropped by PDR policy.
type FloodResponse struct {
	FloodID   uint64
	PathTrace []PathEntry
}

func (*FloodResponse) payload() {}

// Packet is the unit of forwarding: a payload plus the routing header and
// opaque session correlator that travel with it.
type Packet struct {
	Routing   SourceRoutingHeader
	SessionID uint64
	Payload   Payload
}

// Clone deep-copies the hop list and, for flood payloads, the path trace, so
// a caller can mutate the copy (e.g. roll HopIndex back for a
// PacketDropped event) without disturbing a packet still in flight
// elsewhere.
func (p *Packet) Clone() *Packet {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Routing = p.Routing.clone()
	switch payload := p.Payload.(type) {
	case *FloodRequest:
		trace := make([]PathEntry, len(payload.PathTrace))
		copy(trace, payload.PathTrace)
		clone.Payload = &FloodRequest{FloodID: payload.FloodID, InitiatorID: payload.InitiatorID, PathTrace: trace}
	case *FloodResponse:
		trace := make([]PathEntry, len(payload.PathTrace))
		copy(trace, payload.PathTrace)
		clone.Payload = &FloodResponse{FloodID: payload.FloodID, PathTrace: trace}
	}
	return &clone
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{session=%d, hop_index=%d, hops=%v, payload=%T}",
		p.SessionID, p.Routing.HopIndex, p.Routing.Hops, p.Payload)
}
