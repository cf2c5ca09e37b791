// Package hunt implements the optional "hunt mode" side channel: reporting
// a sentinel-tagged event to the controller when this drone observes a
// dropped-type Nack transiting it, so the controller can identify
// persistently lossy neighbors.
//
// This corresponds to the reference implementation's hunt.rs, which
// disguises a "kill" report as a zero-length MsgFragment. The reference
// implementation supports three encodings (NormalShot, LongShot, EMPBlast);
// the spec this module implements describes only the NormalShot shape, so
// that is ShotKind's default and the only one the drone's own Nack-transit
// hook uses. The richer variants are kept reachable for callers that want
// them explicitly.
package hunt

import (
	"fmt"

	"github.com/kabili207/dronemesh/drone/packet"
	"github.com/kabili207/dronemesh/drone/state"
)

// ShotKind selects the sentinel payload encoding.
type ShotKind uint8

const (
	// NormalShot is the canonical encoding: data[0]=self.id, data[1]=target.
	NormalShot ShotKind = iota
	// LongShot encodes 'l' in data[0] and a shot range in data[1], in place
	// of the self id and target.
	LongShot
	// EMPBlast carries no target at all.
	EMPBlast
)

// SentinelLength is the opaque marker (PACKET_CONST) carried in a hunt
// packet's Length field, distinguishing it from a real fragment.
const SentinelLength uint16 = 0xFFFF

// Ghost emits a PacketSent event to the controller carrying a sentinel
// MsgFragment. targetID is the node whose traffic is being dropped — for
// the drone's own Nack-transit hook this is hops[0] of the dropped-Nack
// packet. shotRange is only meaningful for ShotKind LongShot.
//
// Ghost returns an error if hunt mode is off or the controller's event
// channel is unavailable; it never touches forwarding state.
func Ghost(st *state.State, targetID packet.NodeID, kind ShotKind, shotRange uint8) error {
	if !st.HuntMode() {
		return fmt.Errorf("hunt: hunt mode is disabled for drone %d", st.ID())
	}

	var data [packet.FragmentDataSize]byte
	switch kind {
	case NormalShot:
		data[0] = byte(st.ID())
		data[1] = byte(targetID)
	case LongShot:
		data[0] = 'l'
		data[1] = shotRange
	case EMPBlast:
		data[0] = 'e'
	}

	pkt := &packet.Packet{
		Routing: packet.SourceRoutingHeader{Hops: nil, HopIndex: 0},
		Payload: &packet.MsgFragment{
			FragmentIndex:   0,
			TotalNFragments: 0,
			Length:          SentinelLength,
			Data:            data,
		},
	}

	if !st.EmitEvent(packet.PacketSent{Packet: pkt}) {
		return fmt.Errorf("hunt: controller event channel unavailable")
	}
	return nil
}
