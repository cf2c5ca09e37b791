package packet

// Event is the closed set of events a drone reports to the controller.
type Event interface {
	event()
}

// PacketSent is emitted after a successful hop of any packet, and for Nack
// emissions (see the forwarding package's Nack-construction policy, which
// always emits PacketSent for a constructed Nack regardless of whether the
// hop itself succeeded).
type PacketSent struct {
	Packet *Packet
}

func (PacketSent) event() {}

// PacketDropped is emitted when a MsgFragment is PDR-dropped. The reported
// packet's HopIndex is the position of the reporting drone (pre-advance).
type PacketDropped struct {
	Packet *Packet
}

func (PacketDropped) event() {}

// ControllerShortcut asks the controller to deliver a non-droppable packet
// that this drone could not pass to its next hop, because the neighbor is
// unknown or its channel is gone.
type ControllerShortcut struct {
	Packet *Packet
}

func (ControllerShortcut) event() {}
