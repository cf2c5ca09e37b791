package packet

// Command is the closed set of controller-issued commands a drone accepts.
type Command interface {
	command()
}

// Crash tells the drone to stop accepting new work. The drone drains its
// inbound packet queue before exiting the event loop.
type Crash struct{}

func (Crash) command() {}

// AddSender installs or overwrites the outbound sink for a neighbor.
type AddSender struct {
	Node NodeID
	Sink *Sink
}

func (AddSender) command() {}

// RemoveSender deletes a neighbor, if present. A no-op otherwise.
type RemoveSender struct {
	Node NodeID
}

func (RemoveSender) command() {}

// SetPacketDropRate updates the drone's PDR. Rate is a fraction in [0,1];
// the drone stores round(Rate*100) clamped to [0,100].
type SetPacketDropRate struct {
	Rate float64
}

func (SetPacketDropRate) command() {}
