package flood

import (
	"testing"

	"github.com/kabili207/dronemesh/drone/packet"
	"github.com/kabili207/dronemesh/drone/state"
)

func newNeighbor(t *testing.T, st *state.State, id packet.NodeID, buffer int) <-chan *packet.Packet {
	t.Helper()
	sink, recv := packet.NewSink(buffer)
	st.AddNeighbor(id, sink)
	return recv
}

func TestHandleFloodRequestSpreadsToOtherNeighbors(t *testing.T) {
	eventSink, eventRecv := packet.NewEventSink(8)
	st := state.New(state.Config{ID: 10, ControllerSend: eventSink})
	senderRecv := newNeighbor(t, st, 1, 1)
	neighbor2 := newNeighbor(t, st, 2, 1)
	neighbor3 := newNeighbor(t, st, 3, 1)

	pkt := &packet.Packet{SessionID: 99}
	fr := &packet.FloodRequest{
		FloodID:     7,
		InitiatorID: 1,
		PathTrace:   []packet.PathEntry{{Node: 1, Kind: packet.NodeClient}},
	}

	New(st, Config{}).HandleFloodRequest(pkt, fr)

	select {
	case <-senderRecv:
		t.Error("flood should not be re-sent back to the neighbor it arrived from")
	default:
	}

	for _, recv := range []<-chan *packet.Packet{neighbor2, neighbor3} {
		select {
		case got := <-recv:
			out, ok := got.Payload.(*packet.FloodRequest)
			if !ok {
				t.Fatalf("payload = %T, want *packet.FloodRequest", got.Payload)
			}
			if len(out.PathTrace) != 2 || out.PathTrace[1].Node != 10 {
				t.Errorf("path trace = %+v, want this drone appended", out.PathTrace)
			}
		default:
			t.Fatal("neighbor should have received the spread flood request")
		}
	}

	for i := 0; i < 2; i++ {
		expectEventType[packet.PacketSent](t, eventRecv)
	}
}

func TestHandleFloodRequestRespondsOnDedup(t *testing.T) {
	eventSink, eventRecv := packet.NewEventSink(8)
	st := state.New(state.Config{ID: 10, ControllerSend: eventSink})
	key := state.FloodKey{FloodID: 7, InitiatorID: 1}
	st.SeenFlood(key) // mark as already seen

	senderRecv := newNeighbor(t, st, 1, 1)

	pkt := &packet.Packet{SessionID: 99}
	fr := &packet.FloodRequest{
		FloodID:     7,
		InitiatorID: 1,
		PathTrace:   []packet.PathEntry{{Node: 1, Kind: packet.NodeClient}},
	}

	New(st, Config{}).HandleFloodRequest(pkt, fr)

	select {
	case got := <-senderRecv:
		resp, ok := got.Payload.(*packet.FloodResponse)
		if !ok {
			t.Fatalf("payload = %T, want *packet.FloodResponse", got.Payload)
		}
		if resp.FloodID != 7 {
			t.Errorf("FloodID = %d, want 7", resp.FloodID)
		}
		wantHops := []packet.NodeID{10, 1}
		if len(got.Routing.Hops) != len(wantHops) || got.Routing.Hops[0] != wantHops[0] || got.Routing.Hops[1] != wantHops[1] {
			t.Errorf("hops = %v, want %v", got.Routing.Hops, wantHops)
		}
	default:
		t.Fatal("sender should have received a flood response for the already-seen flood")
	}
	expectEventType[packet.PacketSent](t, eventRecv)
}

func TestHandleFloodRequestDegeneratesToResponseWithNoOtherNeighbors(t *testing.T) {
	eventSink, eventRecv := packet.NewEventSink(8)
	st := state.New(state.Config{ID: 10, ControllerSend: eventSink})
	senderRecv := newNeighbor(t, st, 1, 1)

	pkt := &packet.Packet{SessionID: 99}
	fr := &packet.FloodRequest{
		FloodID:     7,
		InitiatorID: 1,
		PathTrace:   []packet.PathEntry{{Node: 1, Kind: packet.NodeClient}},
	}

	New(st, Config{}).HandleFloodRequest(pkt, fr)

	select {
	case got := <-senderRecv:
		if _, ok := got.Payload.(*packet.FloodResponse); !ok {
			t.Fatalf("payload = %T, want *packet.FloodResponse", got.Payload)
		}
	default:
		t.Fatal("a drone with no other neighbors should fold the flood straight back into a response")
	}
	expectEventType[packet.PacketSent](t, eventRecv)
}

func TestSpreadDropsUnreachableNeighborWithoutControllerShortcut(t *testing.T) {
	eventSink, eventRecv := packet.NewEventSink(8)
	st := state.New(state.Config{ID: 10, ControllerSend: eventSink})
	senderRecv := newNeighbor(t, st, 1, 1)
	neighbor2 := newNeighbor(t, st, 2, 1)

	deadSink, _ := packet.NewSink(1)
	deadSink.Close()
	st.AddNeighbor(3, deadSink)

	pkt := &packet.Packet{SessionID: 99}
	fr := &packet.FloodRequest{
		FloodID:     7,
		InitiatorID: 1,
		PathTrace:   []packet.PathEntry{{Node: 1, Kind: packet.NodeClient}},
	}

	New(st, Config{}).HandleFloodRequest(pkt, fr)

	select {
	case <-senderRecv:
		t.Error("flood should not be re-sent back to the neighbor it arrived from")
	default:
	}

	select {
	case <-neighbor2:
	default:
		t.Fatal("the reachable neighbor should still receive the spread flood request")
	}

	if st.IsNeighbor(3) {
		t.Error("an unreachable neighbor should be dropped from the table by the failed send")
	}

	// Exactly one PacketSent (for neighbor 2): the failed send to neighbor 3
	// raises no ControllerShortcut, since flood fan-out has no such fallback.
	expectEventType[packet.PacketSent](t, eventRecv)
	select {
	case ev := <-eventRecv:
		t.Fatalf("unexpected extra event %T after the single successful spread", ev)
	default:
	}
}

func TestHandleFloodRequestDroppedWhileNotRunning(t *testing.T) {
	st := state.New(state.Config{ID: 10})
	st.SetRunning(false)
	recv := newNeighbor(t, st, 1, 1)

	pkt := &packet.Packet{SessionID: 99}
	fr := &packet.FloodRequest{FloodID: 7, InitiatorID: 1}

	New(st, Config{}).HandleFloodRequest(pkt, fr)

	select {
	case <-recv:
		t.Error("a draining drone should not process flood requests at all")
	default:
	}
}

func expectEventType[T packet.Event](t *testing.T, recv <-chan packet.Event) T {
	t.Helper()
	select {
	case ev := <-recv:
		typed, ok := ev.(T)
		if !ok {
			t.Fatalf("event = %T, want %T", ev, *new(T))
		}
		return typed
	default:
		t.Fatalf("expected an event of type %T, got none", *new(T))
		var zero T
		return zero
	}
}
