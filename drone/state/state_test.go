package state

import (
	"testing"

	"github.com/kabili207/dronemesh/drone/packet"
)

func newTestState(t *testing.T, pdr float64) *State {
	t.Helper()
	return New(Config{ID: 10, PDR: pdr})
}

func TestNewDefaultsRunningTrue(t *testing.T) {
	s := newTestState(t, 0)
	if !s.Running() {
		t.Error("a freshly constructed State should be running")
	}
}

func TestPDRClamping(t *testing.T) {
	cases := []struct {
		rate float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.5, 50},
		{1, 100},
		{2, 100},
	}
	for _, c := range cases {
		s := New(Config{ID: 1, PDR: c.rate})
		if got := s.PDR(); got != c.want {
			t.Errorf("PDR for rate %v = %d, want %d", c.rate, got, c.want)
		}
	}
}

func TestAddRemoveNeighborRoundTrip(t *testing.T) {
	s := newTestState(t, 0)
	sink, _ := packet.NewSink(1)

	s.AddNeighbor(5, sink)
	if !s.IsNeighbor(5) {
		t.Fatal("neighbor 5 should be present after AddNeighbor")
	}

	s.RemoveNeighbor(5)
	if s.IsNeighbor(5) {
		t.Error("neighbor 5 should be gone after RemoveNeighbor")
	}
}

func TestSeenFloodDedup(t *testing.T) {
	s := newTestState(t, 0)
	key := FloodKey{FloodID: 123, InitiatorID: 1}

	if s.SeenFlood(key) {
		t.Fatal("first sighting should report false (not seen before)")
	}
	if !s.SeenFlood(key) {
		t.Error("second sighting of the same key should report true")
	}
}

func TestTrySendToNeighborSelfHealsOnFailure(t *testing.T) {
	s := newTestState(t, 0)
	sink, _ := packet.NewSink(1)
	sink.Close()
	s.AddNeighbor(5, sink)

	if s.TrySendToNeighbor(5, &packet.Packet{}) {
		t.Fatal("send through a closed sink should fail")
	}
	if s.IsNeighbor(5) {
		t.Error("a neighbor whose send failed should be removed (self-heal)")
	}
}

func TestNeighborIDsExceptIsSortedAndExcludes(t *testing.T) {
	s := newTestState(t, 0)
	for _, id := range []packet.NodeID{3, 1, 2} {
		sink, _ := packet.NewSink(1)
		s.AddNeighbor(id, sink)
	}

	got := s.NeighborIDsExcept(2)
	want := []packet.NodeID{1, 3}
	if len(got) != len(want) {
		t.Fatalf("NeighborIDsExcept(2) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NeighborIDsExcept(2) = %v, want %v", got, want)
		}
	}
}

func TestEmitEventWithoutControllerSendReturnsFalse(t *testing.T) {
	s := newTestState(t, 0)
	if s.EmitEvent(packet.PacketSent{}) {
		t.Error("EmitEvent with no controller sink configured should return false")
	}
}
