package simnet

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/kabili207/dronemesh/drone/packet"
)

func twoDroneTopology() *Topology {
	return &Topology{
		Nodes: []NodeSpec{
			{ID: 10, Kind: "drone"},
			{ID: 20, Kind: "drone"},
		},
		Links: []LinkSpec{
			{A: 10, B: 20},
		},
	}
}

func TestBuildWiresOneDronePerNode(t *testing.T) {
	n, err := Build(twoDroneTopology(), Config{})
	if err != nil {
		t.Fatalf("Build() = %v, want nil", err)
	}
	if len(n.drones) != 2 {
		t.Fatalf("len(drones) = %d, want 2", len(n.drones))
	}
	if _, ok := n.drones[10]; !ok {
		t.Error("missing drone 10")
	}
	if _, ok := n.drones[20]; !ok {
		t.Error("missing drone 20")
	}
	if n.RunID.String() == "" {
		t.Error("RunID should be populated")
	}
}

func TestCommandErrorsForUnknownDrone(t *testing.T) {
	n, err := Build(twoDroneTopology(), Config{})
	if err != nil {
		t.Fatalf("Build() = %v, want nil", err)
	}
	if err := n.Command(99, packet.Crash{}); err == nil {
		t.Error("Command should error for a drone id not in the topology")
	}
}

func TestRunDrainsAllDronesOnCrash(t *testing.T) {
	n, err := Build(twoDroneTopology(), Config{})
	if err != nil {
		t.Fatalf("Build() = %v, want nil", err)
	}
	if err := n.Command(10, packet.Crash{}); err != nil {
		t.Fatalf("Command(10) = %v, want nil", err)
	}
	if err := n.Command(20, packet.Crash{}); err != nil {
		t.Fatalf("Command(20) = %v, want nil", err)
	}

	done := make(chan error, 1)
	go func() { done <- n.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil once every drone drains", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after every drone was crashed with no queued packets")
	}
}

type recordingSound struct {
	drops, nacks int
}

func (r *recordingSound) PlayDrop() { r.drops++ }
func (r *recordingSound) PlayNack() { r.nacks++ }

func TestRelayEventsDrivesSoundSinkOnDropAndNack(t *testing.T) {
	sound := &recordingSound{}
	n := &Network{
		events: make(chan TaggedEvent, 8),
		log:    slog.Default(),
		sound:  sound,
	}

	recv := make(chan packet.Event, 4)
	recv <- packet.PacketDropped{Packet: &packet.Packet{}}
	recv <- packet.PacketSent{Packet: &packet.Packet{Payload: &packet.Nack{}}}
	recv <- packet.PacketSent{Packet: &packet.Packet{Payload: &packet.Ack{}}}
	close(recv)

	n.relayEvents(1, recv)

	if sound.drops != 1 {
		t.Errorf("drops = %d, want 1", sound.drops)
	}
	if sound.nacks != 1 {
		t.Errorf("nacks = %d, want 1 (only the Nack-carrying PacketSent should ring)", sound.nacks)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	n, err := Build(twoDroneTopology(), Config{})
	if err != nil {
		t.Fatalf("Build() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
