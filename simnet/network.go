package simnet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/kabili207/dronemesh/drone"
	"github.com/kabili207/dronemesh/drone/metrics"
	"github.com/kabili207/dronemesh/drone/packet"
)

const (
	packetChanBuffer = 64
	eventChanBuffer  = 256
)

// SoundSink is the documented seam for an optional audio side-output on
// drop/nack activity, corresponding to the reference implementation's
// sounds.rs desktop simulator cue. simnet ships no real backend for it —
// wiring one (a terminal bell, a desktop audio library) is left to an
// external collaborator; a nil SoundSink (the default) disables the calls
// entirely rather than requiring a no-op implementation at every call site.
type SoundSink interface {
	PlayDrop()
	PlayNack()
}

// TaggedEvent pairs a drone's reported event with the node that reported
// it, since every drone's EventSink in a Network feeds one shared stream.
type TaggedEvent struct {
	Node  packet.NodeID
	Event packet.Event
}

// Network is a running collection of wired-together drones, built from a
// Topology. Every Network run is tagged with a fresh UUID so logs from
// concurrent runs (e.g. in tests) don't get confused with each other.
type Network struct {
	RunID uuid.UUID

	topo   *Topology
	drones map[packet.NodeID]*drone.Drone
	cmds   map[packet.NodeID]chan packet.Command

	events chan TaggedEvent

	log   *slog.Logger
	sound SoundSink
}

// Config configures a Network build.
type Config struct {
	Metrics *metrics.Vectors
	Logger  *slog.Logger
	// Sound is an optional side-output for drop/nack activity. Nil (the
	// default) disables it.
	Sound SoundSink
}

// Build wires a Network from topo: every drone node gets a Drone, every
// node gets one inbox sink that each linked drone installs as its neighbor
// sink for that node, and every drone's
// controller events are tagged with its node ID and funneled into one
// channel drained via Events.
func Build(topo *Topology, cfg Config) (*Network, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New()
	logger = logger.With("run_id", runID.String())

	n := &Network{
		RunID:  runID,
		topo:   topo,
		drones: make(map[packet.NodeID]*drone.Drone),
		cmds:   make(map[packet.NodeID]chan packet.Command),
		events: make(chan TaggedEvent, eventChanBuffer),
		log:    logger,
		sound:  cfg.Sound,
	}

	droneSpecs := topo.Drones()
	neighborSinks := make(map[packet.NodeID]map[packet.NodeID]*packet.Sink, len(droneSpecs))
	inboxes := make(map[packet.NodeID]*packet.Sink, len(topo.Nodes))
	recvs := make(map[packet.NodeID]<-chan *packet.Packet, len(droneSpecs))
	for _, spec := range droneSpecs {
		neighborSinks[spec.ID] = make(map[packet.NodeID]*packet.Sink)
	}
	// Every node gets an inbox, not just drones: a drone's last hop may be
	// a client or server, which this package never runs an event loop for
	// but still needs an addressable sink to forward the final hop to.
	for _, node := range topo.Nodes {
		sink, recv := packet.NewSink(packetChanBuffer)
		inboxes[node.ID] = sink
		if node.Kind == "drone" {
			recvs[node.ID] = recv
		}
	}

	for _, link := range topo.Links {
		n.wireLink(link, neighborSinks, inboxes)
	}

	for _, spec := range droneSpecs {
		cmdCh := make(chan packet.Command, eventChanBuffer)
		n.cmds[spec.ID] = cmdCh

		eventSink, eventRecv := packet.NewEventSink(eventChanBuffer)
		go n.relayEvents(spec.ID, eventRecv)

		d := drone.New(drone.Config{
			ID:               spec.ID,
			ControllerSend:   eventSink,
			ControllerRecv:   cmdCh,
			PacketRecv:       recvs[spec.ID],
			PacketSend:       neighborSinks[spec.ID],
			PDR:              spec.PDR,
			OptimizedRouting: spec.OptimizedRouting,
			HuntMode:         spec.HuntMode,
			Metrics:          cfg.Metrics,
			Logger:           logger,
		})
		n.drones[spec.ID] = d
	}

	return n, nil
}

// wireLink installs each of a link's two endpoints as a neighbor of the
// other. Only drone endpoints have an entry in neighborSinks; a link to a
// client or server still gets an inbox (so a drone can address it as a
// next hop) but simnet runs no event loop to drain it — that is the
// external collaborator's responsibility.
func (n *Network) wireLink(link LinkSpec, neighborSinks map[packet.NodeID]map[packet.NodeID]*packet.Sink, inboxes map[packet.NodeID]*packet.Sink) {
	aSink, aOK := inboxes[link.A]
	bSink, bOK := inboxes[link.B]
	if bOK {
		if dst, ok := neighborSinks[link.A]; ok {
			dst[link.B] = bSink
		}
	}
	if aOK {
		if dst, ok := neighborSinks[link.B]; ok {
			dst[link.A] = aSink
		}
	}
}

func (n *Network) relayEvents(id packet.NodeID, recv <-chan packet.Event) {
	for ev := range recv {
		select {
		case n.events <- TaggedEvent{Node: id, Event: ev}:
		default:
			n.log.Warn("event stream full, dropping event", "node", id)
		}
		if n.sound == nil {
			continue
		}
		switch sent := ev.(type) {
		case packet.PacketDropped:
			n.sound.PlayDrop()
		case packet.PacketSent:
			if _, ok := sent.Packet.Payload.(*packet.Nack); ok {
				n.sound.PlayNack()
			}
		}
	}
}

// Events returns the channel every drone's controller events are tagged
// and multiplexed onto.
func (n *Network) Events() <-chan TaggedEvent { return n.events }

// Command sends a command to one drone's controller channel.
func (n *Network) Command(id packet.NodeID, cmd packet.Command) error {
	ch, ok := n.cmds[id]
	if !ok {
		return fmt.Errorf("simnet: no such drone %d", id)
	}
	ch <- cmd
	return nil
}

// Run starts every drone's event loop and blocks until ctx is canceled or
// every drone has returned.
func (n *Network) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(n.drones))
	for id, d := range n.drones {
		wg.Add(1)
		go func(id packet.NodeID, d *drone.Drone) {
			defer wg.Done()
			if err := d.Run(ctx); err != nil && err != context.Canceled {
				errs <- fmt.Errorf("drone %d: %w", id, err)
			}
		}(id, d)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}
	return nil
}
