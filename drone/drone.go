// Package drone assembles the forwarding engine, flood handler, and shared
// state into a runnable event loop: a drone is a single goroutine that
// drains its controller-command channel with priority over its inbound
// packet channel, for as long as it is running or still has packets
// queued to drain.
//
// This corresponds to the Rust reference implementation's Drone::run, which
// uses crossbeam_channel::select_biased! to give commands priority over
// packets. Go's select has no biased mode, so Run polls the command
// channel non-blockingly first and only then falls into a fair blocking
// select — the same effective priority, expressed the way
// github.com/kabili207/meshcore-go's device/router.Router event loop
// structures its own command-over-data priority.
package drone

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/kabili207/dronemesh/drone/flood"
	"github.com/kabili207/dronemesh/drone/forwarding"
	"github.com/kabili207/dronemesh/drone/metrics"
	"github.com/kabili207/dronemesh/drone/packet"
	"github.com/kabili207/dronemesh/drone/state"
)

// Config configures a Drone.
type Config struct {
	ID packet.NodeID

	ControllerSend *packet.EventSink
	ControllerRecv <-chan packet.Command
	PacketRecv     <-chan *packet.Packet
	PacketSend     map[packet.NodeID]*packet.Sink

	PDR              float64
	OptimizedRouting bool
	HuntMode         bool

	Metrics *metrics.Vectors
	Logger  *slog.Logger
}

// Drone owns one node's forwarding state and event loop.
type Drone struct {
	cfg    Config
	st     *state.State
	log    *slog.Logger
	rec    *metrics.Recorder
	engine *forwarding.Engine
	flood  *flood.Handler
}

// New constructs a Drone from cfg. The returned Drone does not start
// running until Run is called.
func New(cfg Config) *Drone {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("drone_id", cfg.ID)

	st := state.New(state.Config{
		ID:               cfg.ID,
		PDR:              cfg.PDR,
		Neighbors:        cfg.PacketSend,
		OptimizedRouting: cfg.OptimizedRouting,
		HuntMode:         cfg.HuntMode,
		ControllerSend:   cfg.ControllerSend,
		Logger:           logger,
	})

	rec := cfg.Metrics.For(strconv.Itoa(int(cfg.ID)))

	return &Drone{
		cfg:    cfg,
		st:     st,
		log:    logger,
		rec:    rec,
		engine: forwarding.New(st, forwarding.Config{Logger: logger, Metrics: rec}),
		flood:  flood.New(st, flood.Config{Logger: logger, Metrics: rec}),
	}
}

// ID returns the drone's node identity.
func (d *Drone) ID() packet.NodeID { return d.st.ID() }

// Run drives the event loop until ctx is canceled or the drone crashes and
// fully drains its inbound packet channel. It returns ctx.Err() on
// cancellation, nil otherwise.
func (d *Drone) Run(ctx context.Context) error {
	d.log.Info("drone starting")

	// Local, nil-able aliases: a closed channel is always ready to receive
	// its zero value, so polling d.cfg.ControllerRecv directly after it
	// closes would win the non-blocking poll on every iteration and starve
	// PacketRecv forever. Nilling the alias out once a channel closes
	// removes it from both selects (a nil channel is never ready), leaving
	// whichever channel is still live free to be serviced.
	cmdRecv := d.cfg.ControllerRecv
	pktRecv := d.cfg.PacketRecv

	for d.st.Running() || len(d.cfg.PacketRecv) > 0 {
		// Give controller commands priority with a non-blocking poll
		// before falling into the fair, blocking multi-way select.
		select {
		case cmd, ok := <-cmdRecv:
			if !ok {
				cmdRecv = nil
				continue
			}
			d.handleCommand(cmd)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			d.log.Info("drone stopping", "reason", ctx.Err())
			return ctx.Err()
		case cmd, ok := <-cmdRecv:
			if !ok {
				cmdRecv = nil
				continue
			}
			d.handleCommand(cmd)
		case pkt, ok := <-pktRecv:
			if !ok {
				// No more packets will ever arrive; a closed channel alone
				// does not stop the drone, which keeps serving commands
				// until a Crash or ctx cancellation.
				pktRecv = nil
				continue
			}
			d.handlePacket(pkt)
		}
	}
	d.log.Info("drone drained, exiting")
	return nil
}

// handlePacket routes an inbound packet to the flood handler or the
// forwarding engine depending on its payload kind. FloodRequest is the
// only kind the forwarding engine never sees directly.
func (d *Drone) handlePacket(pkt *packet.Packet) {
	if fr, ok := pkt.Payload.(*packet.FloodRequest); ok {
		d.flood.HandleFloodRequest(pkt, fr)
		return
	}
	d.engine.Forward(pkt, true)
}

// handleCommand applies a controller command to the drone's state.
func (d *Drone) handleCommand(cmd packet.Command) {
	switch c := cmd.(type) {
	case packet.Crash:
		d.log.Info("crash received, draining")
		d.st.SetRunning(false)
	case packet.AddSender:
		d.st.AddNeighbor(c.Node, c.Sink)
	case packet.RemoveSender:
		d.st.RemoveNeighbor(c.Node)
	case packet.SetPacketDropRate:
		d.st.SetPDR(c.Rate)
	default:
		d.log.Warn("unknown command", "command", cmd)
	}
}

