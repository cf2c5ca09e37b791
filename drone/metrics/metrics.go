// Package metrics exposes Prometheus counters for drone forwarding
// activity. This corresponds to the pack's use of
// github.com/prometheus/client_golang for process instrumentation (see
// grimm-is-flywall and marmos91-dittofs), applied here to the forwarding
// engine and flood handler instead of to network-device or filesystem
// counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Vectors owns the counter families shared across every drone in a
// process. Create one per process (or per test) and bind a per-drone
// Recorder from it with For.
type Vectors struct {
	sent           *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	nackSent       *prometheus.CounterVec
	floodForwarded *prometheus.CounterVec
	shortcut       *prometheus.CounterVec
}

// NewVectors creates the counter families and registers them with reg.
// Pass prometheus.NewRegistry() for an isolated registry (tests, or a
// multi-tenant process) or prometheus.DefaultRegisterer for the global one.
func NewVectors(reg prometheus.Registerer) *Vectors {
	v := &Vectors{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_packets_sent_total",
			Help: "Packets successfully forwarded to a neighbor; constructed Nacks and re-broadcast FloodRequests are counted separately.",
		}, []string{"drone_id"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_packets_dropped_total",
			Help: "MsgFragments dropped by PDR policy.",
		}, []string{"drone_id"}),
		nackSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_nacks_sent_total",
			Help: "Nack packets constructed and handed directly to a neighbor; those sent via ControllerShortcut are counted as shortcuts.",
		}, []string{"drone_id"}),
		floodForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_floods_forwarded_total",
			Help: "FloodRequests re-broadcast to neighbors.",
		}, []string{"drone_id"}),
		shortcut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_controller_shortcuts_total",
			Help: "Non-droppable packets delivered via ControllerShortcut instead of a direct hop.",
		}, []string{"drone_id"}),
	}
	reg.MustRegister(v.sent, v.dropped, v.nackSent, v.floodForwarded, v.shortcut)
	return v
}

// For binds a Recorder to a specific drone ID. Safe to call on a nil
// Vectors (returns nil), so components can be built without metrics wired
// in at all.
func (v *Vectors) For(droneID string) *Recorder {
	if v == nil {
		return nil
	}
	return &Recorder{
		sent:           v.sent.WithLabelValues(droneID),
		dropped:        v.dropped.WithLabelValues(droneID),
		nackSent:       v.nackSent.WithLabelValues(droneID),
		floodForwarded: v.floodForwarded.WithLabelValues(droneID),
		shortcut:       v.shortcut.WithLabelValues(droneID),
	}
}

// Recorder is a drone's bound set of counters. Every method is a no-op on
// a nil receiver, so passing a nil *Recorder around never needs a guard at
// the call site.
type Recorder struct {
	sent           prometheus.Counter
	dropped        prometheus.Counter
	nackSent       prometheus.Counter
	floodForwarded prometheus.Counter
	shortcut       prometheus.Counter
}

func (r *Recorder) IncSent() {
	if r == nil {
		return
	}
	r.sent.Inc()
}

func (r *Recorder) IncDropped() {
	if r == nil {
		return
	}
	r.dropped.Inc()
}

func (r *Recorder) IncNackSent() {
	if r == nil {
		return
	}
	r.nackSent.Inc()
}

func (r *Recorder) IncFloodForwarded() {
	if r == nil {
		return
	}
	r.floodForwarded.Inc()
}

func (r *Recorder) IncShortcut() {
	if r == nil {
		return
	}
	r.shortcut.Inc()
}
