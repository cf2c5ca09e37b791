// Package simnet is a reference harness for exercising drone.Drone: it
// loads a network topology from YAML, wires each drone's neighbor sinks
// according to the declared links, and fans every drone's controller
// events into one observable stream tagged with a run ID.
//
// This is the external "simulation controller" collaborator that drives a
// drone network from outside the forwarding core — simnet is one reference
// implementation of that collaborator, not part of the forwarding core
// itself.
package simnet

import (
	"fmt"
	"os"

	"github.com/kabili207/dronemesh/drone/packet"
	"gopkg.in/yaml.v3"
)

// Topology is the on-disk network description: a set of nodes and the
// undirected links between them.
type Topology struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Links []LinkSpec `yaml:"links"`
}

// NodeSpec describes one node. Only Kind "drone" is runnable by this
// package; "client" and "server" entries are recorded for topology
// validation (every link endpoint must resolve to a known node) but are
// otherwise the concern of external collaborators this package does not
// implement.
type NodeSpec struct {
	ID   packet.NodeID `yaml:"id"`
	Kind string        `yaml:"kind"`

	PDR              float64 `yaml:"pdr"`
	OptimizedRouting bool    `yaml:"optimized_routing"`
	HuntMode         bool    `yaml:"hunt_mode"`
}

// LinkSpec is one undirected link between two nodes. simnet installs each
// endpoint's inbox packet.Sink as a neighbor of the other endpoint (where
// that endpoint is a drone).
type LinkSpec struct {
	A packet.NodeID `yaml:"a"`
	B packet.NodeID `yaml:"b"`
}

// LoadTopology reads and validates a topology file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simnet: read topology: %w", err)
	}
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("simnet: parse topology: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Validate checks internal consistency: unique node IDs, known node kinds,
// and links that only reference declared nodes.
func (t *Topology) Validate() error {
	seen := make(map[packet.NodeID]NodeSpec, len(t.Nodes))
	for _, n := range t.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("simnet: duplicate node id %d", n.ID)
		}
		switch n.Kind {
		case "drone", "client", "server":
		default:
			return fmt.Errorf("simnet: node %d has unknown kind %q", n.ID, n.Kind)
		}
		seen[n.ID] = n
	}
	for _, l := range t.Links {
		if _, ok := seen[l.A]; !ok {
			return fmt.Errorf("simnet: link references unknown node %d", l.A)
		}
		if _, ok := seen[l.B]; !ok {
			return fmt.Errorf("simnet: link references unknown node %d", l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("simnet: self-link on node %d", l.A)
		}
	}
	return nil
}

// Drones returns the subset of Nodes with Kind "drone".
func (t *Topology) Drones() []NodeSpec {
	out := make([]NodeSpec, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.Kind == "drone" {
			out = append(out, n)
		}
	}
	return out
}

// NeighborsOf returns every node ID linked to id, regardless of kind.
func (t *Topology) NeighborsOf(id packet.NodeID) []packet.NodeID {
	var out []packet.NodeID
	for _, l := range t.Links {
		switch id {
		case l.A:
			out = append(out, l.B)
		case l.B:
			out = append(out, l.A)
		}
	}
	return out
}
