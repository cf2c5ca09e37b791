package simnet

import (
	"testing"

	"github.com/kabili207/dronemesh/drone/packet"
)

func sampleTopology() Topology {
	return Topology{
		Nodes: []NodeSpec{
			{ID: 1, Kind: "client"},
			{ID: 10, Kind: "drone"},
			{ID: 20, Kind: "drone"},
			{ID: 2, Kind: "server"},
		},
		Links: []LinkSpec{
			{A: 1, B: 10},
			{A: 10, B: 20},
			{A: 20, B: 2},
		},
	}
}

func TestValidateAcceptsWellFormedTopology(t *testing.T) {
	topo := sampleTopology()
	if err := topo.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsDuplicateID(t *testing.T) {
	topo := sampleTopology()
	topo.Nodes = append(topo.Nodes, NodeSpec{ID: 10, Kind: "drone"})
	if err := topo.Validate(); err == nil {
		t.Error("Validate() should reject a duplicate node id")
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	topo := sampleTopology()
	topo.Nodes[0].Kind = "satellite"
	if err := topo.Validate(); err == nil {
		t.Error("Validate() should reject an unrecognized node kind")
	}
}

func TestValidateRejectsLinkToUnknownNode(t *testing.T) {
	topo := sampleTopology()
	topo.Links = append(topo.Links, LinkSpec{A: 10, B: 99})
	if err := topo.Validate(); err == nil {
		t.Error("Validate() should reject a link to an undeclared node")
	}
}

func TestValidateRejectsSelfLink(t *testing.T) {
	topo := sampleTopology()
	topo.Links = append(topo.Links, LinkSpec{A: 10, B: 10})
	if err := topo.Validate(); err == nil {
		t.Error("Validate() should reject a self-link")
	}
}

func TestDronesFiltersByKind(t *testing.T) {
	topo := sampleTopology()
	drones := topo.Drones()
	if len(drones) != 2 {
		t.Fatalf("Drones() returned %d entries, want 2", len(drones))
	}
	for _, d := range drones {
		if d.ID != 10 && d.ID != 20 {
			t.Errorf("unexpected drone id %d in Drones()", d.ID)
		}
	}
}

func TestNeighborsOfFindsBothLinkDirections(t *testing.T) {
	topo := sampleTopology()
	got := topo.NeighborsOf(10)
	want := map[packet.NodeID]bool{1: true, 20: true}
	if len(got) != len(want) {
		t.Fatalf("NeighborsOf(10) = %v, want two entries", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("NeighborsOf(10) contains unexpected id %d", id)
		}
	}
}

func TestLoadTopologyMissingFile(t *testing.T) {
	if _, err := LoadTopology("/nonexistent/path/topology.yaml"); err == nil {
		t.Error("LoadTopology should error on a missing file")
	}
}
