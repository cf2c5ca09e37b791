// Package routeopt implements the drone's opportunistic route-shortcut
// algorithm: given a path that starts at this drone, replace the tail with
// the shortest suffix reachable directly through a known neighbor.
//
// This corresponds to the reference implementation's optimize_route, which
// scans the path (excluding the head) in reverse for the first node that is
// a known neighbor — i.e. the rightmost such node in forward order — and
// splices the original head onto that node's suffix.
package routeopt

import "github.com/kabili207/dronemesh/drone/packet"

// Optimize returns the shortest strict suffix of path (excluding path[0])
// that begins at a node isNeighbor reports true for, with path[0] preserved
// as the new head. If no such node exists, or path has fewer than two
// hops, path is returned unchanged.
//
// Among candidate suffixes, Optimize picks the rightmost occurrence of a
// neighbor in path — the first match found scanning from the end — which
// maximizes how much of the path is skipped.
func Optimize(path []packet.NodeID, isNeighbor func(packet.NodeID) bool) []packet.NodeID {
	if len(path) < 2 {
		return path
	}
	for i := len(path) - 1; i >= 1; i-- {
		if isNeighbor(path[i]) {
			out := make([]packet.NodeID, 0, len(path)-i+1)
			out = append(out, path[0])
			out = append(out, path[i:]...)
			return out
		}
	}
	return path
}
