// Command simdrone runs a reference simulation of a mesh-overlay drone
// network from a YAML topology file, exposing Prometheus metrics over
// HTTP and logging every controller event until interrupted.
//
// github.com/kabili207/meshcore-go ships no cmd/ tree of its own (it is a
// library, not a daemon); this entrypoint follows marmos91-dittofs's
// cmd/dittofs Cobra+Viper CLI conventions instead, adapted to the drone
// domain.
package main

import (
	"os"

	"github.com/kabili207/dronemesh/cmd/simdrone/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
