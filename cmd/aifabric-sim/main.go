// Command aifabric-sim runs one discrete-event simulation of an AI-fabric
// scalable unit from a YAML configuration and prints a structured metrics
// record. Grounded on armadactl's main.go: a thin entry point that defers
// entirely to a cmd subpackage's RootCmd/Execute.
package main

import (
	"github.com/aifabric/netsim/cmd/aifabric-sim/cmd"
)

func main() {
	cmd.Execute()
}
