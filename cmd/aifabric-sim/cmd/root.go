package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is the root Cobra command invoked from main. Grounded on
// armadactl's cmd/root.go: one constructor returning the tree, every
// subcommand registered via AddCommand rather than package-level init
// side effects.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aifabric-sim",
		Short: "aifabric-sim runs a discrete-event simulation of an AI-fabric scalable unit.",
	}
	root.AddCommand(runCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure, matching
// spec.md §6's entry-point contract: a config or invariant failure is
// reported and the process exits with a non-zero status.
func Execute() {
	if err := RootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
