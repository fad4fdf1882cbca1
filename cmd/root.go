package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/pkg/profiling"
)

// NewRootCmd assembles the fleetview command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"fleetview",
		"Live dashboard for warehouse inventory robots",
	)
	rootCmd.Long = `fleetview keeps a live view of a warehouse robot fleet: robot positions
and battery on a zoomable floor map, recent inventory scans with stock
severity, and restock predictions. It also queries historical scan
discrepancies and bulk-imports inventory.`

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(rootCmd)
	rootCmd.PersistentPreRunE = profiler.PreRun
	rootCmd.PersistentPostRun = profiler.PostRun

	rootCmd.AddCommand(
		NewLoginCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
		NewLiveCmd(),
		NewImportCmd(),
		NewPredictCmd(),
		NewHistoryCmd(),
		NewLogsCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("fleetview"),
	)

	cli.ApplyStyledHelpRecursive(rootCmd)
	return rootCmd
}
