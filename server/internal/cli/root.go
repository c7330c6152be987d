// Package cli wires the regionmetrics commands together with cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// NewRootCmd builds the command tree. A fresh tree per call keeps flag
// state isolated between tests.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "regionmetrics",
		Short: "Per-region latency and uptime statistics over a telemetry dataset",
		Long: `regionmetrics serves per-region latency/uptime summaries.

  Quick start:
    regionmetrics serve -c config.yaml
    regionmetrics compute --dataset q-vercel-latency.json --regions us-east,eu-west --threshold 150
    regionmetrics stats --url http://localhost:8080/metrics`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file path (defaults and env only when empty)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newComputeCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regionmetrics %s\n", version)
		},
	}
}
