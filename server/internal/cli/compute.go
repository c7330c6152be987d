package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/regionmetrics/pkg/types"
	"github.com/obsidianstack/regionmetrics/server/internal/aggregate"
	"github.com/obsidianstack/regionmetrics/server/internal/config"
	"github.com/obsidianstack/regionmetrics/server/internal/telemetry"
)

func newComputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute region summaries offline and print them as JSON",
		Long: `Compute the same response the HTTP endpoint would return, without a server.

Example:
  regionmetrics compute --dataset q-vercel-latency.json --regions us-east,eu-west --threshold 150`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsCfg := config.DatasetConfig{}
			dsCfg.Path, _ = cmd.Flags().GetString("dataset")
			dsCfg.Source, _ = cmd.Flags().GetString("source")
			dsCfg.Table, _ = cmd.Flags().GetString("table")
			regions, _ := cmd.Flags().GetStringSlice("regions")
			pretty, _ := cmd.Flags().GetBool("pretty")

			req := types.MetricsRequest{Regions: regions}
			if cmd.Flags().Changed("threshold") {
				th, _ := cmd.Flags().GetFloat64("threshold")
				req.ThresholdMs = &th
			}
			// Checked before the load so a bad request never reads the dataset; Handle re-checks.
			if err := aggregate.Validate(req); err != nil {
				return err
			}

			ds, err := telemetry.Load(cmd.Context(), dsCfg)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}

			resp, err := aggregate.New(ds).Handle(req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(resp)
		},
	}

	cmd.Flags().String("dataset", config.DefaultDatasetPath, "dataset file (JSON array or SQLite database)")
	cmd.Flags().String("source", config.SourceJSON, "dataset source: json or sqlite")
	cmd.Flags().String("table", config.DefaultTable, "SQLite table name")
	cmd.Flags().StringSlice("regions", nil, "comma-separated regions to summarise")
	cmd.Flags().Float64("threshold", 0, "latency breach threshold in milliseconds (required)")
	cmd.Flags().Bool("pretty", false, "indent the JSON output")
	return cmd
}
