package cli

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/regionmetrics/server/internal/metrics"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show request and breach totals of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			totals, err := metrics.Scrape(ctx, &http.Client{}, url)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "REQUESTS\t%.0f\n", totals.Requests)
			fmt.Fprintf(w, "REGIONS FOUND\t%.0f\n", totals.RegionsFound)
			fmt.Fprintf(w, "REGIONS MISSING\t%.0f\n", totals.RegionsMissing)
			fmt.Fprintf(w, "BREACHES\t%.0f\n", totals.Breaches)
			fmt.Fprintf(w, "DATASET SAMPLES\t%.0f\n", totals.Samples)
			fmt.Fprintf(w, "DATASET REGIONS\t%.0f\n", totals.Regions)
			return w.Flush()
		},
	}

	cmd.Flags().String("url", "http://localhost:8080/metrics", "metrics endpoint of a running server")
	cmd.Flags().Duration("timeout", 5*time.Second, "scrape timeout")
	return cmd
}
