package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/labpulse/internal/config"
	"github.com/naka-gawa/labpulse/internal/store"
	"github.com/naka-gawa/labpulse/internal/usecase"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarises the stored activity log per author",
	Long:  `Reads the lab_activity table and prints commit counts and commits-per-active-day statistics for every author.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, logger := setup(cmd, config.LoadStore)

		aggregator := usecase.NewAggregator(store.NewSQLiteStore(cfg.DBPath, logger), logger)
		results, err := aggregator.Aggregate(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to aggregate activity: %v\n", err)
			os.Exit(1)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			// Marshal the results into a pretty-printed JSON string.
			jsonData, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(jsonData))
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AUTHOR\tCOMMITS\tACTIVE DAYS\tMEAN/DAY\tMEDIAN/DAY\tP90/DAY\tFIRST\tLAST")
		for _, s := range results {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.2f\t%.0f\t%s\t%s\n",
				s.Author, s.Commits, s.ActiveDays, s.MeanPerDay, s.MedianPerDay, s.P90PerDay, s.FirstActivity, s.LastActivity)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
}
