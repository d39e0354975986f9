package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/labpulse/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the extract, transform and load pipeline once",
	Long: `Runs the pipeline once for the window ending at the reference time (now by default).
A failed run is retried with the configured policy (3 attempts, 5 minutes apart by default).
The run result is printed as JSON on success; the process exits non-zero on failure.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, logger := setup(cmd, config.Load)

		reference := time.Now().UTC()
		if at, _ := cmd.Flags().GetString("at"); at != "" {
			parsed, err := time.Parse(time.RFC3339, at)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid --at value. Please use RFC 3339, e.g. 2025-01-02T00:00:00Z. Error: %v\n", err)
				os.Exit(1)
			}
			reference = parsed
		}

		attempts := cfg.RetryAttempts
		if noRetry, _ := cmd.Flags().GetBool("no-retry"); noRetry {
			attempts = 1
		}

		runner, err := newRunner(cfg, logger, attempts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

		result, err := runner.Run(ctx, reference)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal result to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("at", "", "Reference time of the run in RFC 3339 (default: now)")
	runCmd.Flags().Bool("no-retry", false, "Make a single attempt regardless of the retry policy")
}
