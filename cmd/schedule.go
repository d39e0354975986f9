package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/labpulse/internal/config"
	"github.com/naka-gawa/labpulse/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Runs the pipeline on a cron schedule until interrupted",
	Long: `Keeps running and fires the pipeline on LABPULSE_SCHEDULE (@daily by default).
Only one run is active at a time; ticks missed while a run is in progress are skipped.
Prometheus metrics are served on LABPULSE_METRICS_ADDR under /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, logger := setup(cmd, config.Load)

		runner, err := newRunner(cfg, logger, cfg.RetryAttempts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

		// Failures are already logged and counted by the runner; the next tick starts afresh.
		job := func(ctx context.Context, reference time.Time) {
			_, _ = runner.Run(ctx, reference)
		}
		sched, err := scheduler.New(cfg.Schedule, job, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		eg, egCtx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics.")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})

		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})

		eg.Go(func() error {
			if now, _ := cmd.Flags().GetBool("now"); now {
				sched.Trigger(egCtx)
			}
			return sched.Run(egCtx)
		})

		if err := eg.Wait(); err != nil {
			logger.Error().Err(err).Msg("Scheduler exited with error.")
			os.Exit(1)
		}
		logger.Info().Msg("Scheduler stopped.")
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().Bool("now", false, "Run the pipeline once immediately before waiting for the first tick")
}
