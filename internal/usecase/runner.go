package usecase

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/labpulse/internal/domain"
	"github.com/naka-gawa/labpulse/internal/metrics"
)

// StageRunner is a single attempt of the pipeline over a fixed window.
type StageRunner interface {
	Run(ctx context.Context, windowStart time.Time) (*domain.RunResult, error)
}

// RetryPolicy decides how often a failed run is attempted again.
type RetryPolicy struct {
	// Attempts includes the first try.
	Attempts uint
	Delay    time.Duration
}

// Runner is what a scheduler calls once per period. It fixes the window from the
// reference time and re-runs the whole pipeline on failure, reusing that window.
type Runner struct {
	pipeline StageRunner
	lookback time.Duration
	policy   RetryPolicy
	logger   zerolog.Logger
	timer    retry.Timer
}

// NewRunner creates a new Runner instance.
func NewRunner(pipeline StageRunner, lookback time.Duration, policy RetryPolicy, logger zerolog.Logger) *Runner {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	return &Runner{
		pipeline: pipeline,
		lookback: lookback,
		policy:   policy,
		logger:   logger,
	}
}

// Run executes the run anchored at reference. After the last failed attempt the
// error of that attempt is returned unchanged, so domain.KindOf still applies.
func (r *Runner) Run(ctx context.Context, reference time.Time) (*domain.RunResult, error) {
	runID := uuid.NewString()
	windowStart := reference.Add(-r.lookback).UTC()
	logger := r.logger.With().
		Str("run_id", runID).
		Time("window_start", windowStart).
		Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Msg("Starting pipeline run...")

	var (
		result  *domain.RunResult
		attempt uint
	)
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(r.policy.Attempts),
		retry.Delay(r.policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= r.policy.Attempts {
				return
			}
			logger.Warn().Err(err).
				Str("kind", domain.KindOf(err)).
				Uint("attempt", n+1).
				Dur("delay", r.policy.Delay).
				Msg("Pipeline attempt failed, retrying...")
		}),
	}
	if r.timer != nil {
		opts = append(opts, retry.WithTimer(r.timer))
	}

	err := retry.Do(func() error {
		attempt++
		res, err := r.pipeline.Run(ctx, windowStart)
		metrics.RecordAttempt(domain.KindOf(err))
		if err != nil {
			return err
		}
		result = res
		return nil
	}, opts...)

	if err != nil {
		kind := domain.KindOf(err)
		metrics.RecordRun(kind, time.Now())
		logger.Error().Err(err).
			Str("kind", kind).
			Uint("attempts", attempt).
			Msg("Pipeline run failed.")
		return nil, err
	}

	result.RunID = runID
	result.Attempts = int(attempt)
	metrics.RecordRun("", time.Now())
	logger.Info().
		Int("extracted", result.Extracted).
		Int("written", result.Written).
		Uint("attempts", attempt).
		Msgf("Successfully loaded %d commits.", result.Written)
	return result, nil
}
