// Package scheduler fires the pipeline runner on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is invoked once per tick with the wall-clock time of the tick.
type Job func(ctx context.Context, reference time.Time)

// Scheduler runs at most one Job at a time. A tick that arrives while the previous
// run is still going is skipped, and missed ticks are never replayed.
type Scheduler struct {
	schedule cron.Schedule
	job      Job
	logger   zerolog.Logger
	now      func() time.Time
}

// New parses spec (five fields or a descriptor such as @daily).
func New(spec string, job Job, logger zerolog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{
		schedule: schedule,
		job:      job,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}, nil
}

// Next reports when the schedule fires after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Trigger runs the job once, synchronously.
func (s *Scheduler) Trigger(ctx context.Context) {
	s.job(ctx, s.now().UTC())
}

// Run blocks until ctx is done, then waits for an in-flight job to return.
func (s *Scheduler) Run(ctx context.Context) error {
	adapter := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.Trigger(ctx) }))

	s.logger.Info().Time("next", s.Next(s.now().UTC())).Msg("Scheduler started.")
	c.Start()
	<-ctx.Done()

	s.logger.Info().Msg("Scheduler stopping, waiting for running job...")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
