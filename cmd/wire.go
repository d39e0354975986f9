package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/labpulse/internal/config"
	"github.com/naka-gawa/labpulse/internal/gateway"
	"github.com/naka-gawa/labpulse/internal/store"
	"github.com/naka-gawa/labpulse/internal/usecase"
)

// newRunner injects dependencies: GitHub extractor, commit transformer and SQLite loader,
// composed into a pipeline and wrapped by the retry policy.
func newRunner(cfg *config.Config, logger zerolog.Logger, attempts uint) (*usecase.Runner, error) {
	githubGateway, err := gateway.NewGitHubGateway(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	loader := store.NewSQLiteStore(cfg.DBPath, logger)
	pipeline := usecase.NewPipeline(githubGateway, usecase.CommitTransformer{}, loader, logger)

	return usecase.NewRunner(pipeline, cfg.Lookback, usecase.RetryPolicy{
		Attempts: attempts,
		Delay:    cfg.RetryDelay,
	}, logger), nil
}
