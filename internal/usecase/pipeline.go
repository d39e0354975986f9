// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/labpulse/internal/domain"
	"github.com/naka-gawa/labpulse/internal/gateway"
	"github.com/naka-gawa/labpulse/internal/metrics"
)

// Loader appends normalized records to the activity log and reports how many rows it wrote.
type Loader interface {
	Load(ctx context.Context, records []domain.NormalizedRecord) (int, error)
}

// Pipeline runs extract, transform and load in strict sequence.
// A failing stage stops the run; later stages are never invoked.
type Pipeline struct {
	extractor   gateway.Extractor
	transformer Transformer
	loader      Loader
	logger      zerolog.Logger
}

// NewPipeline creates a new Pipeline instance.
func NewPipeline(extractor gateway.Extractor, transformer Transformer, loader Loader, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		logger:      logger,
	}
}

// Run performs a single attempt over the window starting at windowStart.
// Loggers carried by ctx (see zerolog.Ctx) take precedence over the pipeline's own.
func (p *Pipeline) Run(ctx context.Context, windowStart time.Time) (*domain.RunResult, error) {
	logger := p.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}

	logger.Debug().Msg("[1/3] Extracting commits...")
	raw, err := p.extractor.Extract(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	metrics.RecordStage(metrics.StageExtract, len(raw))

	logger.Debug().Int("records", len(raw)).Msg("[2/3] Transforming commits...")
	normalized, err := p.transformer.Transform(raw)
	if err != nil {
		return nil, err
	}
	metrics.RecordStage(metrics.StageTransform, len(normalized))

	logger.Debug().Int("records", len(normalized)).Msg("[3/3] Loading commits...")
	written, err := p.loader.Load(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if written != len(normalized) {
		logger.Warn().Int("written", written).Int("normalized", len(normalized)).
			Msg("loader wrote a different number of rows than it was given")
	}
	metrics.RecordStage(metrics.StageLoad, written)

	return &domain.RunResult{
		WindowStart: windowStart,
		Extracted:   len(raw),
		Written:     written,
	}, nil
}
