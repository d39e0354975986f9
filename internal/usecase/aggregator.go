package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/naka-gawa/labpulse/internal/domain"
)

// ActivityReader reads back what the loader has appended.
type ActivityReader interface {
	List(ctx context.Context) ([]domain.NormalizedRecord, error)
}

// Aggregator summarises the activity log per author.
type Aggregator struct {
	reader ActivityReader
	logger zerolog.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(reader ActivityReader, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		reader: reader,
		logger: logger,
	}
}

// Aggregate reads every stored row and builds one summary per author, busiest first.
// Rows are counted as stored, so duplicates from overlapping windows count twice.
func (a *Aggregator) Aggregate(ctx context.Context) ([]*domain.AuthorSummary, error) {
	a.logger.Debug().Msg("Usecase: Reading activity log...")
	records, err := a.reader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	byAuthor := lo.GroupBy(records, func(r domain.NormalizedRecord) string { return r.Author })

	summaries := make([]*domain.AuthorSummary, 0, len(byAuthor))
	for author, rows := range byAuthor {
		summary, err := summarise(author, rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Commits != summaries[j].Commits {
			return summaries[i].Commits > summaries[j].Commits
		}
		return summaries[i].Author < summaries[j].Author
	})

	a.logger.Debug().Int("authors", len(summaries)).Msg("Usecase: Aggregation complete.")
	return summaries, nil
}

func summarise(author string, rows []domain.NormalizedRecord) (*domain.AuthorSummary, error) {
	perDay := lo.GroupBy(rows, func(r domain.NormalizedRecord) string { return day(r.Timestamp) })
	counts := stats.Float64Data(lo.MapToSlice(perDay, func(_ string, commits []domain.NormalizedRecord) float64 {
		return float64(len(commits))
	}))

	mean, err := stats.Mean(counts)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mean for %s: %w", author, err)
	}
	median, err := stats.Median(counts)
	if err != nil {
		return nil, fmt.Errorf("failed to compute median for %s: %w", author, err)
	}
	p90, err := stats.PercentileNearestRank(counts, 90)
	if err != nil {
		return nil, fmt.Errorf("failed to compute p90 for %s: %w", author, err)
	}

	timestamps := lo.Map(rows, func(r domain.NormalizedRecord, _ int) string { return r.Timestamp })
	sort.Strings(timestamps)

	return &domain.AuthorSummary{
		Author:        author,
		Commits:       len(rows),
		ActiveDays:    len(perDay),
		MeanPerDay:    mean,
		MedianPerDay:  median,
		P90PerDay:     p90,
		FirstActivity: timestamps[0],
		LastActivity:  timestamps[len(timestamps)-1],
	}, nil
}

// day reduces a stored timestamp to its UTC calendar day. Values that are not
// RFC 3339 fall back to their first ten characters.
func day(timestamp string) string {
	if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	if len(timestamp) > 10 {
		return timestamp[:10]
	}
	return timestamp
}
