package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/labpulse/internal/domain"
)

// mockExtractor is a mock implementation of the gateway.Extractor interface.
type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, windowStart time.Time) ([]domain.RawActivityRecord, error) {
	args := m.Called(ctx, windowStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawActivityRecord), args.Error(1)
}

// mockLoader is a mock implementation of the Loader interface.
type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, records []domain.NormalizedRecord) (int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

var testWindowStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// TestPipeline_Run covers the end-to-end scenarios with the real transformer between two mocks.
func TestPipeline_Run(t *testing.T) {
	upstreamErr := fmt.Errorf("%w: failed to list commits with REST API: %w", domain.ErrUpstreamUnavailable, errors.New("connection refused"))
	storeErr := fmt.Errorf("%w: database is locked", domain.ErrStoreWriteFailure)

	testCases := []struct {
		name           string
		extracted      []domain.RawActivityRecord
		extractErr     error
		expectLoad     bool
		expectedLoaded []domain.NormalizedRecord
		loadWritten    int
		loadErr        error
		expectedResult *domain.RunResult
		expectedErr    error
	}{
		{
			name:       "scenario 1 - one commit reaches the store",
			extracted:  []domain.RawActivityRecord{raw(aliceCommit)},
			expectLoad: true,
			expectedLoaded: []domain.NormalizedRecord{
				{ID: "abc123", Author: "alice", Timestamp: "2025-01-01T00:00:00Z", Message: "fix bug", URL: "https://x/abc123"},
			},
			loadWritten:    1,
			expectedResult: &domain.RunResult{WindowStart: testWindowStart, Extracted: 1, Written: 1},
		},
		{
			name:           "scenario 2 - empty extraction writes nothing",
			extracted:      []domain.RawActivityRecord{},
			expectLoad:     true,
			expectedLoaded: []domain.NormalizedRecord{},
			loadWritten:    0,
			expectedResult: &domain.RunResult{WindowStart: testWindowStart, Extracted: 0, Written: 0},
		},
		{
			name:        "scenario 3 - extractor failure stops the run",
			extractErr:  upstreamErr,
			expectLoad:  false,
			expectedErr: domain.ErrUpstreamUnavailable,
		},
		{
			name:        "malformed record never reaches the loader",
			extracted:   []domain.RawActivityRecord{raw(aliceCommit), raw(`{"sha":"x"}`)},
			expectLoad:  false,
			expectedErr: domain.ErrMalformedRecord,
		},
		{
			name:       "loader failure is propagated",
			extracted:  []domain.RawActivityRecord{raw(aliceCommit)},
			expectLoad: true,
			expectedLoaded: []domain.NormalizedRecord{
				{ID: "abc123", Author: "alice", Timestamp: "2025-01-01T00:00:00Z", Message: "fix bug", URL: "https://x/abc123"},
			},
			loadErr:     storeErr,
			expectedErr: domain.ErrStoreWriteFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			extractor := new(mockExtractor)
			loader := new(mockLoader)
			extractor.On("Extract", mock.Anything, testWindowStart).Return(tc.extracted, tc.extractErr)
			if tc.expectLoad {
				loader.On("Load", mock.Anything, tc.expectedLoaded).Return(tc.loadWritten, tc.loadErr)
			}
			pipeline := NewPipeline(extractor, CommitTransformer{}, loader, zerolog.Nop())

			// --- Act ---
			result, err := pipeline.Run(context.Background(), testWindowStart)

			// --- Assert ---
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedResult, result)
			}
			extractor.AssertExpectations(t)
			loader.AssertExpectations(t)
			if !tc.expectLoad {
				loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPipeline_Run_WarnsOnShortWrite(t *testing.T) {
	testCases := []struct {
		name        string
		loadWritten int
		expectWarn  bool
	}{
		{name: "short write is logged", loadWritten: 0, expectWarn: true},
		{name: "full write is quiet", loadWritten: 1, expectWarn: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			extractor := new(mockExtractor)
			loader := new(mockLoader)
			extractor.On("Extract", mock.Anything, testWindowStart).Return([]domain.RawActivityRecord{raw(aliceCommit)}, nil)
			loader.On("Load", mock.Anything, mock.Anything).Return(tc.loadWritten, nil)

			var buf bytes.Buffer
			pipeline := NewPipeline(extractor, CommitTransformer{}, loader, zerolog.New(&buf).Level(zerolog.WarnLevel))

			result, err := pipeline.Run(context.Background(), testWindowStart)

			require.NoError(t, err)
			assert.Equal(t, tc.loadWritten, result.Written)
			if tc.expectWarn {
				assert.Contains(t, buf.String(), `"level":"warn"`)
				assert.Contains(t, buf.String(), `"written":0`)
				assert.Contains(t, buf.String(), `"normalized":1`)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
