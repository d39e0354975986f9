package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/labpulse/internal/domain"
)

func raw(payload string) domain.RawActivityRecord {
	return domain.RawActivityRecord{Payload: []byte(payload)}
}

const aliceCommit = `{"sha":"abc123","commit":{"author":{"name":"alice","date":"2025-01-01T00:00:00Z"},"message":"fix bug"},"html_url":"https://x/abc123"}`

func TestCommitTransformer_Transform(t *testing.T) {
	testCases := []struct {
		name           string
		input          []domain.RawActivityRecord
		expectedResult []domain.NormalizedRecord
		expectError    bool
		expectedErrMsg string
	}{
		{
			name:  "happy path - projects the five fields",
			input: []domain.RawActivityRecord{raw(aliceCommit)},
			expectedResult: []domain.NormalizedRecord{
				{ID: "abc123", Author: "alice", Timestamp: "2025-01-01T00:00:00Z", Message: "fix bug", URL: "https://x/abc123"},
			},
		},
		{
			name: "order and count are preserved, extra fields ignored",
			input: []domain.RawActivityRecord{
				raw(`{"sha":"2","commit":{"author":{"name":"bob","date":"d2","email":"b@x"},"message":"second\n\nbody"},"html_url":"u2","author":null}`),
				raw(`{"sha":"1","commit":{"author":{"name":"bob","date":"d1"},"message":""},"html_url":"u1"}`),
			},
			expectedResult: []domain.NormalizedRecord{
				{ID: "2", Author: "bob", Timestamp: "d2", Message: "second\n\nbody", URL: "u2"},
				{ID: "1", Author: "bob", Timestamp: "d1", Message: "", URL: "u1"},
			},
		},
		{
			name:           "empty input produces empty output",
			input:          []domain.RawActivityRecord{},
			expectedResult: []domain.NormalizedRecord{},
		},
		{
			name:           "nil input produces empty output",
			input:          nil,
			expectedResult: []domain.NormalizedRecord{},
		},
		{
			name: "missing nested field aborts the whole batch",
			input: []domain.RawActivityRecord{
				raw(aliceCommit),
				raw(`{"sha":"def456","commit":{"message":"no author"},"html_url":"https://x/def456"}`),
			},
			expectError:    true,
			expectedErrMsg: `record 1: field "commit.author.name"`,
		},
		{
			name:           "missing top-level field",
			input:          []domain.RawActivityRecord{raw(`{"commit":{"author":{"name":"a","date":"d"},"message":"m"},"html_url":"u"}`)},
			expectError:    true,
			expectedErrMsg: `field "sha"`,
		},
		{
			name:           "null field is malformed",
			input:          []domain.RawActivityRecord{raw(`{"sha":"x","commit":{"author":{"name":"a","date":"d"},"message":"m"},"html_url":null}`)},
			expectError:    true,
			expectedErrMsg: `field "html_url"`,
		},
		{
			name:           "payload that is not JSON",
			input:          []domain.RawActivityRecord{raw(`not json`)},
			expectError:    true,
			expectedErrMsg: "record 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := CommitTransformer{}.Transform(tc.input)
			if tc.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrMalformedRecord)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				assert.Nil(t, results)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedResult, results)
			assert.Len(t, results, len(tc.input))
		})
	}
}
