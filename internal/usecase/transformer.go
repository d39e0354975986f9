package usecase

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/naka-gawa/labpulse/internal/domain"
)

// Transformer maps raw API payloads onto the flat record shape.
type Transformer interface {
	Transform(records []domain.RawActivityRecord) ([]domain.NormalizedRecord, error)
}

// CommitTransformer projects GitHub commit payloads. It performs no I/O.
type CommitTransformer struct{}

// commitField binds a payload path to the record field it fills.
type commitField struct {
	path string
	set  func(r *domain.NormalizedRecord, v string)
}

var commitFields = []commitField{
	{"sha", func(r *domain.NormalizedRecord, v string) { r.ID = v }},
	{"commit.author.name", func(r *domain.NormalizedRecord, v string) { r.Author = v }},
	{"commit.author.date", func(r *domain.NormalizedRecord, v string) { r.Timestamp = v }},
	{"commit.message", func(r *domain.NormalizedRecord, v string) { r.Message = v }},
	{"html_url", func(r *domain.NormalizedRecord, v string) { r.URL = v }},
}

// Transform keeps order and count. One record lacking a field fails the whole batch
// with ErrMalformedRecord and nothing is returned.
func (CommitTransformer) Transform(records []domain.RawActivityRecord) ([]domain.NormalizedRecord, error) {
	out := make([]domain.NormalizedRecord, 0, len(records))
	for i, raw := range records {
		var rec domain.NormalizedRecord
		for _, f := range commitFields {
			v := gjson.GetBytes(raw.Payload, f.path)
			if v.Type != gjson.String {
				return nil, fmt.Errorf("%w: record %d: field %q is missing or not a string", domain.ErrMalformedRecord, i, f.path)
			}
			f.set(&rec, v.String())
		}
		out = append(out, rec)
	}
	return out, nil
}
