package domain

import "errors"

// Failure kinds of a pipeline run. Stages wrap their cause with one of these so
// callers can classify a failure with errors.Is.
var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrStoreWriteFailure   = errors.New("store write failure")
)

// KindOf returns a stable label for the failure kind carried by err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrStoreWriteFailure):
		return "store_write_failure"
	default:
		return "unknown"
	}
}
