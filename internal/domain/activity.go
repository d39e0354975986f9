// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"encoding/json"
	"time"
)

// RawActivityRecord is a single commit payload exactly as the hosting API returned it.
// The payload is kept opaque; only the transformer reaches into it.
type RawActivityRecord struct {
	Payload json.RawMessage
}

// NormalizedRecord is the flat row shape appended to the lab_activity table.
type NormalizedRecord struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	URL       string `json:"url"`
}

// RunResult describes one successful pipeline run.
type RunResult struct {
	RunID       string    `json:"run_id"`
	WindowStart time.Time `json:"window_start"`
	Extracted   int       `json:"extracted"`
	Written     int       `json:"written"`
	Attempts    int       `json:"attempts"`
}

// AuthorSummary holds the activity figures of a single author in the store.
type AuthorSummary struct {
	Author        string  `json:"author"`
	Commits       int     `json:"commits"`
	ActiveDays    int     `json:"active_days"`
	MeanPerDay    float64 `json:"mean_per_day"`
	MedianPerDay  float64 `json:"median_per_day"`
	P90PerDay     float64 `json:"p90_per_day"`
	FirstActivity string  `json:"first_activity"`
	LastActivity  string  `json:"last_activity"`
}
