package types

import "time"

// RunState represents the discovery run state machine
type RunState string

const (
	RunPending             RunState = "pending"
	RunRunning             RunState = "running"
	RunCompleted           RunState = "completed"
	RunCompletedWithErrors RunState = "completed_with_errors"
	RunFailed              RunState = "failed"
)

// Terminal reports whether no further transitions happen from s
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunCompletedWithErrors || s == RunFailed
}

// SourceError is one per-source failure recorded in a run report
type SourceError struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// RunReport summarises one discovery run
type RunReport struct {
	ID                 string        `json:"id"`
	State              RunState      `json:"state"`
	SourcesAttempted   int           `json:"sources_attempted"`
	SourcesSucceeded   int           `json:"sources_succeeded"`
	SourcesSkipped     int           `json:"sources_skipped,omitempty"`
	CandidatesFound    int           `json:"candidates_found"`
	CandidatesRelevant int           `json:"candidates_relevant"`
	CandidatesNew      int           `json:"candidates_new"`
	Errors             []SourceError `json:"errors"`
	Error              string        `json:"error,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	CompletedAt        time.Time     `json:"completed_at"`
}

// Duration is the wall time between start and completion
func (r RunReport) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
