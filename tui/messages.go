package tui

import (
	"time"

	"grantbot/types"
)

// StatusUpdateMsg carries a polled discovery status
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// CandidatesMsg carries the polled review queue
type CandidatesMsg struct {
	Candidates []types.Candidate
	Err        error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// StartRunMsg is sent after the user triggers a run
type StartRunMsg struct {
	Err error
}

// ReviewedMsg is sent after a review decision was submitted
type ReviewedMsg struct {
	ID     string
	Status types.CandidateStatus
	Err    error
}
