package types

import "time"

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/discovery/status
type StatusResponse struct {
	State      RunState   `json:"state"`
	Running    bool       `json:"running"`
	RunID      string     `json:"run_id,omitempty"`
	Logs       []LogEntry `json:"logs"`
	LastReport *RunReport `json:"last_report,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// DiscoveryRequest asks a worker to start a discovery run
type DiscoveryRequest struct {
	RequestedBy string `json:"requested_by"`
	MaxSources  int    `json:"max_sources,omitempty"`
}
