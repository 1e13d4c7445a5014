package orchestrator

import "errors"

var (
	// ErrPersistence marks a failed store write during a run
	ErrPersistence = errors.New("persistence failure")
	// ErrReportWrite marks a failure to store the final run report
	ErrReportWrite = errors.New("run report write failed")
	// ErrInvalidConfig is returned before any source is attempted
	ErrInvalidConfig = errors.New("invalid discovery config")
	// ErrAlreadyRunning is returned when a discovery run is in progress
	ErrAlreadyRunning = errors.New("discovery run already in progress")
)
