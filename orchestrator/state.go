package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"grantbot/types"
)

const maxLogs = 50

// Manager holds the discovery run state with thread-safe access
type Manager struct {
	mu sync.RWMutex

	state      types.RunState
	running    bool
	runID      string
	lastReport *types.RunReport
	lastErr    error

	// ring buffer
	logs    []types.LogEntry
	maxLogs int
}

// NewManager creates a new state manager
func NewManager() *Manager {
	return &Manager{
		state:   types.RunPending,
		logs:    make([]types.LogEntry, 0),
		maxLogs: maxLogs,
	}
}

// AddLog adds a log entry (thread-safe)
func (m *Manager) AddLog(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLog(message)
}

// appendLog must hold lock
func (m *Manager) appendLog(message string) {
	m.logs = append(m.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// Begin marks a run as started. It fails when another run is active.
func (m *Manager) Begin(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}
	m.running = true
	m.runID = runID
	m.state = types.RunPending
	m.lastErr = nil
	m.appendLog(fmt.Sprintf("Discovery run %s started", runID))
	return nil
}

// SetState sets the current state (thread-safe)
func (m *Manager) SetState(state types.RunState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// GetState gets the current state (thread-safe)
func (m *Manager) GetState() types.RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsRunning reports whether a run is active
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Finish records the final report and releases the run slot
func (m *Manager) Finish(report types.RunReport, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.state = report.State
	r := report
	m.lastReport = &r
	m.lastErr = err
	if err != nil {
		m.appendLog(fmt.Sprintf("Error: %v", err))
	}
	m.appendLog(fmt.Sprintf("Discovery run %s finished: %s", report.ID, report.State))
}

// GetStatus returns a snapshot of the current state (thread-safe)
func (m *Manager) GetStatus() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := types.StatusResponse{
		State:   m.state,
		Running: m.running,
		RunID:   m.runID,
		Logs:    append([]types.LogEntry{}, m.logs...),
	}
	if m.lastReport != nil {
		r := *m.lastReport
		resp.LastReport = &r
	}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}
