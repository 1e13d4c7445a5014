package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"grantbot/types"
)

// Model is the review console state (thin client over the API)
type Model struct {
	Client *Client

	Status     *types.StatusResponse
	Candidates []types.Candidate
	Cursor     int
	Flash      string
	Err        error

	Connected bool
}

// NewModel creates a new TUI model
func NewModel(apiURL string) Model {
	return Model{Client: NewClient(apiURL)}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.Client),
		pollCandidates(m.Client),
		tickCmd(),
	)
}

// Selected returns the candidate under the cursor
func (m Model) Selected() (types.Candidate, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Candidates) {
		return types.Candidate{}, false
	}
	return m.Candidates[m.Cursor], true
}

func (m Model) running() bool {
	return m.Status != nil && m.Status.Running
}

// removeCandidate drops id from the local queue and keeps the cursor in range
func (m Model) removeCandidate(id string) Model {
	out := m.Candidates[:0:0]
	for _, c := range m.Candidates {
		if c.ID != id {
			out = append(out, c)
		}
	}
	m.Candidates = out
	m.Cursor = clampCursor(m.Cursor, len(out))
	return m
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
