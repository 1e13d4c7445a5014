package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"grantbot/types"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), pollCandidates(m.Client), tickCmd())
	case StatusUpdateMsg:
		if msg.Err != nil {
			m.Connected = false
			m.Err = msg.Err
			return m, nil
		}
		m.Connected = true
		m.Err = nil
		m.Status = msg.Status
	case CandidatesMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			return m, nil
		}
		m.Candidates = msg.Candidates
		m.Cursor = clampCursor(m.Cursor, len(m.Candidates))
	case StartRunMsg:
		if msg.Err != nil {
			m.Flash = fmt.Sprintf("❌ %v", msg.Err)
		} else {
			m.Flash = "🚀 Discovery run started"
		}
	case ReviewedMsg:
		if msg.Err != nil {
			m.Flash = fmt.Sprintf("❌ %v", msg.Err)
			return m, nil
		}
		m.Flash = fmt.Sprintf("✅ %s marked %s", msg.ID, msg.Status)
		m = m.removeCandidate(msg.ID)
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.Cursor = clampCursor(m.Cursor-1, len(m.Candidates))
	case "down", "j":
		m.Cursor = clampCursor(m.Cursor+1, len(m.Candidates))
	case "d", "D":
		if m.running() {
			m.Flash = "⏳ A run is already in progress"
			return m, nil
		}
		return m, triggerRun(m.Client)
	case "a":
		return m.decide(types.CandidateAdded)
	case "r":
		return m.decide(types.CandidateReviewed)
	case "x":
		return m.decide(types.CandidateRejected)
	}
	return m, nil
}

func (m Model) decide(status types.CandidateStatus) (tea.Model, tea.Cmd) {
	c, ok := m.Selected()
	if !ok {
		return m, nil
	}
	return m, review(m.Client, c.ID, status)
}
