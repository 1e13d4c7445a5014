package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"grantbot/types"
)

const (
	pollInterval = time.Second
	queueSize    = 100
)

func pollStatus(client *Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

func pollCandidates(client *Client) tea.Cmd {
	return func() tea.Msg {
		list, err := client.ListCandidates(types.CandidateNew, queueSize)
		return CandidatesMsg{Candidates: list, Err: err}
	}
}

func triggerRun(client *Client) tea.Cmd {
	return func() tea.Msg {
		return StartRunMsg{Err: client.StartRun()}
	}
}

func review(client *Client, id string, status types.CandidateStatus) tea.Cmd {
	return func() tea.Msg {
		return ReviewedMsg{ID: id, Status: status, Err: client.SetStatus(id, status)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
