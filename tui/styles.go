package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = "#2E8B57"
	colorOK     = "#04B575"
	colorFail   = "#E5534B"
	colorMuted  = "#7A7A7A"
	colorScore  = "#F2C94C"
	colorCursor = "#FAFAFA"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)).MarginTop(1).MarginBottom(1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorOK))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorFail))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	scoreStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorScore))

	// detail pane for the selected candidate
	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			BorderForeground(lipgloss.Color(colorAccent)).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCursor)).
			Background(lipgloss.Color(colorAccent))
)
