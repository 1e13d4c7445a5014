package tui

import (
	"fmt"
	"strings"

	"grantbot/types"
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(TextTitle))
	b.WriteString("\n")
	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if m.Flash != "" {
		b.WriteString(mutedStyle.Render(m.Flash))
		b.WriteString("\n\n")
	}

	b.WriteString(m.queueView())
	b.WriteString("\n")

	if c, ok := m.Selected(); ok {
		b.WriteString(detailStyle.Render(detailView(c)))
		b.WriteString("\n")
	}

	if m.Status != nil && len(m.Status.Logs) > 0 {
		b.WriteString(mutedStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Status.Logs
		if len(logs) > maxLogLines {
			logs = logs[len(logs)-maxLogLines:]
		}
		for _, l := range logs {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("   %s %s", l.Timestamp.Format("15:04:05"), l.Message)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(TextFooter))
	return b.String()
}

func (m Model) stateText() string {
	if !m.Connected {
		text := TextNotConnected
		if m.Err != nil {
			text += ": " + m.Err.Error()
		}
		return failStyle.Render(text)
	}
	s := m.Status
	switch {
	case s.Running:
		return okStyle.Render(fmt.Sprintf("⏳ Discovery run %s in progress...", s.RunID))
	case s.State == types.RunFailed:
		return failStyle.Render("❌ Last run failed: " + s.Error)
	case s.LastReport != nil:
		r := s.LastReport
		return okStyle.Render(fmt.Sprintf("✅ Last run %s: %d/%d sources, %d new candidate(s)",
			r.State, r.SourcesSucceeded, r.SourcesAttempted, r.CandidatesNew))
	default:
		return cursorStyle.Render("👋 Ready")
	}
}

func (m Model) queueView() string {
	if len(m.Candidates) == 0 {
		return mutedStyle.Render(TextEmptyQueue) + "\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 %d candidate(s) awaiting review\n", len(m.Candidates)))
	for i, c := range m.Candidates {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%s %s", cursor, scoreStyle.Render(fmt.Sprintf("%3d", c.Score)), truncate(c.Title, maxTitleLen))
		if i == m.Cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func detailView(c types.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Title + "\n")
	b.WriteString(mutedStyle.Render(c.URL) + "\n\n")
	if c.SourceName != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", c.SourceName))
	}
	if c.Deadline != "" {
		b.WriteString(fmt.Sprintf("Deadline: %s\n", c.Deadline))
	}
	if c.Amount != "" {
		b.WriteString(fmt.Sprintf("Amount: %s\n", c.Amount))
	}
	for cat, terms := range c.MatchedTerms {
		b.WriteString(fmt.Sprintf("%s: %s\n", cat, strings.Join(terms, ", ")))
	}
	if c.Excerpt != "" {
		b.WriteString("\n" + truncate(c.Excerpt, 300))
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
