package orchestrator

import (
	"fmt"
	"time"

	"grantbot/types"
)

// summaryLines renders the end-of-run block
func summaryLines(r types.RunReport) []string {
	lines := []string{
		"=== Discovery Summary ===",
		fmt.Sprintf("Run:                 %s (%s)", r.ID, r.State),
		fmt.Sprintf("Sources attempted:   %d", r.SourcesAttempted),
		fmt.Sprintf("Sources succeeded:   %d", r.SourcesSucceeded),
	}
	if r.SourcesSkipped > 0 {
		lines = append(lines, fmt.Sprintf("Sources skipped:     %d", r.SourcesSkipped))
	}
	lines = append(lines,
		fmt.Sprintf("Candidates found:    %d", r.CandidatesFound),
		fmt.Sprintf("Relevant:            %d", r.CandidatesRelevant),
		fmt.Sprintf("🆕 New:              %d", r.CandidatesNew),
	)
	for _, e := range r.Errors {
		lines = append(lines, fmt.Sprintf("⚠️  %s [%s]: %s", e.SourceID, e.Kind, e.Message))
	}
	if r.Error != "" {
		lines = append(lines, "❌ "+r.Error)
	}
	lines = append(lines, fmt.Sprintf("Duration:            %s", r.Duration().Round(time.Millisecond)))
	lines = append(lines, "=========================")
	return lines
}

// SummaryLines exposes the summary block for CLI output
func SummaryLines(r types.RunReport) []string { return summaryLines(r) }
