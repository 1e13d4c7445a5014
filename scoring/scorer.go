package scoring

import (
	"context"

	"grantbot/extract"
)

// Input is what every scorer sees: the corpus and, when known, fields
// already extracted from it.
type Input struct {
	Text   string
	Fields *extract.Fields
}

// Result is the outcome of scoring one corpus
type Result struct {
	Score        int                 `json:"score"`
	MatchedTerms map[string][]string `json:"matched_terms"`
	IsRelevant   bool                `json:"is_relevant"`
}

// Scorer rates how well a corpus matches the interest profile.
// Implementations never return a negative score.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
	Name() string
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	return score
}
