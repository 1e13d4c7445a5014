package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grantbot/extract"
)

// KeywordScorer scores by weighted substring presence of taxonomy terms,
// plus amount and deadline bonuses. It is pure and never fails.
type KeywordScorer struct {
	taxonomy Taxonomy
	minScore int
	now      func() time.Time
}

// KeywordOption configures a KeywordScorer
type KeywordOption func(*KeywordScorer)

// WithClock overrides the clock used for deadline urgency
func WithClock(now func() time.Time) KeywordOption {
	return func(k *KeywordScorer) { k.now = now }
}

// NewKeywordScorer validates the taxonomy and builds a scorer
func NewKeywordScorer(t Taxonomy, minScore int, opts ...KeywordOption) (*KeywordScorer, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}
	k := &KeywordScorer{
		taxonomy: t.normalized(),
		minScore: minScore,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func (k *KeywordScorer) Name() string { return "keyword" }

// Score implements Scorer. The error is always nil.
func (k *KeywordScorer) Score(_ context.Context, in Input) (Result, error) {
	return k.Evaluate(in.Text, in.Fields), nil
}

// Evaluate is the synchronous form of Score
func (k *KeywordScorer) Evaluate(text string, fields *extract.Fields) Result {
	lower := strings.ToLower(text)
	matched := make(map[string][]string)
	score := 0

	for _, c := range k.taxonomy.Categories {
		for _, term := range c.Terms {
			if strings.Contains(lower, term) {
				score += c.Weight
				matched[c.Name] = append(matched[c.Name], term)
			}
		}
	}

	if fields != nil {
		score += k.amountBonus(fields.Amount)
		score += k.deadlineBonus(fields.Deadline)
	}

	score = clamp(score)
	return Result{
		Score:        score,
		MatchedTerms: matched,
		IsRelevant:   score >= k.minScore,
	}
}

func (k *KeywordScorer) amountBonus(amount string) int {
	if amount == "" {
		return 0
	}
	v := extract.ParseAmount(amount)
	for _, tier := range k.taxonomy.AmountTiers {
		if v > tier.Above {
			return tier.Bonus
		}
	}
	return 0
}

func (k *KeywordScorer) deadlineBonus(deadline string) int {
	due, ok := extract.ParseDeadline(deadline)
	if !ok {
		return 0
	}
	days := extract.DaysUntil(due, k.now())
	if days <= 0 {
		return 0
	}
	for _, tier := range k.taxonomy.DeadlineTiers {
		if days <= tier.WithinDays {
			return tier.Bonus
		}
	}
	return 0
}
