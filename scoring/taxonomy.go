package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role tells consumers other than the scorer how a category is meant
type Role string

const (
	RolePrimary    Role = "primary"
	RoleSecondary  Role = "secondary"
	RoleGeographic Role = "geographic"
	RoleExclude    Role = "exclude"
)

// Category is a weighted group of terms
type Category struct {
	Name   string   `json:"name" koanf:"name"`
	Role   Role     `json:"role" koanf:"role"`
	Weight int      `json:"weight" koanf:"weight"`
	Terms  []string `json:"terms" koanf:"terms"`
}

// AmountTier awards Bonus when the parsed amount is strictly above Above
type AmountTier struct {
	Above float64 `json:"above" koanf:"above"`
	Bonus int     `json:"bonus" koanf:"bonus"`
}

// DeadlineTier awards Bonus when the deadline is 1..WithinDays days away
type DeadlineTier struct {
	WithinDays int `json:"within_days" koanf:"within_days"`
	Bonus      int `json:"bonus" koanf:"bonus"`
}

// Taxonomy is the consumer's weighted interest profile
type Taxonomy struct {
	Categories    []Category     `json:"categories" koanf:"categories"`
	AmountTiers   []AmountTier   `json:"amount_tiers" koanf:"amount_tiers"`
	DeadlineTiers []DeadlineTier `json:"deadline_tiers" koanf:"deadline_tiers"`
}

// Validate checks the taxonomy is usable for scoring
func (t Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return errors.New("taxonomy has no categories")
	}
	seen := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		if c.Name == "" {
			return errors.New("taxonomy category without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate taxonomy category %q", c.Name)
		}
		seen[c.Name] = true
		if c.Weight == 0 {
			return fmt.Errorf("taxonomy category %q has zero weight", c.Name)
		}
		if c.Weight < 0 && c.Role != RoleExclude {
			return fmt.Errorf("taxonomy category %q has a negative weight but role %q", c.Name, c.Role)
		}
		if len(c.Terms) == 0 {
			return fmt.Errorf("taxonomy category %q has no terms", c.Name)
		}
	}
	for _, d := range t.DeadlineTiers {
		if d.WithinDays <= 0 {
			return fmt.Errorf("deadline tier within_days must be positive, got %d", d.WithinDays)
		}
	}
	return nil
}

// Terms returns the lowercased terms of every category with the given role
func (t Taxonomy) Terms(role Role) []string {
	var out []string
	for _, c := range t.Categories {
		if c.Role != role {
			continue
		}
		for _, term := range c.Terms {
			if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
				out = append(out, term)
			}
		}
	}
	return out
}

// normalized returns a copy with lowercased terms and tiers sorted so the
// first satisfied tier is the most generous one.
func (t Taxonomy) normalized() Taxonomy {
	out := Taxonomy{
		Categories:    make([]Category, len(t.Categories)),
		AmountTiers:   append([]AmountTier(nil), t.AmountTiers...),
		DeadlineTiers: append([]DeadlineTier(nil), t.DeadlineTiers...),
	}
	for i, c := range t.Categories {
		terms := make([]string, 0, len(c.Terms))
		dup := make(map[string]bool, len(c.Terms))
		for _, term := range c.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" || dup[term] {
				continue
			}
			dup[term] = true
			terms = append(terms, term)
		}
		c.Terms = terms
		out.Categories[i] = c
	}
	sort.SliceStable(out.AmountTiers, func(i, j int) bool {
		return out.AmountTiers[i].Above > out.AmountTiers[j].Above
	})
	sort.SliceStable(out.DeadlineTiers, func(i, j int) bool {
		return out.DeadlineTiers[i].WithinDays < out.DeadlineTiers[j].WithinDays
	})
	return out
}
