package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"grantbot/extract"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	maxPromptChars     = 12000
)

const systemInstruction = `You classify web pages that may describe grant or funding opportunities.
You are given an interest taxonomy of categories and example terms. Report every category the page
genuinely matches, with the taxonomy term (or the closest taxonomy term) that justifies it.
Also report the application deadline and the funding amount exactly as written, if present.
Only report exclude categories when the page clearly belongs to them. Respond with JSON only.`

// Generator sends one prompt to a model and returns its raw JSON answer
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator is a Generator backed by the Gemini API with a fixed
// response schema.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates the Gemini client once for reuse across calls
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: systemInstruction}}, Role: "system"},
		{Parts: []*genai.Part{{Text: prompt}}, Role: "user"},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   classificationSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	return resp.Text(), nil
}

func classificationSchema() *genai.Schema {
	match := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": {Type: genai.TypeString, Description: "A category name from the taxonomy."},
			"term":     {Type: genai.TypeString, Description: "The taxonomy term that matched."},
		},
		Required: []string{"category", "term"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"matches":  {Type: genai.TypeArray, Items: match, Description: "Matched taxonomy categories."},
			"deadline": {Type: genai.TypeString, Description: "Application deadline as written, or empty."},
			"amount":   {Type: genai.TypeString, Description: "Funding amount as written, or empty."},
		},
		Required: []string{"matches"},
	}
}

type classification struct {
	Matches []struct {
		Category string `json:"category"`
		Term     string `json:"term"`
	} `json:"matches"`
	Deadline string `json:"deadline"`
	Amount   string `json:"amount"`
}

// ModelScorer delegates term matching to a language model and applies the
// taxonomy weights and bonuses to whatever it reports.
type ModelScorer struct {
	gen      Generator
	keyword  *KeywordScorer
	weights  map[string]int
	taxonomy Taxonomy
}

// NewModelScorer wraps gen with the taxonomy's weights
func NewModelScorer(gen Generator, t Taxonomy, minScore int, opts ...KeywordOption) (*ModelScorer, error) {
	kw, err := NewKeywordScorer(t, minScore, opts...)
	if err != nil {
		return nil, err
	}
	weights := make(map[string]int, len(t.Categories))
	for _, c := range t.Categories {
		weights[c.Name] = c.Weight
	}
	return &ModelScorer{gen: gen, keyword: kw, weights: weights, taxonomy: kw.taxonomy}, nil
}

func (m *ModelScorer) Name() string { return "model" }

// Score implements Scorer. Model or decoding failures return a zero result
// together with the error.
func (m *ModelScorer) Score(ctx context.Context, in Input) (Result, error) {
	raw, err := m.gen.Generate(ctx, m.prompt(in.Text))
	if err != nil {
		return Result{MatchedTerms: map[string][]string{}}, err
	}

	var c classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Result{MatchedTerms: map[string][]string{}}, fmt.Errorf("failed to unmarshal model response: %w", err)
	}

	matched := make(map[string][]string)
	seen := make(map[string]bool)
	score := 0
	for _, match := range c.Matches {
		weight, ok := m.weights[match.Category]
		term := strings.ToLower(strings.TrimSpace(match.Term))
		key := match.Category + "|" + term
		if !ok || term == "" || seen[key] {
			continue
		}
		seen[key] = true
		score += weight
		matched[match.Category] = append(matched[match.Category], term)
	}

	fields := extract.Fields{Deadline: c.Deadline, Amount: c.Amount}
	if in.Fields != nil {
		if in.Fields.Deadline != "" {
			fields.Deadline = in.Fields.Deadline
		}
		if in.Fields.Amount != "" {
			fields.Amount = in.Fields.Amount
		}
	}
	score += m.keyword.amountBonus(fields.Amount)
	score += m.keyword.deadlineBonus(fields.Deadline)

	score = clamp(score)
	return Result{Score: score, MatchedTerms: matched, IsRelevant: score >= m.keyword.minScore}, nil
}

func (m *ModelScorer) prompt(text string) string {
	var b strings.Builder
	b.WriteString("Taxonomy:\n")
	for _, c := range m.taxonomy.Categories {
		fmt.Fprintf(&b, "- %s (%s): %s\n", c.Name, c.Role, strings.Join(c.Terms, ", "))
	}
	if utf8.RuneCountInString(text) > maxPromptChars {
		text = string([]rune(text)[:maxPromptChars])
	}
	b.WriteString("\nPage text:\n---\n")
	b.WriteString(text)
	return b.String()
}
