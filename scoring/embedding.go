package scoring

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

const (
	DefaultCohereModel    = "embed-multilingual-v3.0"
	DefaultEmbeddingScale = 10
	maxEmbedChars         = 8000
)

// EmbeddingsProvider abstracts a text->embedding generator.
// Implementations return one embedding vector per input text.
type EmbeddingsProvider interface {
	EmbedTexts(ctx context.Context, texts []string, query bool) ([][]float32, error)
	ModelName() string
}

// CohereEmbeddings implements EmbeddingsProvider using the Cohere Embed API (v2)
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

// NewCohereEmbeddings builds a Cohere client forced onto HTTP/1.1
func NewCohereEmbeddings(apiKey, model string) (*CohereEmbeddings, error) {
	if apiKey == "" {
		return nil, errors.New("cohere API key is required")
	}
	if model == "" || !strings.HasPrefix(model, "embed-") {
		model = DefaultCohereModel
	}
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereEmbeddings{client: client, model: model}, nil
}

func (c *CohereEmbeddings) ModelName() string { return c.model }

func (c *CohereEmbeddings) EmbedTexts(ctx context.Context, texts []string, query bool) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	inputType := cohere.EmbedInputTypeSearchDocument
	if query {
		inputType = cohere.EmbedInputTypeSearchQuery
	}

	resp, err := c.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          c.model,
			InputType:      inputType,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

// EmbeddingScorer scores by cosine similarity between the corpus and an
// interest profile, scaled onto the keyword score range. Matched terms and
// bonuses still come from the keyword taxonomy so results stay explainable.
type EmbeddingScorer struct {
	provider EmbeddingsProvider
	keyword  *KeywordScorer
	profile  string
	scale    float64

	mu         sync.Mutex
	profileVec []float32
}

// NewEmbeddingScorer builds a scorer. An empty profile is derived from the
// taxonomy's primary and secondary terms.
func NewEmbeddingScorer(p EmbeddingsProvider, t Taxonomy, minScore int, profile string, scale float64, opts ...KeywordOption) (*EmbeddingScorer, error) {
	if p == nil {
		return nil, errors.New("embeddings provider cannot be nil")
	}
	kw, err := NewKeywordScorer(t, minScore, opts...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(profile) == "" {
		terms := append(t.Terms(RolePrimary), t.Terms(RoleSecondary)...)
		profile = "Grants and funding opportunities about " + strings.Join(terms, ", ")
	}
	if scale <= 0 {
		scale = DefaultEmbeddingScale
	}
	return &EmbeddingScorer{provider: p, keyword: kw, profile: profile, scale: scale}, nil
}

func (e *EmbeddingScorer) Name() string { return "embedding:" + e.provider.ModelName() }

func (e *EmbeddingScorer) Score(ctx context.Context, in Input) (Result, error) {
	base := e.keyword.Evaluate(in.Text, in.Fields)

	profileVec, err := e.profileVector(ctx)
	if err != nil {
		return Result{MatchedTerms: base.MatchedTerms}, err
	}

	text := in.Text
	if utf8.RuneCountInString(text) > maxEmbedChars {
		text = string([]rune(text)[:maxEmbedChars])
	}
	vecs, err := e.provider.EmbedTexts(ctx, []string{text}, false)
	if err != nil {
		return Result{MatchedTerms: base.MatchedTerms}, err
	}

	score := int(math.Round(cosine(profileVec, vecs[0]) * e.scale))
	if in.Fields != nil {
		score += e.keyword.amountBonus(in.Fields.Amount)
		score += e.keyword.deadlineBonus(in.Fields.Deadline)
	}
	score = clamp(score)
	return Result{Score: score, MatchedTerms: base.MatchedTerms, IsRelevant: score >= e.keyword.minScore}, nil
}

func (e *EmbeddingScorer) profileVector(ctx context.Context) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.profileVec != nil {
		return e.profileVec, nil
	}
	vecs, err := e.provider.EmbedTexts(ctx, []string{e.profile}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to embed interest profile: %w", err)
	}
	e.profileVec = vecs[0]
	return e.profileVec, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
