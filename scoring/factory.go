package scoring

import (
	"context"
	"fmt"
)

// Scorer modes
const (
	ModeKeyword   = "keyword"
	ModeModel     = "model"
	ModeEmbedding = "embedding"
)

// Options selects and configures a Scorer implementation
type Options struct {
	Mode           string
	MinScore       int
	GeminiAPIKey   string
	GeminiModel    string
	CohereAPIKey   string
	CohereModel    string
	Profile        string
	EmbeddingScale float64
}

// New builds the Scorer selected by opts.Mode
func New(ctx context.Context, t Taxonomy, opts Options) (Scorer, error) {
	switch opts.Mode {
	case "", ModeKeyword:
		return NewKeywordScorer(t, opts.MinScore)
	case ModeModel:
		gen, err := NewGeminiGenerator(ctx, opts.GeminiAPIKey, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewModelScorer(gen, t, opts.MinScore)
	case ModeEmbedding:
		provider, err := NewCohereEmbeddings(opts.CohereAPIKey, opts.CohereModel)
		if err != nil {
			return nil, err
		}
		return NewEmbeddingScorer(provider, t, opts.MinScore, opts.Profile, opts.EmbeddingScale)
	default:
		return nil, fmt.Errorf("unknown scorer mode %q", opts.Mode)
	}
}
