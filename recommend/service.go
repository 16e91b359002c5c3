package recommend

import (
	"context"
	"errors"

	"github.com/i2y/moviemood/llm"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/prompt"
	"github.com/i2y/moviemood/retrieval"
)

// Output modes.
const (
	ModeStructured = "structured"
	ModeText       = "text"
)

// Enricher resolves streaming summaries for titles, in input order.
type Enricher interface {
	Enrich(ctx context.Context, titles []string) []string
}

// Service answers mood queries with enriched recommendations.
type Service struct {
	chain    *retrieval.Chain
	enricher Enricher
	mode     string
	prompt   *prompt.Template
}

// NewService returns a Service. An unknown mode means ModeStructured.
func NewService(chain *retrieval.Chain, enricher Enricher, mode string) *Service {
	if mode != ModeText {
		mode = ModeStructured
	}
	return &Service{
		chain:    chain,
		enricher: enricher,
		mode:     mode,
		prompt:   prompt.MustLoad(prompt.Recommend),
	}
}

// Mode returns the output mode in use.
func (s *Service) Mode() string {
	return s.mode
}

// Recommend returns recommendations for query. An empty result with a nil
// error means the model suggested nothing usable.
func (s *Service) Recommend(ctx context.Context, query string) ([]Recommendation, error) {
	question, err := s.prompt.Render(map[string]any{"Query": query})
	if err != nil {
		return nil, err
	}

	records, err := s.records(ctx, question)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
	}
	streaming := s.enricher.Enrich(ctx, titles)

	out := make([]Recommendation, len(records))
	for i, r := range records {
		out[i] = Recommendation{Movie: r, Streaming: streaming[i]}
	}

	logging.Ctx(ctx).Info().
		Str("mode", s.mode).
		Int("recommendations", len(out)).
		Msg("recommendations ready")
	return out, nil
}

func (s *Service) records(ctx context.Context, question string) ([]MovieRecord, error) {
	if s.mode == ModeText {
		reply, err := s.chain.Ask(ctx, question)
		if err != nil {
			return nil, err
		}
		return ParseLenient(ctx, reply), nil
	}

	list, err := retrieval.AskParse[RecommendationList](ctx, s.chain, question)
	if err != nil {
		var pe *llm.ParseError
		if errors.As(err, &pe) {
			return nil, &SchemaError{Content: pe.Content, Cause: err}
		}
		return nil, err
	}
	if err := list.Validate(); err != nil {
		return nil, &SchemaError{Cause: err}
	}
	return list.Recommendations, nil
}
