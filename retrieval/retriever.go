// Package retrieval finds catalog entries relevant to a question and asks the
// chat model to answer from them.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/i2y/moviemood/llm"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/prompt"
	"github.com/i2y/moviemood/vectorstore"
)

// Searcher is the vector search the retriever runs each query against.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.Result, error)
}

// Retriever returns documents relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]vectorstore.Document, error)
}

// Config tunes retrieval.
type Config struct {
	// TopK is the number of documents fetched per query.
	TopK int
	// MultiQuery enables rephrasing the question before searching.
	MultiQuery bool
	// QueryCount is how many rephrasings to ask for.
	QueryCount int
	// IncludeOriginal also searches with the unmodified question.
	IncludeOriginal bool
}

// DefaultConfig mirrors the usual multi-query retriever setup.
func DefaultConfig() Config {
	return Config{TopK: 4, MultiQuery: true, QueryCount: 3}
}

// MultiQueryRetriever asks the model for alternative phrasings of the
// question, searches with each and merges the hits.
type MultiQueryRetriever struct {
	model  *llm.Model
	index  Searcher
	cfg    Config
	prompt *prompt.Template
}

// NewMultiQueryRetriever returns a retriever over index. Zero config values
// fall back to DefaultConfig.
func NewMultiQueryRetriever(model *llm.Model, index Searcher, cfg Config) *MultiQueryRetriever {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.QueryCount <= 0 {
		cfg.QueryCount = def.QueryCount
	}
	return &MultiQueryRetriever{
		model:  model,
		index:  index,
		cfg:    cfg,
		prompt: prompt.MustLoad(prompt.MultiQuery),
	}
}

// GenerateQueries returns the model's rephrasings, one per non-blank line.
func (r *MultiQueryRetriever) GenerateQueries(ctx context.Context, question string) ([]string, error) {
	text, err := r.prompt.Render(map[string]any{
		"Count":    r.cfg.QueryCount,
		"Question": question,
	})
	if err != nil {
		return nil, err
	}

	var opts []llm.Option
	if r.prompt.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*r.prompt.Temperature))
	}
	resp, err := r.model.Call(ctx, text, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating queries: %w", err)
	}

	var queries []string
	for _, line := range strings.Split(resp.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			queries = append(queries, line)
		}
	}
	return queries, nil
}

// Retrieve implements Retriever. Documents come back in first-seen order
// without duplicates. When rephrasing fails the question is searched as is.
func (r *MultiQueryRetriever) Retrieve(ctx context.Context, question string) ([]vectorstore.Document, error) {
	queries := r.queries(ctx, question)

	seen := make(map[int]bool)
	var docs []vectorstore.Document
	for _, q := range queries {
		results, err := r.index.Search(ctx, q, r.cfg.TopK)
		if err != nil {
			return nil, fmt.Errorf("searching index: %w", err)
		}
		for _, res := range results {
			if !seen[res.Document.ID] {
				seen[res.Document.ID] = true
				docs = append(docs, res.Document)
			}
		}
	}

	logging.Ctx(ctx).Debug().
		Int("queries", len(queries)).
		Int("documents", len(docs)).
		Msg("retrieved documents")
	return docs, nil
}

func (r *MultiQueryRetriever) queries(ctx context.Context, question string) []string {
	if !r.cfg.MultiQuery {
		return []string{question}
	}

	generated, err := r.GenerateQueries(ctx, question)
	if err != nil || len(generated) == 0 {
		if ctx.Err() == nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("query generation failed, searching with the original question")
		}
		return []string{question}
	}

	logging.Ctx(ctx).Debug().Strs("queries", generated).Msg("generated queries")
	if r.cfg.IncludeOriginal {
		return append([]string{question}, generated...)
	}
	return generated
}
