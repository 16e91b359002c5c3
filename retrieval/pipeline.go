package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/i2y/moviemood/catalog"
	"github.com/i2y/moviemood/llm"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/vectorstore"
)

// Pipeline is the assembled index, retriever and chain.
type Pipeline struct {
	Index     *vectorstore.Index
	Retriever *MultiQueryRetriever
	Chain     *Chain
}

// Build embeds every movie and wires the retriever and chain on top of the
// resulting index. chat answers and rephrases; embedder vectorizes.
func Build(ctx context.Context, chat *llm.Model, embedder vectorstore.Embedder, movies []catalog.Movie, cfg Config) (*Pipeline, error) {
	start := time.Now()
	index, err := vectorstore.FromTexts(ctx, embedder, catalog.Texts(movies))
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	logging.Info().
		Int("documents", index.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("vector index built")

	retriever := NewMultiQueryRetriever(chat, index, cfg)
	return &Pipeline{
		Index:     index,
		Retriever: retriever,
		Chain:     NewChain(chat, retriever),
	}, nil
}
