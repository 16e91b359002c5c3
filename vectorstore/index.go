// Package vectorstore holds embedded documents in memory and answers
// nearest-neighbour queries against them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Embedder turns texts into vectors, one per input, in input order.
// *llm.Model satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

var (
	// ErrEmptyIndex is returned when searching an index with no documents.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrZeroVector is returned for an embedding with no direction.
	ErrZeroVector = errors.New("zero-length embedding")
)

// DimensionError reports a vector whose length differs from the index.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension %d does not match index dimension %d", e.Got, e.Want)
}

// Document is one indexed text.
type Document struct {
	ID   int
	Text string
}

// Result is a search hit. Lower distance is closer.
type Result struct {
	Document Document
	Distance float32
}

const collectionName = "movies"

// Index is an exact in-memory index backed by a chromem collection. Vectors
// are stored unit-normalized and Distance is the squared Euclidean distance
// between them, which ranks unit-length embeddings such as OpenAI's exactly
// as a flat L2 index does. It is safe for concurrent use.
type Index struct {
	embedder   Embedder
	collection *chromem.Collection

	mu  sync.RWMutex
	dim int
	n   int
}

// NewIndex returns an empty index that embeds with e.
func NewIndex(e Embedder) *Index {
	db := chromem.NewDB()
	// CreateCollection only fails on an empty name.
	collection, _ := db.CreateCollection(collectionName, nil, embeddingFunc(e))
	return &Index{embedder: e, collection: collection}
}

// embeddingFunc adapts e to chromem's single-text embedding hook.
func embeddingFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("got %d vectors for one text", len(vectors))
		}
		return vectors[0], nil
	}
}

// FromTexts embeds texts and returns an index with one document per text.
func FromTexts(ctx context.Context, e Embedder, texts []string) (*Index, error) {
	idx := NewIndex(e)
	if err := idx.Add(ctx, texts...); err != nil {
		return nil, err
	}
	return idx, nil
}

// Len returns the number of documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.n
}

// Add embeds and appends texts.
func (idx *Index) Add(ctx context.Context, texts ...string) error {
	if len(texts) == 0 {
		return nil
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding documents: got %d vectors for %d texts", len(vectors), len(texts))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dim := idx.dim
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim || dim == 0 {
			return &DimensionError{Want: dim, Got: len(v)}
		}
		if isZero(v) {
			return ErrZeroVector
		}
	}

	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(idx.n + i),
			Content:   text,
			Embedding: vectors[i],
		}
	}
	if err := idx.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}

	idx.dim = dim
	idx.n += len(texts)
	return nil
}

// Search embeds query and returns the k nearest documents, closest first.
// Equal distances keep insertion order.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors", len(vectors))
	}
	return idx.SearchVector(ctx, vectors[0], k)
}

// SearchVector is Search for an already embedded query.
func (idx *Index) SearchVector(ctx context.Context, query []float32, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.n == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query) != idx.dim {
		return nil, &DimensionError{Want: idx.dim, Got: len(query)}
	}
	if isZero(query) {
		return nil, ErrZeroVector
	}
	if k <= 0 {
		return nil, nil
	}

	// The whole collection is ranked so ties resolve by insertion order
	// rather than by chromem's concurrent heap.
	hits, err := idx.collection.QueryEmbedding(ctx, query, idx.n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		id, err := strconv.Atoi(h.ID)
		if err != nil {
			return nil, fmt.Errorf("querying index: bad document id %q", h.ID)
		}
		results = append(results, Result{
			Document: Document{ID: id, Text: h.Content},
			Distance: squaredDistance(h.Similarity),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// squaredDistance converts cosine similarity of unit vectors to squared L2.
func squaredDistance(similarity float32) float32 {
	return float32(math.Max(0, 2-2*float64(similarity)))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
