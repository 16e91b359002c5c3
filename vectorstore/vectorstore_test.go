package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors and counts what it embeds.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	seen    []string
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		f.seen = append(f.seen, t)
		v, ok := f.vectors[t]
		if !ok {
			v = []float32{0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func newFake() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"drama":   {1, 0},
		"comedy":  {0, 1},
		"dramedy": {0.6, 0.5},
		"twin":    {1, 0},
		"sad":     {0.9, 0.1},
	}}
}

func TestIndex_SearchOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	idx, err := FromTexts(ctx, newFake(), []string{"comedy", "dramedy", "drama"})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	results, err := idx.Search(ctx, "sad", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "drama", results[0].Document.Text)
	assert.Equal(t, 2, results[0].Document.ID)
	assert.Equal(t, "dramedy", results[1].Document.Text)
	// Unit vectors: 2 - 2*cos(sad, drama).
	assert.InDelta(t, 0.01223, results[0].Distance, 1e-4)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestIndex_ScaleDoesNotChangeRanking(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.vectors["long drama"] = []float32{10, 0}
	idx, err := FromTexts(ctx, f, []string{"comedy", "long drama"})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "drama", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "long drama", results[0].Document.Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 2, results[1].Distance, 1e-6)
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := FromTexts(ctx, newFake(), []string{"comedy", "twin", "drama"})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "drama", 3)
	require.NoError(t, err)
	assert.Equal(t, "twin", results[0].Document.Text)
	assert.Equal(t, "drama", results[1].Document.Text)
	assert.Equal(t, "comedy", results[2].Document.Text)
}

func TestIndex_KLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := FromTexts(ctx, newFake(), []string{"drama"})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "comedy", 4)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestIndex_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewIndex(newFake()).Search(ctx, "drama", 4)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	f := newFake()
	f.vectors["wide"] = []float32{1, 2, 3}
	idx, err := FromTexts(ctx, f, []string{"drama"})
	require.NoError(t, err)

	err = idx.Add(ctx, "wide")
	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Want)
	assert.Equal(t, 3, dimErr.Got)
	assert.Equal(t, 1, idx.Len())

	_, err = idx.Search(ctx, "wide", 1)
	assert.ErrorAs(t, err, &dimErr)

	_, err = FromTexts(ctx, newFake(), []string{"unknown"})
	assert.ErrorIs(t, err, ErrZeroVector)

	_, err = idx.Search(ctx, "unknown", 1)
	assert.ErrorIs(t, err, ErrZeroVector)

	boom := errors.New("boom")
	_, err = FromTexts(ctx, &fakeEmbedder{err: boom}, []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func TestCachedEmbedder_EmbedsMissesOnly(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	f := newFake()
	e := NewCachedEmbedder(f, cache, "ada")

	first, err := e.Embed(ctx, []string{"drama", "comedy"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, first)

	second, err := e.Embed(ctx, []string{"comedy", "sad", "drama"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {0.9, 0.1}, {1, 0}}, second)
	assert.Equal(t, []string{"drama", "comedy", "sad"}, f.seen)

	other := NewCachedEmbedder(f, cache, "other-model")
	_, err = other.Embed(ctx, []string{"drama"})
	require.NoError(t, err)
	assert.Equal(t, []string{"drama", "comedy", "sad", "drama"}, f.seen)
}

func TestCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()

	cache, err := OpenCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Put("ada", []string{"drama"}, [][]float32{{0.25, -1.5}}))
	require.NoError(t, cache.Close())

	cache, err = OpenCache(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	got, err := cache.Get("ada", []string{"drama", "comedy"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -1.5}, got[0])
	assert.Nil(t, got[1])
}

func TestCache_PutLengthMismatch(t *testing.T) {
	cache, err := OpenCache("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	assert.Error(t, cache.Put("ada", []string{"a", "b"}, [][]float32{{1}}))
}
