package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"

	"github.com/i2y/moviemood/logging"
)

const cacheKeyPrefix = "emb:"

// Cache stores embeddings on disk, keyed by model and text hash.
type Cache struct {
	db *badger.DB
}

// OpenCache opens a cache in dir. An empty dir keeps everything in memory.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte(cacheKeyPrefix + model + ":" + hex.EncodeToString(sum[:]))
}

// Get returns the cached vectors for texts. Misses are nil.
func (c *Cache) Get(model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := c.db.View(func(txn *badger.Txn) error {
		for i, text := range texts {
			item, err := txn.Get(cacheKey(model, text))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get embedding: %w", err)
			}

			err = item.Value(func(val []byte) error {
				v, err := decodeVector(val)
				out[i] = v
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put stores vectors[i] for texts[i].
func (c *Cache) Put(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("put embeddings: %d texts, %d vectors", len(texts), len(vectors))
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for i, text := range texts {
		if err := wb.Set(cacheKey(model, text), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("set embedding: %w", err)
		}
	}
	return wb.Flush()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached embedding of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// CachedEmbedder embeds only the texts the cache has not seen.
type CachedEmbedder struct {
	next  Embedder
	cache *Cache
	model string
}

// NewCachedEmbedder wraps next. model namespaces the cache entries.
func NewCachedEmbedder(next Embedder, cache *Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model}
}

// Embed implements Embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.cache.Get(e.model, texts)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("embedding cache read failed, embedding everything")
		out = make([][]float32, len(texts))
	}

	var missIdx []int
	var missText []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missText = append(missText, texts[i])
		}
	}
	if len(missText) == 0 {
		return out, nil
	}

	logging.Ctx(ctx).Debug().
		Int("hits", len(texts)-len(missText)).
		Int("misses", len(missText)).
		Msg("embedding cache")

	fresh, err := e.next.Embed(ctx, missText)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missText) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d texts", len(fresh), len(missText))
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
	}

	if err := e.cache.Put(e.model, missText, fresh); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("embedding cache write failed")
	}
	return out, nil
}
