package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("embeddings")

// Cache is a persistent embedding cache keyed by content hash. It
// avoids re-embedding unchanged text across pipeline runs.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (or creates) the bbolt cache file.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached vector for a text, if present.
func (c *Cache) Get(model, text string) ([]float32, bool) {
	var vec []float32
	key := cacheKey(model, text)

	_ = c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(cacheBucket).Get(key)
		if data != nil {
			vec = decodeVector(data)
		}
		return nil
	})

	return vec, vec != nil
}

// Put stores a vector under the text's content key.
func (c *Cache) Put(model, text string, vec []float32) error {
	key := cacheKey(model, text)
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put(key, encodeVector(vec))
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return h[:]
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}

// CachingProvider wraps a Provider with the persistent cache.
type CachingProvider struct {
	inner Provider
	cache *Cache
	model string
}

// NewCachingProvider wraps inner with cache lookups keyed by model+text.
func NewCachingProvider(inner Provider, cache *Cache, model string) *CachingProvider {
	return &CachingProvider{inner: inner, cache: cache, model: model}
}

// Embed returns a cached vector when available.
func (p *CachingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.cache.Get(p.model, text); ok {
		return vec, nil
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Put(p.model, text, vec); err != nil {
		return nil, fmt.Errorf("failed to cache embedding: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds only the cache misses remotely.
func (p *CachingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := p.cache.Get(p.model, text); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := p.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range vecs {
		out[missIdx[j]] = vec
		if err := p.cache.Put(p.model, missTexts[j], vec); err != nil {
			return nil, fmt.Errorf("failed to cache embedding: %w", err)
		}
	}

	return out, nil
}

// Dimensions returns the wrapped provider's vector width
func (p *CachingProvider) Dimensions() int {
	return p.inner.Dimensions()
}

// Close closes the wrapped provider but not the shared cache.
func (p *CachingProvider) Close() error {
	return p.inner.Close()
}
