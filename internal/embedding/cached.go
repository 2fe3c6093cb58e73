package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/docmill-ai/docmill/internal/cache"
	"github.com/docmill-ai/docmill/internal/observability"
)

// Cached wraps an Embedder so identical chunk text is embedded once per
// model. Cache failures degrade to the inner embedder, never to an error.
type Cached struct {
	inner Embedder
	store cache.Client
	ttl   time.Duration
	log   *observability.Logger
}

// WithCache builds a caching wrapper around an embedder.
func WithCache(inner Embedder, store cache.Client, ttl time.Duration, log *observability.Logger) *Cached {
	return &Cached{
		inner: inner,
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// Embed answers what it can from cache and forwards only the misses.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		data, err := c.store.Get(ctx, c.key(text))
		if err == nil {
			if vec, decErr := decodeVector(data); decErr == nil {
				results[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	vectors, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, vec := range vectors {
		results[missingIdx[j]] = vec
		if len(vec) == 0 {
			continue
		}
		if err := c.store.Set(ctx, c.key(missing[j]), encodeVector(vec), c.ttl); err != nil && c.log != nil {
			c.log.Debug().Err(err).Msg("embedding cache set failed")
		}
	}

	return results, nil
}

// EmbedSingle generates or recalls an embedding for a single text.
func (c *Cached) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Model returns the inner model name.
func (c *Cached) Model() string {
	return c.inner.Model()
}

// Dimension returns the inner embedding dimension.
func (c *Cached) Dimension() int {
	return c.inner.Dimension()
}

// key scopes the cache entry to the model so switching models never
// recalls stale vectors.
func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Model() + "\x00" + text))
	return cache.Key("embedding", hex.EncodeToString(sum[:]))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("malformed vector payload of %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
