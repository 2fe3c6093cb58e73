package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// Local generates deterministic embeddings without calling any external
// service, the default provider. The same text always maps to the same
// unit vector, which keeps re-indexing stable and makes the store
// searchable without credentials.
type Local struct {
	dimension int
}

// NewLocal creates a local embedder with the given dimension.
func NewLocal(dimension int) *Local {
	if dimension <= 0 {
		dimension = 1536
	}
	return &Local{dimension: dimension}
}

// Embed generates deterministic embeddings for the given texts.
func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		embeddings[i] = l.vector(text)
	}
	return embeddings, nil
}

// EmbedSingle generates a deterministic embedding for a single text.
func (l *Local) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := l.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Model returns the local model name.
func (l *Local) Model() string {
	return "local-deterministic"
}

// Dimension returns the embedding dimension.
func (l *Local) Dimension() int {
	return l.dimension
}

// vector hashes the text into a seed and expands it into a unit vector
// with a splitmix64 sequence.
func (l *Local) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, l.dimension)
	for i := range vec {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z ^= z >> 31
		vec[i] = float32(z>>11)/float32(1<<52) - 1.0 // [-1, 1)
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
	return v
}
