// Package vectorstore provides persistent storage and similarity search for
// chunk embeddings.
package vectorstore

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/docmill-ai/docmill/internal/domain"
)

// Entry represents a chunk vector to be persisted.
type Entry struct {
	ID     uuid.UUID
	Source string
	Index  int
	Text   string
	Vector []float32
}

// FromChunk pairs a chunk with its embedding.
func FromChunk(chunk domain.Chunk, vector []float32) Entry {
	return Entry{
		ID:     chunk.ID,
		Source: chunk.Source,
		Index:  chunk.Index,
		Text:   chunk.Text,
		Vector: vector,
	}
}

// Match is a search result scored by cosine similarity.
type Match struct {
	Entry
	Score float64
}

// Store defines the interface for vector persistence and similarity search.
type Store interface {
	// Upsert inserts or replaces entries by ID.
	Upsert(ctx context.Context, entries []Entry) error

	// DeleteSource removes every entry belonging to a source document.
	DeleteSource(ctx context.Context, source string) error

	// Search returns the k most similar entries to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]Match, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

// ErrDimensionMismatch indicates incomparable vector dimensions.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// cosineSimilarity computes similarity between two vectors of equal length.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
