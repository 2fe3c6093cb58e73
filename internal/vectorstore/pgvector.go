package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docmill-ai/docmill/internal/domain"
)

// PGVectorStore persists vectors in PostgreSQL with the pgvector extension
// and delegates similarity search to the database.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	dimension int
}

var _ Store = (*PGVectorStore)(nil)

// NewPGVectorStore connects to PostgreSQL and ensures the schema exists.
// The dimension fixes the width of the vector column.
func NewPGVectorStore(ctx context.Context, dsn string, dimension int) (*PGVectorStore, error) {
	if dimension <= 0 {
		return nil, domain.ValidationError(fmt.Sprintf("invalid vector dimension %d", dimension), nil)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, domain.StorageError("failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.StorageError("failed to connect to postgres", err)
	}

	s := &PGVectorStore{pool: pool, dimension: dimension}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGVectorStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return domain.StorageError("failed to enable pgvector extension", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunks (
			id         UUID PRIMARY KEY,
			source     TEXT NOT NULL,
			idx        INTEGER NOT NULL,
			content    TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dimension)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return domain.StorageError("failed to create chunks table", err)
	}

	if _, err := s.pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)"); err != nil {
		return domain.StorageError("failed to create source index", err)
	}
	return nil
}

// Upsert inserts entries, replacing rows that share an ID.
func (s *PGVectorStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return domain.StorageError(
				fmt.Sprintf("chunk %s has dimension %d, store expects %d", e.ID, len(e.Vector), s.dimension),
				ErrDimensionMismatch)
		}
		_, err := s.pool.Exec(ctx, `
			INSERT INTO chunks (id, source, idx, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				source = EXCLUDED.source,
				idx = EXCLUDED.idx,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			e.ID, e.Source, e.Index, e.Text, pgvector.NewVector(e.Vector))
		if err != nil {
			return domain.StorageError(fmt.Sprintf("failed to upsert chunk %s", e.ID), err)
		}
	}
	return nil
}

// DeleteSource removes every chunk stored for the given source document.
func (s *PGVectorStore) DeleteSource(ctx context.Context, source string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM chunks WHERE source = $1", source); err != nil {
		return domain.StorageError(fmt.Sprintf("failed to delete chunks for %s", source), err)
	}
	return nil
}

// Search returns the k nearest chunks ordered by cosine distance.
func (s *PGVectorStore) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, domain.StorageError(
			fmt.Sprintf("query has dimension %d, store expects %d", len(query), s.dimension),
			ErrDimensionMismatch)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, source, idx, content, embedding, 1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(query), k)
	if err != nil {
		return nil, domain.StorageError("failed to search chunks", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m      Match
			vector pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Source, &m.Index, &m.Text, &vector, &m.Score); err != nil {
			return nil, domain.StorageError("failed to scan search row", err)
		}
		m.Vector = vector.Slice()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("failed to iterate search rows", err)
	}
	return matches, nil
}

// Count returns the number of stored chunks.
func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, domain.StorageError("failed to count chunks", err)
	}
	return count, nil
}

// Close closes the connection pool.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
