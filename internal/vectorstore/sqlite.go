package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/docmill-ai/docmill/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	idx        INTEGER NOT NULL,
	content    TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// SQLiteStore persists vectors in a local SQLite database and performs
// brute-force cosine search in memory. Suitable for single-machine corpora.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, domain.StorageError("failed to open sqlite database", err)
	}

	// The sqlite3 driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, domain.StorageError("failed to set journal mode", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, domain.StorageError("failed to create schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Upsert inserts entries, replacing rows that share an ID.
func (s *SQLiteStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, idx, content, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			idx = excluded.idx,
			content = excluded.content,
			embedding = excluded.embedding`)
	if err != nil {
		return domain.StorageError("failed to prepare upsert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID.String(), e.Source, e.Index, e.Text, encodeVector(e.Vector)); err != nil {
			return domain.StorageError(fmt.Sprintf("failed to upsert chunk %s", e.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError("failed to commit upsert", err)
	}
	return nil
}

// DeleteSource removes every chunk stored for the given source document.
func (s *SQLiteStore) DeleteSource(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
		return domain.StorageError(fmt.Sprintf("failed to delete chunks for %s", source), err)
	}
	return nil
}

// Search scans all stored vectors and returns the k nearest by cosine
// similarity. Rows whose dimension differs from the query are skipped.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, source, idx, content, embedding FROM chunks")
	if err != nil {
		return nil, domain.StorageError("failed to query chunks", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			idText  string
			source  string
			index   int
			content string
			blob    []byte
		)
		if err := rows.Scan(&idText, &source, &index, &content, &blob); err != nil {
			return nil, domain.StorageError("failed to scan chunk row", err)
		}

		id, err := uuid.Parse(idText)
		if err != nil {
			continue
		}
		vector, err := decodeVector(blob)
		if err != nil || len(vector) != len(query) {
			continue
		}

		matches = append(matches, Match{
			Entry: Entry{ID: id, Source: source, Index: index, Text: content, Vector: vector},
			Score: cosineSimilarity(query, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("failed to iterate chunk rows", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, domain.StorageError("failed to count chunks", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector packs a vector as little-endian float32 bytes.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks little-endian float32 bytes.
func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(buf))
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}
