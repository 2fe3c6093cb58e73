// Package splitter cuts document text into fixed-size windows with overlap.
package splitter

import (
	"strings"

	"github.com/docmill-ai/docmill/internal/domain"
)

// Splitter produces rune windows of a fixed size where consecutive windows
// share overlap runes. For text of L runes it yields one window when
// L <= size, and ceil((L-overlap)/(size-overlap)) windows otherwise.
type Splitter struct {
	size    int
	overlap int
}

// New validates the window geometry. Overlap must leave the window room to
// advance, so it is required to be strictly below size.
func New(size, overlap int) (*Splitter, error) {
	if size < 1 {
		return nil, domain.ValidationError("chunk size must be positive", nil)
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.ValidationError("chunk overlap must be in [0, size)", nil)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the window size in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the shared runes between consecutive windows.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the windows in document order. Windows are cut on rune
// boundaries so multi-byte text never splits mid-codepoint. Empty input
// yields no windows.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	step := s.size - s.overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ChunkDocument splits a converted document into domain chunks with stable
// identifiers, dropping windows that hold only whitespace.
func (s *Splitter) ChunkDocument(doc domain.ConvertedDocument) []domain.Chunk {
	var chunks []domain.Chunk
	for _, text := range s.Split(doc.Text) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, domain.NewChunk(doc.Source, len(chunks), text))
	}
	return chunks
}
