package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SourceDocument represents a PDF file discovered in the input directory
type SourceDocument struct {
	Path string
	Stem string // file name without extension, basis for all derived names
}

// NewSourceDocument builds a SourceDocument from a PDF path
func NewSourceDocument(path string) SourceDocument {
	base := filepath.Base(path)
	return SourceDocument{
		Path: path,
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Title renders the heading used at the top of the markdown rendition:
// underscores and hyphens become spaces, words are title-cased
func (d SourceDocument) Title() string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(d.Stem)
	return titleCase(cleaned)
}

// MarkdownName is the derived output file name for this document
func (d SourceDocument) MarkdownName() string {
	return d.Stem + ".md"
}

// PageContent is the extracted text of a single PDF page in reading order
type PageContent struct {
	Number int // 1-based
	Text   string
}

// ImageRef is an image extracted from a PDF into the images directory
type ImageRef struct {
	File string // file name inside the images directory
	Page int    // 1-based source page, 0 when unknown
}

// MarkdownRef renders the relative image reference embedded in markdown
func (r ImageRef) MarkdownRef() string {
	name := strings.TrimSuffix(r.File, filepath.Ext(r.File))
	return fmt.Sprintf("![%s](images/%s)", name, r.File)
}

// ConvertedDocument is a markdown rendition of a source PDF
type ConvertedDocument struct {
	Source string // markdown file name, e.g. "report.md"
	Path   string
	Text   string
}

// Chunk is a fixed-window slice of a converted document
type Chunk struct {
	ID     uuid.UUID
	Source string // markdown file name the chunk came from
	Index  int    // 0-based position within the document
	Text   string
}

// NewChunkID derives a stable chunk identifier from document and position,
// so re-indexing a document overwrites its rows instead of duplicating them
func NewChunkID(source string, index int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, index)))
}

// NewChunk builds a chunk with its derived identifier
func NewChunk(source string, index int, text string) Chunk {
	return Chunk{
		ID:     NewChunkID(source, index),
		Source: source,
		Index:  index,
		Text:   text,
	}
}

// StageReport summarizes a single pipeline stage run
type StageReport struct {
	Stage     string
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

func (r StageReport) String() string {
	return fmt.Sprintf("%s: %d ok, %d failed, %d skipped in %s",
		r.Stage, r.Succeeded, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
}

// AllFailed reports whether every eligible document failed, which is the
// only per-document condition that fails the whole stage
func (r StageReport) AllFailed() bool {
	return r.Failed > 0 && r.Succeeded == 0
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
