// Package index builds the vector database from converted markdown.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/embedding"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/splitter"
	"github.com/docmill-ai/docmill/internal/ui"
	"github.com/docmill-ai/docmill/internal/vectorstore"
)

// DefaultBatchSize bounds how many chunks are embedded per request.
const DefaultBatchSize = 16

// Indexer splits markdown documents into chunks, embeds them, and upserts
// the results into the vector store.
type Indexer struct {
	markdownDir string
	splitter    *splitter.Splitter
	embedder    embedding.Embedder
	store       vectorstore.Store
	batchSize   int
	log         *observability.Logger
}

// Config holds the indexer dependencies.
type Config struct {
	MarkdownDir string
	Splitter    *splitter.Splitter
	Embedder    embedding.Embedder
	Store       vectorstore.Store
	BatchSize   int
	Logger      *observability.Logger
}

// New creates an Indexer.
func New(cfg Config) (*Indexer, error) {
	if cfg.MarkdownDir == "" {
		return nil, domain.ValidationError("markdown directory is required", nil)
	}
	if cfg.Splitter == nil {
		return nil, domain.ValidationError("splitter is required", nil)
	}
	if cfg.Embedder == nil {
		return nil, domain.ValidationError("embedder is required", nil)
	}
	if cfg.Store == nil {
		return nil, domain.ValidationError("vector store is required", nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &Indexer{
		markdownDir: cfg.MarkdownDir,
		splitter:    cfg.Splitter,
		embedder:    cfg.Embedder,
		store:       cfg.Store,
		batchSize:   cfg.BatchSize,
		log:         cfg.Logger,
	}, nil
}

// Run indexes every markdown document found in the markdown directory.
// Individual document failures are logged and skipped; the stage errors
// only if no document could be indexed at all.
func (ix *Indexer) Run(ctx context.Context) (domain.StageReport, error) {
	start := time.Now()
	report := domain.StageReport{Stage: "index"}
	log := ix.log.WithStage("index")

	files, err := listMarkdown(ix.markdownDir)
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}
	if len(files) == 0 {
		log.Warn().Str("dir", ix.markdownDir).Msg("no markdown documents found, nothing to index")
		report.Duration = time.Since(start)
		return report, nil
	}

	log.Info().Int("documents", len(files)).Msg("indexing markdown documents")

	var bar *ui.ProgressBar
	if ui.IsInteractive() {
		bar = ui.NewProgressBar(int64(len(files)), "indexing")
	}
	defer bar.Finish()

	totalChunks := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		bar.Add()

		written, err := ix.indexDocument(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("document", filepath.Base(path)).Msg("failed to index document")
			report.Failed++
			continue
		}
		report.Succeeded++
		totalChunks += written
	}
	report.Duration = time.Since(start)

	if report.AllFailed() {
		return report, fmt.Errorf("all %d documents failed to index", report.Failed)
	}

	if count, err := ix.store.Count(ctx); err == nil {
		log.Info().
			Int("documents", report.Succeeded).
			Int("chunks", totalChunks).
			Int64("store_total", count).
			Msg("indexing complete")
	} else {
		log.Info().
			Int("documents", report.Succeeded).
			Int("chunks", totalChunks).
			Msg("indexing complete")
	}
	return report, nil
}

// indexDocument embeds one markdown file and replaces its chunks in the
// store. The store is only touched after every batch embedded cleanly, so
// a failed document leaves its previous index intact.
func (ix *Indexer) indexDocument(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, domain.IOError(fmt.Sprintf("failed to read %s", path), err)
	}

	source := filepath.Base(path)
	log := ix.log.WithStage("index").WithDocument(source)

	chunks := ix.splitter.ChunkDocument(domain.ConvertedDocument{
		Source: source,
		Path:   path,
		Text:   string(data),
	})
	if len(chunks) == 0 {
		log.Debug().Msg("document has no indexable content")
		if err := ix.store.DeleteSource(ctx, source); err != nil {
			return 0, err
		}
		return 0, nil
	}

	entries := make([]vectorstore.Entry, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, domain.EmbeddingError(fmt.Sprintf("failed to embed batch starting at chunk %d", start), err)
		}
		if len(vectors) != len(batch) {
			return 0, domain.EmbeddingError(
				fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(batch)), nil)
		}
		for i, c := range batch {
			entries = append(entries, vectorstore.FromChunk(c, vectors[i]))
		}
	}

	// Clear stale chunks first so documents that shrank do not leave
	// orphaned tail entries behind.
	if err := ix.store.DeleteSource(ctx, source); err != nil {
		return 0, err
	}
	if err := ix.store.Upsert(ctx, entries); err != nil {
		return 0, err
	}

	log.Debug().Int("chunks", len(entries)).Msg("document indexed")
	return len(entries), nil
}

// listMarkdown returns the markdown files directly inside dir, sorted by
// name. The images subdirectory is not descended into.
func listMarkdown(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to list markdown in %s", dir), err)
	}
	sort.Strings(files)
	return files, nil
}
