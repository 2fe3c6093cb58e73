package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/ui"
)

// Converter is the convert stage: it walks the input directory and writes
// one markdown file per PDF.
type Converter struct {
	inputDir    string
	markdownDir string
	imagesDir   string
	text        domain.TextExtractor
	images      domain.ImageExtractor
	validator   domain.Validator
	log         *observability.Logger
}

// Config holds the converter dependencies. Images and Validator may be nil
// to disable image extraction or validation.
type Config struct {
	InputDir    string
	MarkdownDir string
	ImagesDir   string
	Text        domain.TextExtractor
	Images      domain.ImageExtractor
	Validator   domain.Validator
	Logger      *observability.Logger
}

// New creates a Converter.
func New(cfg Config) (*Converter, error) {
	if cfg.InputDir == "" || cfg.MarkdownDir == "" {
		return nil, domain.ValidationError("input and markdown directories are required", nil)
	}
	if cfg.Text == nil {
		return nil, domain.ValidationError("text extractor is required", nil)
	}
	if cfg.Images != nil && cfg.ImagesDir == "" {
		return nil, domain.ValidationError("images directory is required when image extraction is enabled", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &Converter{
		inputDir:    cfg.InputDir,
		markdownDir: cfg.MarkdownDir,
		imagesDir:   cfg.ImagesDir,
		text:        cfg.Text,
		images:      cfg.Images,
		validator:   cfg.Validator,
		log:         cfg.Logger,
	}, nil
}

// Run converts every PDF in the input directory. Documents whose markdown
// already exists are skipped. A document failure is logged and the loop
// continues; the stage errors only if every eligible document failed.
func (c *Converter) Run(ctx context.Context) (domain.StageReport, error) {
	start := time.Now()
	report := domain.StageReport{Stage: "convert"}
	log := c.log.WithStage("convert")

	pdfs, err := filepath.Glob(filepath.Join(c.inputDir, "*.pdf"))
	if err != nil {
		report.Duration = time.Since(start)
		return report, domain.IOError(fmt.Sprintf("failed to list PDFs in %s", c.inputDir), err)
	}
	sort.Strings(pdfs)

	if len(pdfs) == 0 {
		log.Info().Str("dir", c.inputDir).Msg("no PDF files found, nothing to convert")
		report.Duration = time.Since(start)
		return report, nil
	}

	log.Info().Int("documents", len(pdfs)).Msg("converting PDF documents")

	var bar *ui.ProgressBar
	if ui.IsInteractive() {
		bar = ui.NewProgressBar(int64(len(pdfs)), "converting")
	}
	defer bar.Finish()

	for _, path := range pdfs {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		bar.Add()

		source := domain.NewSourceDocument(path)
		outPath := filepath.Join(c.markdownDir, source.MarkdownName())

		if _, err := os.Stat(outPath); err == nil {
			log.Debug().Str("document", filepath.Base(path)).Msg("markdown exists, skipping")
			report.Skipped++
			continue
		}

		if err := c.convertOne(ctx, source, outPath); err != nil {
			log.Error().Err(err).Str("document", filepath.Base(path)).Msg("failed to convert document")
			report.Failed++
			continue
		}
		report.Succeeded++
	}
	report.Duration = time.Since(start)

	if report.AllFailed() {
		return report, fmt.Errorf("all %d documents failed to convert", report.Failed)
	}

	log.Info().
		Int("converted", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("conversion complete")
	return report, nil
}

func (c *Converter) convertOne(ctx context.Context, source domain.SourceDocument, outPath string) error {
	log := c.log.WithStage("convert").WithDocument(filepath.Base(source.Path))

	if c.validator != nil {
		if err := c.validator.Validate(source.Path); err != nil {
			return err
		}
	}

	pages, err := c.text.ExtractPages(ctx, source.Path)
	if err != nil {
		return err
	}

	var images []domain.ImageRef
	if c.images != nil {
		images, err = c.images.ExtractImages(ctx, source.Path, c.imagesDir)
		if err != nil {
			return err
		}
	}

	content := RenderMarkdown(source, pages, images)
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return domain.IOError(fmt.Sprintf("failed to write %s", outPath), err)
	}

	log.Debug().Int("pages", len(pages)).Int("images", len(images)).Msg("document converted")
	return nil
}
