package domain

import "context"

// TextExtractor defines the interface for pulling page text out of a PDF
type TextExtractor interface {
	// ExtractPages returns per-page text in reading order
	ExtractPages(ctx context.Context, pdfPath string) ([]PageContent, error)
}

// ImageExtractor defines the interface for pulling embedded images out of a PDF
type ImageExtractor interface {
	// ExtractImages writes the document's images into outDir and returns
	// references grouped by source page
	ExtractImages(ctx context.Context, pdfPath, outDir string) ([]ImageRef, error)
}

// Validator defines the interface for pre-flight PDF checks
type Validator interface {
	// Validate rejects paths that are missing, unreadable, or not parseable PDFs
	Validate(pdfPath string) error
}
