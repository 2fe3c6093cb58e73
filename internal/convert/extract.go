// Package convert turns input PDFs into markdown documents with extracted
// images.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docmill-ai/docmill/internal/domain"
)

// FitzExtractor extracts page text with MuPDF.
type FitzExtractor struct{}

var _ domain.TextExtractor = (*FitzExtractor)(nil)

// ExtractPages returns the text of every page in order. Pages without text
// are returned with an empty Text so image references can still be placed.
func (FitzExtractor) ExtractPages(ctx context.Context, pdfPath string) ([]domain.PageContent, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.ExtractionError(fmt.Sprintf("failed to open %s", filepath.Base(pdfPath)), err)
	}
	defer doc.Close()

	pages := make([]domain.PageContent, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(n)
		if err != nil {
			return nil, domain.ExtractionError(
				fmt.Sprintf("failed to extract text from page %d of %s", n+1, filepath.Base(pdfPath)), err)
		}
		pages = append(pages, domain.PageContent{Number: n + 1, Text: text})
	}
	return pages, nil
}

// PdfcpuImageExtractor extracts embedded images with pdfcpu.
type PdfcpuImageExtractor struct {
	conf *model.Configuration
}

var _ domain.ImageExtractor = (*PdfcpuImageExtractor)(nil)

// NewPdfcpuImageExtractor creates an image extractor with the default
// pdfcpu configuration.
func NewPdfcpuImageExtractor() *PdfcpuImageExtractor {
	return &PdfcpuImageExtractor{conf: api.LoadConfiguration()}
}

// ExtractImages writes every embedded image of the PDF into outDir and
// returns references grouped into page order. pdfcpu names the files
// <stem>_<page>_<resource>.<ext>, which is how pages are recovered.
//
// Extraction goes through a scratch directory first: pdfcpu writes flat
// names into a shared directory, and documents whose names share a prefix
// (report.pdf, report_2.pdf) would claim each other's files if the shared
// directory were scanned directly.
func (e *PdfcpuImageExtractor) ExtractImages(ctx context.Context, pdfPath, outDir string) ([]domain.ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp(outDir, ".extract-")
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to create scratch directory in %s", outDir), err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractImagesFile(pdfPath, tmpDir, nil, e.conf); err != nil {
		return nil, domain.ExtractionError(
			fmt.Sprintf("failed to extract images from %s", filepath.Base(pdfPath)), err)
	}

	return collectImages(tmpDir, outDir, domain.NewSourceDocument(pdfPath).Stem)
}

// collectImages moves one document's freshly extracted images from tmpDir
// into outDir and returns their references in page order.
func collectImages(tmpDir, outDir, stem string) ([]domain.ImageRef, error) {
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to list %s", tmpDir), err)
	}

	var refs []domain.ImageRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, ok := imageForStem(stem, entry.Name())
		if !ok {
			continue
		}
		if err := os.Rename(filepath.Join(tmpDir, entry.Name()), filepath.Join(outDir, entry.Name())); err != nil {
			return nil, domain.IOError(fmt.Sprintf("failed to move %s into %s", entry.Name(), outDir), err)
		}
		refs = append(refs, domain.ImageRef{File: entry.Name(), Page: page})
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Page != refs[j].Page {
			return refs[i].Page < refs[j].Page
		}
		return refs[i].File < refs[j].File
	})
	return refs, nil
}

// imageForStem reports whether filename is an extracted image of the given
// document and returns its 1-based page number.
func imageForStem(stem, filename string) (int, bool) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if !strings.HasPrefix(base, stem+"_") {
		return 0, false
	}

	rest := base[len(stem)+1:]
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return 0, false
	}
	page, err := strconv.Atoi(parts[0])
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// PdfcpuValidator checks PDFs before conversion.
type PdfcpuValidator struct {
	conf *model.Configuration
}

var _ domain.Validator = (*PdfcpuValidator)(nil)

// NewPdfcpuValidator creates a validator with the default pdfcpu
// configuration.
func NewPdfcpuValidator() *PdfcpuValidator {
	return &PdfcpuValidator{conf: api.LoadConfiguration()}
}

// Validate returns an error for corrupt or unreadable PDFs.
func (v *PdfcpuValidator) Validate(pdfPath string) error {
	if err := api.ValidateFile(pdfPath, v.conf); err != nil {
		return domain.ConversionError(fmt.Sprintf("invalid PDF %s", filepath.Base(pdfPath)), err)
	}
	return nil
}
