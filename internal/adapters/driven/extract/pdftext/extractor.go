// Package pdftext provides a PDF text extractor for document
// ingestion.
package pdftext

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor extracts plain text from PDF files on disk.
type Extractor struct{}

// New creates a PDF text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the file and returns its text page by page. Pages
// whose text cannot be decoded are skipped; a wholly unreadable file
// fails with domain.ErrParse.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.ExtractedPDF, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s is not a PDF file", domain.ErrUnsupportedFormat, filepath.Base(path))
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrParse, filepath.Base(path), err)
	}
	defer f.Close()

	total := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Skipping undecodable page %d of %s: %v", i, filepath.Base(path), err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return &domain.ExtractedPDF{
		FileName: filepath.Base(path),
		Text:     strings.TrimSpace(sb.String()),
		Pages:    total,
	}, nil
}
