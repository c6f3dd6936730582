package driven

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// Extractor turns a PDF file into extracted text plus page count.
// The byte-level extraction routine is treated as a black box; the
// PDF adapter only ever sees the result.
type Extractor interface {
	// Extract reads the document at path. An unreadable or encrypted
	// document returns domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, path string) (*domain.ExtractedPDF, error)
}
