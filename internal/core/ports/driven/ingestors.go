package driven

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// The three source adapters share the Ingest capability but take
// structurally different artifacts, so each kind gets its own port.
// Dispatch is by the task's explicit kind field, never by runtime
// type inspection.

// ChatIngestor parses an exported chat log into evidence records.
type ChatIngestor interface {
	// Ingest returns one record per message plus per-line item errors.
	// Only an undecodable file returns a non-nil error (domain.ErrParse).
	Ingest(ctx context.Context, caseID string, export domain.ChatExport) ([]domain.EvidenceRecord, []domain.ItemError, error)
}

// PDFIngestor turns extracted PDF text into a whole-document record.
type PDFIngestor interface {
	// Ingest returns exactly one record, or domain.ErrUnsupportedFormat
	// when extraction yielded no text.
	Ingest(ctx context.Context, caseID string, doc domain.ExtractedPDF) (*domain.EvidenceRecord, error)
}

// EmailIngestor maps fetched provider messages to records.
type EmailIngestor interface {
	// Ingest maps messages 1:1, reporting unmappable ones per item.
	Ingest(ctx context.Context, caseID string, messages []domain.MailMessage) ([]domain.EvidenceRecord, []domain.ItemError)
}
