package domain

import "time"

// ChatExport is an uploaded chat log file prior to parsing.
type ChatExport struct {
	// FileName is the original upload name, used for source refs.
	FileName string

	// Content is the raw file bytes. Must decode as UTF-8 text.
	Content []byte
}

// ExtractedPDF is the output of the external PDF text extraction
// collaborator. The byte-level extraction routine is outside this
// system; adapters only see text plus page count.
type ExtractedPDF struct {
	// FileName is the original document name, used as the source ref.
	FileName string

	// Text is the extracted plain text of the whole document.
	Text string

	// Pages is the page count reported by the extractor.
	Pages int
}

// MailMessage is a provider message with normalised fields. The
// network fetch and auth are performed by the mail provider adapter.
type MailMessage struct {
	// ID is the provider message identifier.
	ID string

	// Sender is the From header value.
	Sender string

	// Recipients are the To header addresses in order.
	Recipients []string

	// Subject is the message subject.
	Subject string

	// Body is the plain-text body.
	Body string

	// Date is the message date. Nil when the header was unparseable.
	Date *time.Time
}

// ItemError records a single per-item failure during ingestion that
// did not abort the batch.
type ItemError struct {
	// Ref identifies the failed item (line offset, address, filename).
	Ref string

	// Message describes the failure.
	Message string
}

// IngestionSummary reports the outcome of one ingestion run.
type IngestionSummary struct {
	// Created counts records newly inserted.
	Created int

	// Updated counts records upserted over an existing natural key.
	Updated int

	// Skipped counts items not turned into records.
	Skipped int

	// Errors lists per-item parse or fetch failures.
	Errors []ItemError
}

// AddError appends a per-item failure to the summary.
func (s *IngestionSummary) AddError(ref, message string) {
	s.Errors = append(s.Errors, ItemError{Ref: ref, Message: message})
}
