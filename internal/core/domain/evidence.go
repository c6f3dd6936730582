package domain

import "time"

// SourceKind identifies which adapter produced an evidence record.
type SourceKind string

const (
	// SourceEmail is a fetched provider email message.
	SourceEmail SourceKind = "email"

	// SourceChat is a single message from an exported chat log.
	SourceChat SourceKind = "chat"

	// SourcePDF is a whole extracted PDF document.
	SourcePDF SourceKind = "pdf"
)

// Valid reports whether the kind is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceEmail, SourceChat, SourcePDF:
		return true
	}
	return false
}

// EvidenceRecord is the canonical unit of ingested material after
// normalisation: one chat line, one email, or one PDF document.
type EvidenceRecord struct {
	// ID is the opaque, store-assigned identifier.
	ID string

	// CaseID scopes the record to a case/matter.
	CaseID string

	// SourceKind identifies the producing adapter.
	SourceKind SourceKind

	// SourceRef is the adapter-specific identifier enabling re-fetch
	// and de-duplication (message id, file#line offset, PDF filename).
	SourceRef string

	// Timestamp is when the underlying event happened. Nil when the
	// artifact carried no parseable date.
	Timestamp *time.Time

	// Participants lists sender, recipients or chat author in order.
	Participants []string

	// Title is a short human label derived by the adapter.
	Title string

	// Body is the full extracted text.
	Body string

	// RawMetadata contains adapter-specific key-value pairs, opaque to
	// the store.
	RawMetadata map[string]any

	// CreatedAt is when the record was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the record was last upserted.
	UpdatedAt time.Time
}

// NaturalKey uniquely identifies the origin artifact of a record.
// (SourceKind, SourceRef) is unique per case; re-ingesting the same
// artifact upserts rather than duplicates.
type NaturalKey struct {
	Kind SourceKind
	Ref  string
}

// NaturalKey returns the record's natural key.
func (r *EvidenceRecord) NaturalKey() NaturalKey {
	return NaturalKey{Kind: r.SourceKind, Ref: r.SourceRef}
}
