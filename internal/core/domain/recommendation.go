package domain

import "time"

// EvidenceRecommendation is a system-selected, collaborator-scored
// piece of evidence deemed relevant to the case. It back-references
// its originating record by natural key only: lookup, not ownership.
type EvidenceRecommendation struct {
	// ID is the store-assigned identifier.
	ID string

	// CaseID scopes the recommendation to a case/matter.
	CaseID string

	// Title is a short label for the recommendation.
	Title string

	// Description summarises what the evidence shows.
	Description string

	// Relevance is the free-text rationale for why it matters.
	Relevance string

	// SourceKind identifies the originating record's adapter.
	SourceKind SourceKind

	// SourceRef is the originating record's source reference. The
	// record may have been deleted; resolution tolerates NotFound.
	SourceRef string

	// CreatedAt is when the analysis run produced this recommendation.
	CreatedAt time.Time
}
