package domain

import "time"

// Report is a generated document combining a timeline with the
// current evidence recommendations.
type Report struct {
	// ID is the store-assigned identifier.
	ID string

	// CaseID scopes the report to a case/matter.
	CaseID string

	// Title is the caller-supplied title.
	Title string

	// TimelineID references the timeline the report was built from.
	TimelineID string

	// Content is the collaborator-generated document body, stored
	// verbatim.
	Content string

	// CreatedAt is when the report was assembled.
	CreatedAt time.Time
}
