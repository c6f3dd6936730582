package domain

import "time"

// TimelineEntry is one event on a timeline. It holds a weak reference
// (id only) to the evidence record it was derived from.
type TimelineEntry struct {
	// EvidenceID references the originating evidence record. The
	// record may have been deleted since the timeline was built.
	EvidenceID string

	// Timestamp is the event time. Zero for unplaced entries.
	Timestamp time.Time

	// Summary is the one-line narrative for the event.
	Summary string

	// SourceKind is carried for display and deterministic ordering.
	SourceKind SourceKind

	// SourceMissing is set at read time when the referenced evidence
	// record no longer exists.
	SourceMissing bool
}

// Timeline is an ordered reconstruction of events across ingested
// evidence within an optional date window.
type Timeline struct {
	// ID is the store-assigned identifier.
	ID string

	// CaseID scopes the timeline to a case/matter.
	CaseID string

	// Title is the caller-supplied title.
	Title string

	// Range is the optional date window the timeline covers.
	Range DateRange

	// Entries is sorted ascending by timestamp.
	Entries []TimelineEntry

	// Unplaced lists entries for records without a timestamp; they are
	// never intermixed with the ordered entries.
	Unplaced []TimelineEntry

	// Degraded is set when summarisation partially failed and some
	// entries carry a truncated excerpt instead of a summary.
	Degraded bool

	// CreatedAt is when the timeline was built.
	CreatedAt time.Time
}
