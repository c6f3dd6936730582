package domain

import "time"

// DateRange is an optional time window. A nil bound is unbounded.
type DateRange struct {
	// Start is the inclusive lower bound, or nil.
	Start *time.Time

	// End is the inclusive upper bound, or nil.
	End *time.Time
}

// Unbounded reports whether the range has no bounds at all.
func (r DateRange) Unbounded() bool {
	return r.Start == nil && r.End == nil
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// SearchFilter configures an evidence store search. Zero values mean
// "no constraint" for every field except pagination.
type SearchFilter struct {
	// Query is a free-text substring matched against title and body.
	Query string

	// SourceKind restricts results to one source kind when non-empty.
	SourceKind SourceKind

	// Participant is a substring matched against any participant.
	Participant string

	// Range restricts results by record timestamp. Records without a
	// timestamp only match an unbounded range.
	Range DateRange

	// Skip is the number of results to skip.
	Skip int

	// Limit is the maximum number of results per page.
	Limit int
}
