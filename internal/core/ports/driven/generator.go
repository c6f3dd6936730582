package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// EvidenceItem is the shape evidence records take when sent to the
// generation collaborator. Bodies are excerpted by the caller to
// respect payload limits.
type EvidenceItem struct {
	// Ref is the record's source reference, echoed back by the
	// collaborator so results can be mapped to records.
	Ref string

	// Kind is the record's source kind.
	Kind domain.SourceKind

	// Title is the record's short label.
	Title string

	// Body is the (possibly excerpted) record text.
	Body string

	// Timestamp is the record's event time, nil when undated.
	Timestamp *time.Time

	// Participants are the record's participants.
	Participants []string
}

// Candidate is one collaborator-selected piece of evidence.
type Candidate struct {
	// Title is a short label for the selection.
	Title string

	// Description summarises what the evidence shows.
	Description string

	// Relevance is the rationale for the selection.
	Relevance string

	// Kind and Ref identify the originating record. Candidates whose
	// (Kind, Ref) match no stored record are dropped by the caller.
	Kind domain.SourceKind
	Ref  string
}

// ReportContext is the structured input for report composition.
type ReportContext struct {
	// Title is the requested report title.
	Title string

	// Timeline is the timeline the report is built from.
	Timeline *domain.Timeline

	// Recommendations is the current recommendation set.
	Recommendations []domain.EvidenceRecommendation
}

// Generator is the external text-generation collaborator. All calls
// carry a deadline; implementations return domain.ErrTimeout (wrapped)
// when it is exceeded. Output is non-deterministic for identical
// inputs; callers accept this.
type Generator interface {
	// Summarise produces a one-line summary per item, keyed by Ref.
	// Callers chunk large inputs into multiple calls.
	Summarise(ctx context.Context, items []EvidenceItem) (map[string]string, error)

	// SelectEvidence scores a batch of items and returns the subset
	// the collaborator deems relevant.
	SelectEvidence(ctx context.Context, items []EvidenceItem) ([]Candidate, error)

	// ComposeReport generates a report document from structured
	// context. The returned text is stored verbatim.
	ComposeReport(ctx context.Context, rc ReportContext) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
