package driving

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// RecordService exposes the unified evidence store to driving
// adapters.
type RecordService interface {
	// Search returns a page of records matching the filter.
	Search(ctx context.Context, caseID string, filter domain.SearchFilter) ([]domain.EvidenceRecord, error)

	// Get retrieves a record by id.
	Get(ctx context.Context, caseID, id string) (*domain.EvidenceRecord, error)

	// Delete removes a record. Derived entities referencing it keep
	// working; their lookups return domain.ErrNotFound.
	Delete(ctx context.Context, caseID, id string) error

	// SourceLookup resolves a weak back-reference from a derived
	// entity to its originating record by natural key.
	SourceLookup(ctx context.Context, caseID string, kind domain.SourceKind, ref string) (*domain.EvidenceRecord, error)
}

// TimelineReader resolves stored timelines for display, marking
// entries whose referenced evidence record no longer exists.
type TimelineReader interface {
	// GetTimeline returns a timeline with SourceMissing set on every
	// entry whose weak reference no longer resolves.
	GetTimeline(ctx context.Context, caseID, id string) (*domain.Timeline, error)
}
