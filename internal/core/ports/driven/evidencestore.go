package driven

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// EvidenceStore persists evidence records. It exclusively owns record
// lifetime; derived entities hold id-only weak references into it.
type EvidenceStore interface {
	// Upsert stores a record keyed by (case, source_kind, source_ref).
	// A record with the same natural key is updated in place,
	// last-write-wins on every field except the assigned id. The
	// read-check-write is atomic with respect to concurrent upserts.
	// Returns the record id and whether a new row was created.
	Upsert(ctx context.Context, record *domain.EvidenceRecord) (id string, created bool, err error)

	// Get retrieves a record by id.
	Get(ctx context.Context, caseID, id string) (*domain.EvidenceRecord, error)

	// GetBySourceRef retrieves a record by natural key.
	GetBySourceRef(ctx context.Context, caseID string, kind domain.SourceKind, ref string) (*domain.EvidenceRecord, error)

	// Delete removes a record. Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, caseID, id string) error

	// Search returns records matching the filter, ordered descending
	// by timestamp (nulls last) then by id for stability. Pagination
	// is offset+limit; each page is independently fetchable.
	Search(ctx context.Context, caseID string, filter domain.SearchFilter) ([]domain.EvidenceRecord, error)

	// Count returns the number of records for a case.
	Count(ctx context.Context, caseID string) (int, error)
}
