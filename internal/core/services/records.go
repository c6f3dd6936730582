package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/core/ports/driving"
)

// Ensure RecordsService implements the interface.
var _ driving.RecordService = (*RecordsService)(nil)

// RecordsService exposes the unified evidence store to driving
// adapters.
type RecordsService struct {
	store driven.EvidenceStore
}

// NewRecordsService creates a new records service.
func NewRecordsService(store driven.EvidenceStore) *RecordsService {
	return &RecordsService{store: store}
}

// Search returns a page of records matching the filter.
func (s *RecordsService) Search(ctx context.Context, caseID string, filter domain.SearchFilter) ([]domain.EvidenceRecord, error) {
	records, err := s.store.Search(ctx, caseID, filter)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return records, nil
}

// Get retrieves a record by id.
func (s *RecordsService) Get(ctx context.Context, caseID, id string) (*domain.EvidenceRecord, error) {
	return s.store.Get(ctx, caseID, id)
}

// Delete removes a record. Timelines and recommendations referencing
// it keep working; their source lookups report NotFound instead.
func (s *RecordsService) Delete(ctx context.Context, caseID, id string) error {
	return s.store.Delete(ctx, caseID, id)
}

// SourceLookup resolves a weak back-reference by natural key.
func (s *RecordsService) SourceLookup(ctx context.Context, caseID string, kind domain.SourceKind, ref string) (*domain.EvidenceRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, kind)
	}
	return s.store.GetBySourceRef(ctx, caseID, kind, ref)
}
