package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// defaultSearchLimit caps unbounded search requests.
const defaultSearchLimit = 50

// Ensure EvidenceStore implements the interface.
var _ driven.EvidenceStore = (*EvidenceStore)(nil)

// EvidenceStore is an in-memory implementation of driven.EvidenceStore.
type EvidenceStore struct {
	mu      sync.RWMutex
	records map[string]domain.EvidenceRecord
}

// NewEvidenceStore creates a new in-memory evidence store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{
		records: make(map[string]domain.EvidenceRecord),
	}
}

// Upsert stores or updates a record keyed by (case, source kind,
// source ref).
func (s *EvidenceStore) Upsert(_ context.Context, record *domain.EvidenceRecord) (string, bool, error) {
	if record == nil {
		return "", false, domain.ErrInvalidInput
	}
	if record.CaseID == "" || record.SourceRef == "" || !record.SourceKind.Valid() {
		return "", false, fmt.Errorf("%w: record needs a case, a valid source kind and a source ref", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range s.records {
		if existing.CaseID == record.CaseID &&
			existing.SourceKind == record.SourceKind &&
			existing.SourceRef == record.SourceRef {
			record.ID = id
			record.CreatedAt = existing.CreatedAt
			record.UpdatedAt = now
			s.records[id] = *record
			return id, false, nil
		}
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = *record
	return record.ID, true, nil
}

// Get retrieves a record by ID within a case.
func (s *EvidenceStore) Get(_ context.Context, caseID, id string) (*domain.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok || record.CaseID != caseID {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// GetBySourceRef retrieves a record by its natural key.
func (s *EvidenceStore) GetBySourceRef(_ context.Context, caseID string, kind domain.SourceKind, ref string) (*domain.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.records {
		record := s.records[id]
		if record.CaseID == caseID && record.SourceKind == kind && record.SourceRef == ref {
			return &record, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Delete removes a record.
func (s *EvidenceStore) Delete(_ context.Context, caseID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok || record.CaseID != caseID {
		return domain.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Search returns records matching the filter, newest first with
// undated records last.
func (s *EvidenceStore) Search(_ context.Context, caseID string, filter domain.SearchFilter) ([]domain.EvidenceRecord, error) {
	if filter.SourceKind != "" && !filter.SourceKind.Valid() {
		return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, filter.SourceKind)
	}

	s.mu.RLock()
	var matched []domain.EvidenceRecord
	for id := range s.records {
		record := s.records[id]
		if record.CaseID == caseID && matches(&record, filter) {
			matched = append(matched, record)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Timestamp, matched[j].Timestamp
		switch {
		case a == nil && b == nil:
			return matched[i].ID < matched[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return matched[i].ID < matched[j].ID
	})

	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of records stored for a case.
func (s *EvidenceStore) Count(_ context.Context, caseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.records {
		if record.CaseID == caseID {
			count++
		}
	}
	return count, nil
}

// matches applies all filter clauses to one record.
func matches(record *domain.EvidenceRecord, filter domain.SearchFilter) bool {
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(record.Title), q) &&
			!strings.Contains(strings.ToLower(record.Body), q) {
			return false
		}
	}
	if filter.SourceKind != "" && record.SourceKind != filter.SourceKind {
		return false
	}
	if filter.Participant != "" {
		p := strings.ToLower(filter.Participant)
		found := false
		for _, participant := range record.Participants {
			if strings.Contains(strings.ToLower(participant), p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.Range.Unbounded() {
		// Undated records only match an unbounded range.
		if record.Timestamp == nil || !filter.Range.Contains(*record.Timestamp) {
			return false
		}
	}
	return true
}
