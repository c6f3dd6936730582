package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.TimelineStore       = (*TimelineStore)(nil)
	_ driven.RecommendationStore = (*RecommendationStore)(nil)
	_ driven.ReportStore         = (*ReportStore)(nil)
	_ driven.TaskStore           = (*TaskStore)(nil)
)

// TimelineStore is an in-memory implementation of driven.TimelineStore.
type TimelineStore struct {
	mu        sync.RWMutex
	timelines map[string]domain.Timeline
}

// NewTimelineStore creates a new in-memory timeline store.
func NewTimelineStore() *TimelineStore {
	return &TimelineStore{timelines: make(map[string]domain.Timeline)}
}

// Save stores or updates a timeline.
func (s *TimelineStore) Save(_ context.Context, timeline *domain.Timeline) error {
	if timeline == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelines[timeline.ID] = *timeline
	return nil
}

// Get retrieves a timeline by ID.
func (s *TimelineStore) Get(_ context.Context, caseID, id string) (*domain.Timeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	timeline, ok := s.timelines[id]
	if !ok || timeline.CaseID != caseID {
		return nil, domain.ErrNotFound
	}
	return &timeline, nil
}

// List returns all timelines for a case, newest first.
func (s *TimelineStore) List(_ context.Context, caseID string) ([]domain.Timeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Timeline
	for id := range s.timelines {
		timeline := s.timelines[id]
		if timeline.CaseID == caseID {
			result = append(result, timeline)
		}
	}
	sortNewestFirst(result, func(t domain.Timeline) (string, int64) {
		return t.ID, t.CreatedAt.UnixNano()
	})
	return result, nil
}

// Delete removes a timeline.
func (s *TimelineStore) Delete(_ context.Context, caseID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	timeline, ok := s.timelines[id]
	if !ok || timeline.CaseID != caseID {
		return domain.ErrNotFound
	}
	delete(s.timelines, id)
	return nil
}

// RecommendationStore is an in-memory implementation of
// driven.RecommendationStore.
type RecommendationStore struct {
	mu   sync.RWMutex
	recs map[string][]domain.EvidenceRecommendation
}

// NewRecommendationStore creates a new in-memory recommendation store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{recs: make(map[string][]domain.EvidenceRecommendation)}
}

// ReplaceAll swaps the case's recommendation set.
func (s *RecommendationStore) ReplaceAll(_ context.Context, caseID string, recommendations []domain.EvidenceRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[caseID] = append([]domain.EvidenceRecommendation(nil), recommendations...)
	return nil
}

// Get retrieves a recommendation by ID.
func (s *RecommendationStore) Get(_ context.Context, caseID, id string) (*domain.EvidenceRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.recs[caseID] {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns the current recommendation set, newest first.
func (s *RecommendationStore) List(_ context.Context, caseID string) ([]domain.EvidenceRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := append([]domain.EvidenceRecommendation(nil), s.recs[caseID]...)
	sortNewestFirst(result, func(r domain.EvidenceRecommendation) (string, int64) {
		return r.ID, r.CreatedAt.UnixNano()
	})
	return result, nil
}

// Delete removes a single recommendation.
func (s *RecommendationStore) Delete(_ context.Context, caseID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.recs[caseID]
	for i, rec := range recs {
		if rec.ID == id {
			s.recs[caseID] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ReportStore is an in-memory implementation of driven.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]domain.Report)}
}

// Save stores a report.
func (s *ReportStore) Save(_ context.Context, report *domain.Report) error {
	if report == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = *report
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(_ context.Context, caseID, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok || report.CaseID != caseID {
		return nil, domain.ErrNotFound
	}
	return &report, nil
}

// List returns all reports for a case, newest first.
func (s *ReportStore) List(_ context.Context, caseID string) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Report
	for id := range s.reports {
		report := s.reports[id]
		if report.CaseID == caseID {
			result = append(result, report)
		}
	}
	sortNewestFirst(result, func(r domain.Report) (string, int64) {
		return r.ID, r.CreatedAt.UnixNano()
	})
	return result, nil
}

// Delete removes a report.
func (s *ReportStore) Delete(_ context.Context, caseID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok || report.CaseID != caseID {
		return domain.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

// TaskStore is an in-memory implementation of driven.TaskStore.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.GenerationTask
}

// NewTaskStore creates a new in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]domain.GenerationTask)}
}

// Save stores or updates a task.
func (s *TaskStore) Save(_ context.Context, task *domain.GenerationTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	if task.Summary != nil {
		summary := *task.Summary
		copied.Summary = &summary
	}
	s.tasks[task.ID] = copied
	return nil
}

// Get retrieves a task by ID.
func (s *TaskStore) Get(_ context.Context, caseID, id string) (*domain.GenerationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok || task.CaseID != caseID {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

// List returns tasks for a case, newest first, optionally filtered
// by kind.
func (s *TaskStore) List(_ context.Context, caseID string, kind domain.TaskKind) ([]domain.GenerationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.GenerationTask
	for id := range s.tasks {
		task := s.tasks[id]
		if task.CaseID != caseID {
			continue
		}
		if kind != "" && task.Kind != kind {
			continue
		}
		result = append(result, task)
	}
	sortNewestFirst(result, func(t domain.GenerationTask) (string, int64) {
		return t.ID, t.CreatedAt.UnixNano()
	})
	return result, nil
}

// sortNewestFirst orders by creation time descending, id ascending
// for ties, matching the SQLite listing order.
func sortNewestFirst[T any](items []T, key func(T) (string, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		idI, atI := key(items[i])
		idJ, atJ := key(items[j])
		if atI != atJ {
			return atI > atJ
		}
		return idI < idJ
	})
}
