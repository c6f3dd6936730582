package driven

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// TimelineStore persists built timelines.
type TimelineStore interface {
	// Save stores or updates a timeline.
	Save(ctx context.Context, timeline *domain.Timeline) error

	// Get retrieves a timeline by id.
	Get(ctx context.Context, caseID, id string) (*domain.Timeline, error)

	// List returns all timelines for a case, newest first.
	List(ctx context.Context, caseID string) ([]domain.Timeline, error)

	// Delete removes a timeline. Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, caseID, id string) error
}

// RecommendationStore persists the current evidence recommendation set.
type RecommendationStore interface {
	// ReplaceAll atomically swaps the case's recommendation set:
	// the prior set is deleted and the new one inserted in a single
	// transaction, so re-running analysis never appends duplicates.
	ReplaceAll(ctx context.Context, caseID string, recommendations []domain.EvidenceRecommendation) error

	// Get retrieves a recommendation by id.
	Get(ctx context.Context, caseID, id string) (*domain.EvidenceRecommendation, error)

	// List returns the current recommendation set, newest first.
	List(ctx context.Context, caseID string) ([]domain.EvidenceRecommendation, error)

	// Delete removes a single recommendation.
	Delete(ctx context.Context, caseID, id string) error
}

// ReportStore persists assembled reports.
type ReportStore interface {
	// Save stores a report.
	Save(ctx context.Context, report *domain.Report) error

	// Get retrieves a report by id.
	Get(ctx context.Context, caseID, id string) (*domain.Report, error)

	// List returns all reports for a case, newest first.
	List(ctx context.Context, caseID string) ([]domain.Report, error)

	// Delete removes a report. Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, caseID, id string) error
}

// TaskStore persists generation tasks.
type TaskStore interface {
	// Save stores or updates a task.
	Save(ctx context.Context, task *domain.GenerationTask) error

	// Get retrieves a task by id.
	Get(ctx context.Context, caseID, id string) (*domain.GenerationTask, error)

	// List returns tasks for a case, newest first. A non-empty kind
	// restricts the listing to that kind.
	List(ctx context.Context, caseID string, kind domain.TaskKind) ([]domain.GenerationTask, error)
}
