package driving

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// TaskService accepts ingestion and generation requests and tracks
// their lifecycle. Submission is a two-call protocol: Submit returns
// a task handle immediately; completion is observed by polling GetTask
// or by re-listing the target entity collection. No push notifications
// are provided.
type TaskService interface {
	// Submit accepts a request and starts it on a background worker.
	// Returns domain.ErrConflict when a task of the same kind is
	// already running for the case; the second request is rejected,
	// never queued.
	Submit(ctx context.Context, caseID string, kind domain.TaskKind, params domain.TaskParams) (*domain.GenerationTask, error)

	// GetTask returns the current task state by id.
	GetTask(ctx context.Context, caseID, id string) (*domain.GenerationTask, error)

	// ListTasks returns tasks for a case, optionally filtered by kind.
	ListTasks(ctx context.Context, caseID string, kind domain.TaskKind) ([]domain.GenerationTask, error)

	// Cancel requests cancellation of a running task. The execution
	// unit observes the request between record-level units of work and
	// exits early; partially written derived entities are kept and the
	// task is marked failed. Cancelling a terminal task is a no-op.
	Cancel(ctx context.Context, caseID, id string) error
}
