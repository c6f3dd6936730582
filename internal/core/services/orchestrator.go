package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/core/ports/driving"
	"github.com/custodia-labs/casefile/internal/logger"
)

// defaultWorkers bounds how many tasks execute concurrently.
const defaultWorkers = 4

// inflightKey identifies the mutual-exclusion scope: at most one
// task per (case, kind) may be running at a time.
type inflightKey struct {
	caseID string
	kind   domain.TaskKind
}

// TaskOrchestrator runs ingestion and generation work on background
// workers and tracks every run as a persisted task. Submission never
// blocks on execution; callers poll the task for completion.
type TaskOrchestrator struct {
	tasks driven.TaskStore

	ingest    *IngestService
	timelines *TimelineBuilder
	analyser  *EvidenceAnalyser
	reports   *ReportAssembler

	workers chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[inflightKey]string
	cancels  map[string]context.CancelFunc
	stopped  bool

	baseCtx context.Context
	stop    context.CancelFunc
}

var _ driving.TaskService = (*TaskOrchestrator)(nil)

// NewTaskOrchestrator creates an orchestrator with the given worker
// limit. workers <= 0 uses the default.
func NewTaskOrchestrator(
	tasks driven.TaskStore,
	ingest *IngestService,
	timelines *TimelineBuilder,
	analyser *EvidenceAnalyser,
	reports *ReportAssembler,
	workers int,
) *TaskOrchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskOrchestrator{
		tasks:     tasks,
		ingest:    ingest,
		timelines: timelines,
		analyser:  analyser,
		reports:   reports,
		workers:   make(chan struct{}, workers),
		inflight:  make(map[inflightKey]string),
		cancels:   make(map[string]context.CancelFunc),
		baseCtx:   ctx,
		stop:      cancel,
	}
}

// Submit validates the request, persists a queued task and starts it
// on a background worker. A task of the same kind already in flight
// for the case rejects the request with domain.ErrConflict; requests
// are never queued behind each other.
func (o *TaskOrchestrator) Submit(ctx context.Context, caseID string, kind domain.TaskKind, params domain.TaskParams) (*domain.GenerationTask, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", domain.ErrInvalidInput)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown task kind %q", domain.ErrInvalidInput, kind)
	}
	if err := validateParams(kind, params); err != nil {
		return nil, err
	}

	task := &domain.GenerationTask{
		ID:          uuid.New().String(),
		CaseID:      caseID,
		Kind:        kind,
		Status:      domain.TaskQueued,
		InputParams: echoParams(kind, params),
		CreatedAt:   time.Now().UTC(),
	}

	key := inflightKey{caseID: caseID, kind: kind}

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: orchestrator is shut down", domain.ErrConflict)
	}
	if runningID, busy := o.inflight[key]; busy {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: task %s of kind %s is already running for this case", domain.ErrConflict, runningID, kind)
	}
	o.inflight[key] = task.ID
	runCtx, cancel := context.WithCancel(o.baseCtx)
	o.cancels[task.ID] = cancel
	o.mu.Unlock()

	if err := o.tasks.Save(ctx, task); err != nil {
		o.release(key, task.ID)
		return nil, fmt.Errorf("save task: %w", err)
	}

	o.wg.Add(1)
	go o.run(runCtx, task, params, key)

	logger.Info("Accepted %s task %s", kind, task.ID)
	return task, nil
}

// GetTask returns the current task state by id.
func (o *TaskOrchestrator) GetTask(ctx context.Context, caseID, id string) (*domain.GenerationTask, error) {
	return o.tasks.Get(ctx, caseID, id)
}

// ListTasks returns tasks for a case, optionally filtered by kind.
// An empty kind lists everything.
func (o *TaskOrchestrator) ListTasks(ctx context.Context, caseID string, kind domain.TaskKind) ([]domain.GenerationTask, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown task kind %q", domain.ErrInvalidInput, kind)
	}
	return o.tasks.List(ctx, caseID, kind)
}

// Cancel requests cancellation of a running task. The running
// executor observes the request between units of work; partial
// results written so far are kept. Cancelling a terminal task is a
// no-op.
func (o *TaskOrchestrator) Cancel(ctx context.Context, caseID, id string) error {
	task, err := o.tasks.Get(ctx, caseID, id)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return nil
	}

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
		logger.Info("Cancellation requested for task %s", id)
	}
	return nil
}

// Stop cancels all running tasks and waits for workers to drain.
func (o *TaskOrchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.stop()
	o.wg.Wait()
}

// run executes one task: acquire a worker slot, flip to running,
// dispatch by kind and record the terminal state. Persistence of the
// terminal state uses a fresh context so shutdown cannot lose it.
func (o *TaskOrchestrator) run(ctx context.Context, task *domain.GenerationTask, params domain.TaskParams, key inflightKey) {
	defer o.wg.Done()
	defer o.release(key, task.ID)

	select {
	case o.workers <- struct{}{}:
		defer func() { <-o.workers }()
	case <-ctx.Done():
		o.finish(task, fmt.Errorf("%w: cancelled while queued", domain.ErrCancelled))
		return
	}

	if !o.transition(task, domain.TaskRunning) {
		return
	}
	now := time.Now().UTC()
	task.StartedAt = &now
	o.persist(task)

	o.finish(task, o.execute(ctx, task, params))
}

// execute dispatches by the explicit task kind. Result references and
// ingestion summaries are written onto the task in place.
func (o *TaskOrchestrator) execute(ctx context.Context, task *domain.GenerationTask, params domain.TaskParams) error {
	switch task.Kind {
	case domain.TaskIngestChat:
		summary, err := o.ingest.IngestChat(ctx, task.CaseID, *params.Chat)
		task.Summary = summary
		return err

	case domain.TaskIngestPDF:
		summary, err := o.ingest.IngestPDF(ctx, task.CaseID, *params.PDF)
		task.Summary = summary
		return err

	case domain.TaskIngestEmail:
		summary, err := o.ingest.IngestEmail(ctx, task.CaseID, *params.Email)
		task.Summary = summary
		return err

	case domain.TaskBuildTimeline:
		timeline, err := o.timelines.Build(ctx, task.CaseID, *params.Timeline)
		if err != nil {
			return err
		}
		task.ResultRef = timeline.ID
		return nil

	case domain.TaskAnalyseEvidence:
		_, err := o.analyser.Analyse(ctx, task.CaseID)
		return err

	case domain.TaskBuildReport:
		report, err := o.reports.Assemble(ctx, task.CaseID, params.Report.TimelineID, params.Report.Title)
		if err != nil {
			return err
		}
		task.ResultRef = report.ID
		return nil
	}
	return fmt.Errorf("%w: unknown task kind %q", domain.ErrInvalidInput, task.Kind)
}

// finish records the terminal state. Cancellation counts as failure
// with an explicit reason so callers can tell it apart from errors.
func (o *TaskOrchestrator) finish(task *domain.GenerationTask, err error) {
	to := domain.TaskSucceeded
	reason := ""
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled):
		to = domain.TaskFailed
		reason = "cancelled by request"
	default:
		to = domain.TaskFailed
		reason = err.Error()
	}

	if !o.transition(task, to) {
		return
	}
	now := time.Now().UTC()
	task.FinishedAt = &now
	task.Error = reason

	switch {
	case to == domain.TaskSucceeded:
		logger.Info("Task %s succeeded", task.ID)
	case reason == "cancelled by request":
		logger.Info("Task %s cancelled", task.ID)
	default:
		logger.Warn("Task %s failed: %v", task.ID, err)
	}

	o.persist(task)
}

// transition applies a status change, refusing any move that would
// revive a terminal task or skip a lifecycle state.
func (o *TaskOrchestrator) transition(task *domain.GenerationTask, to domain.TaskStatus) bool {
	if !task.Status.CanTransition(to) {
		logger.Warn("Refusing %s -> %s for task %s", task.Status, to, task.ID)
		return false
	}
	task.Status = to
	return true
}

// persist saves the task on a detached context so in-flight request
// or shutdown cancellation never drops a state transition.
func (o *TaskOrchestrator) persist(task *domain.GenerationTask) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.tasks.Save(ctx, task); err != nil {
		logger.Warn("Failed to persist task %s state %s: %v", task.ID, task.Status, err)
	}
}

// release frees the (case, kind) slot and the cancel registration.
func (o *TaskOrchestrator) release(key inflightKey, taskID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[key] == taskID {
		delete(o.inflight, key)
	}
	if cancel, ok := o.cancels[taskID]; ok {
		cancel()
		delete(o.cancels, taskID)
	}
}

// validateParams checks that the variant matching the kind is set and
// structurally sound. Dispatch is by kind, never by probing pointers.
func validateParams(kind domain.TaskKind, params domain.TaskParams) error {
	switch kind {
	case domain.TaskIngestChat:
		if params.Chat == nil {
			return fmt.Errorf("%w: chat export is required", domain.ErrInvalidInput)
		}
		if params.Chat.FileName == "" || len(params.Chat.Content) == 0 {
			return fmt.Errorf("%w: chat export needs a file name and content", domain.ErrInvalidInput)
		}
	case domain.TaskIngestPDF:
		if params.PDF == nil {
			return fmt.Errorf("%w: extracted document is required", domain.ErrInvalidInput)
		}
		if params.PDF.FileName == "" {
			return fmt.Errorf("%w: document needs a file name", domain.ErrInvalidInput)
		}
	case domain.TaskIngestEmail:
		if params.Email == nil || len(params.Email.Addresses) == 0 {
			return fmt.Errorf("%w: at least one address is required", domain.ErrInvalidInput)
		}
	case domain.TaskBuildTimeline:
		if params.Timeline == nil {
			return fmt.Errorf("%w: timeline parameters are required", domain.ErrInvalidInput)
		}
	case domain.TaskAnalyseEvidence:
		// No parameters.
	case domain.TaskBuildReport:
		if params.Report == nil || params.Report.TimelineID == "" {
			return fmt.Errorf("%w: timeline id is required", domain.ErrInvalidInput)
		}
	}
	return nil
}

// echoParams flattens the request inputs for display on the task.
func echoParams(kind domain.TaskKind, params domain.TaskParams) map[string]any {
	echo := map[string]any{}
	switch kind {
	case domain.TaskIngestChat:
		echo["file_name"] = params.Chat.FileName
		echo["size_bytes"] = len(params.Chat.Content)
	case domain.TaskIngestPDF:
		echo["file_name"] = params.PDF.FileName
		echo["pages"] = params.PDF.Pages
	case domain.TaskIngestEmail:
		echo["addresses"] = params.Email.Addresses
		if params.Email.Range.Start != nil {
			echo["start"] = params.Email.Range.Start.Format(time.RFC3339)
		}
		if params.Email.Range.End != nil {
			echo["end"] = params.Email.Range.End.Format(time.RFC3339)
		}
	case domain.TaskBuildTimeline:
		echo["title"] = params.Timeline.Title
		if params.Timeline.Range.Start != nil {
			echo["start"] = params.Timeline.Range.Start.Format(time.RFC3339)
		}
		if params.Timeline.Range.End != nil {
			echo["end"] = params.Timeline.Range.End.Format(time.RFC3339)
		}
	case domain.TaskBuildReport:
		echo["timeline_id"] = params.Report.TimelineID
		echo["title"] = params.Report.Title
	}
	return echo
}
