package domain

import "time"

// TaskKind identifies the unit of background work a task performs.
type TaskKind string

const (
	// TaskIngestChat parses an uploaded chat export into records.
	TaskIngestChat TaskKind = "ingest_chat"

	// TaskIngestPDF stores an extracted PDF as a record.
	TaskIngestPDF TaskKind = "ingest_pdf"

	// TaskIngestEmail fetches and stores provider messages.
	TaskIngestEmail TaskKind = "ingest_email"

	// TaskBuildTimeline builds an ordered timeline from the store.
	TaskBuildTimeline TaskKind = "build_timeline"

	// TaskAnalyseEvidence replaces the recommendation set.
	TaskAnalyseEvidence TaskKind = "analyze_evidence"

	// TaskBuildReport assembles a report from a timeline and the
	// current recommendations.
	TaskBuildReport TaskKind = "build_report"
)

// Valid reports whether the kind is one of the known task kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskIngestChat, TaskIngestPDF, TaskIngestEmail,
		TaskBuildTimeline, TaskAnalyseEvidence, TaskBuildReport:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a generation task.
// Transitions are monotonic: queued -> running -> succeeded|failed.
// Terminal tasks are never revived.
type TaskStatus string

const (
	// TaskQueued means the task was accepted but has not started.
	TaskQueued TaskStatus = "queued"

	// TaskRunning means the task is executing.
	TaskRunning TaskStatus = "running"

	// TaskSucceeded means the task completed and produced its result.
	TaskSucceeded TaskStatus = "succeeded"

	// TaskFailed means the task terminated with an error.
	TaskFailed TaskStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// CanTransition reports whether moving to the given status preserves
// the monotonic lifecycle.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	switch s {
	case TaskQueued:
		return to == TaskRunning || to == TaskFailed
	case TaskRunning:
		return to == TaskSucceeded || to == TaskFailed
	}
	return false
}

// TimelineParams are the inputs for a build_timeline task.
type TimelineParams struct {
	// Title is the title for the built timeline.
	Title string

	// Range is the optional date window.
	Range DateRange
}

// EmailParams are the inputs for an ingest_email task.
type EmailParams struct {
	// Addresses are the account addresses to fetch for.
	Addresses []string

	// Range bounds the fetch by message date.
	Range DateRange
}

// ReportParams are the inputs for a build_report task.
type ReportParams struct {
	// TimelineID references the timeline the report is built from.
	TimelineID string

	// Title is the title for the assembled report.
	Title string
}

// TaskParams is a tagged variant over the per-kind inputs. Exactly
// one field matching the task kind must be set; dispatch is by the
// explicit kind field, never by inspecting which pointer is non-nil.
type TaskParams struct {
	// Chat is set for ingest_chat tasks.
	Chat *ChatExport

	// PDF is set for ingest_pdf tasks.
	PDF *ExtractedPDF

	// Email is set for ingest_email tasks.
	Email *EmailParams

	// Timeline is set for build_timeline tasks.
	Timeline *TimelineParams

	// Report is set for build_report tasks. analyze_evidence takes no
	// parameters.
	Report *ReportParams
}

// GenerationTask tracks one unit of asynchronous work.
type GenerationTask struct {
	// ID is the store-assigned identifier.
	ID string

	// CaseID scopes the task to a case/matter.
	CaseID string

	// Kind identifies the work performed.
	Kind TaskKind

	// Status is the current lifecycle state.
	Status TaskStatus

	// InputParams echoes the request inputs for display.
	InputParams map[string]any

	// ResultRef is the id of the produced entity once succeeded.
	ResultRef string

	// Summary reports per-item outcomes for ingestion tasks.
	Summary *IngestionSummary

	// Error is populated on failure with enough detail to distinguish
	// "no data" from a collaborator failure from malformed input.
	Error string

	// CreatedAt is when the request was accepted.
	CreatedAt time.Time

	// StartedAt is when the task left the queue.
	StartedAt *time.Time

	// FinishedAt is when the task reached a terminal state.
	FinishedAt *time.Time
}
