package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// taskStore implements driven.TaskStore.
type taskStore struct {
	store *Store
}

var _ driven.TaskStore = (*taskStore)(nil)

// Save persists a task's state. Creates or updates based on ID.
func (s *taskStore) Save(ctx context.Context, task *domain.GenerationTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	paramsJSON, err := json.Marshal(task.InputParams)
	if err != nil {
		return fmt.Errorf("marshalling input params: %w", err)
	}

	var summaryJSON interface{}
	if task.Summary != nil {
		b, err := json.Marshal(task.Summary)
		if err != nil {
			return fmt.Errorf("marshalling summary: %w", err)
		}
		summaryJSON = string(b)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO generation_tasks (id, case_id, kind, status, input_params,
			result_ref, summary, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result_ref = excluded.result_ref,
			summary = excluded.summary,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, task.ID, task.CaseID, task.Kind, task.Status, string(paramsJSON),
		nullString(task.ResultRef), summaryJSON, nullString(task.Error),
		task.CreatedAt.UTC().Format(time.RFC3339),
		formatTimePtr(task.StartedAt), formatTimePtr(task.FinishedAt))

	if err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *taskStore) Get(ctx context.Context, caseID, id string) (*domain.GenerationTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, case_id, kind, status, input_params, result_ref, summary, error,
			created_at, started_at, finished_at
		FROM generation_tasks WHERE case_id = ? AND id = ?
	`, caseID, id)

	var task domain.GenerationTask
	var paramsJSON string
	var resultRef, summaryJSON, errMsg, startedAt, finishedAt sql.NullString
	var createdAt string

	if err := row.Scan(&task.ID, &task.CaseID, &task.Kind, &task.Status,
		&paramsJSON, &resultRef, &summaryJSON, &errMsg,
		&createdAt, &startedAt, &finishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	if err := finishTask(&task, paramsJSON, resultRef, summaryJSON, errMsg, createdAt, startedAt, finishedAt); err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns tasks for a case, newest first, optionally filtered
// by kind.
func (s *taskStore) List(ctx context.Context, caseID string, kind domain.TaskKind) ([]domain.GenerationTask, error) {
	query := `
		SELECT id, case_id, kind, status, input_params, result_ref, summary, error,
			created_at, started_at, finished_at
		FROM generation_tasks WHERE case_id = ?
	`
	args := []any{caseID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.GenerationTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		var task domain.GenerationTask
		var paramsJSON string
		var resultRef, summaryJSON, errMsg, startedAt, finishedAt sql.NullString
		var createdAt string

		if err := rows.Scan(&task.ID, &task.CaseID, &task.Kind, &task.Status,
			&paramsJSON, &resultRef, &summaryJSON, &errMsg,
			&createdAt, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		if err := finishTask(&task, paramsJSON, resultRef, summaryJSON, errMsg, createdAt, startedAt, finishedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	return tasks, nil
}

// finishTask decodes the JSON and time columns.
func finishTask(task *domain.GenerationTask, paramsJSON string, resultRef, summaryJSON, errMsg sql.NullString, createdAt string, startedAt, finishedAt sql.NullString) error {
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &task.InputParams); err != nil {
			return fmt.Errorf("unmarshaling input params: %w", err)
		}
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		var summary domain.IngestionSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return fmt.Errorf("unmarshaling summary: %w", err)
		}
		task.Summary = &summary
	}

	task.ResultRef = resultRef.String
	task.Error = errMsg.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		task.CreatedAt = t
	}
	task.StartedAt = parseTimePtr(startedAt)
	task.FinishedAt = parseTimePtr(finishedAt)

	return nil
}
