package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

func TestTaskStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := store.TaskStore()
	now := time.Now().UTC().Truncate(time.Second)

	task := &domain.GenerationTask{
		ID:          "task-1",
		CaseID:      "case-1",
		Kind:        domain.TaskIngestChat,
		Status:      domain.TaskQueued,
		InputParams: map[string]any{"file_name": "export.txt"},
		CreatedAt:   now,
	}
	require.NoError(t, tasks.Save(ctx, task))

	got, err := tasks.Get(ctx, "case-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskQueued, got.Status)
	assert.Equal(t, "export.txt", got.InputParams["file_name"])
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.Summary)
}

func TestTaskStore_SaveUpdatesLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := store.TaskStore()
	now := time.Now().UTC().Truncate(time.Second)

	task := &domain.GenerationTask{
		ID:        "task-1",
		CaseID:    "case-1",
		Kind:      domain.TaskIngestChat,
		Status:    domain.TaskQueued,
		CreatedAt: now,
	}
	require.NoError(t, tasks.Save(ctx, task))

	started := now.Add(time.Second)
	task.Status = domain.TaskRunning
	task.StartedAt = &started
	require.NoError(t, tasks.Save(ctx, task))

	finished := now.Add(3 * time.Second)
	task.Status = domain.TaskSucceeded
	task.FinishedAt = &finished
	task.Summary = &domain.IngestionSummary{
		Created: 10,
		Updated: 2,
		Errors:  []domain.ItemError{{Ref: "export.txt#L7", Message: "unparseable date"}},
	}
	require.NoError(t, tasks.Save(ctx, task))

	got, err := tasks.Get(ctx, "case-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskSucceeded, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, started, got.StartedAt.UTC())
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, finished, got.FinishedAt.UTC())
	require.NotNil(t, got.Summary)
	assert.Equal(t, 10, got.Summary.Created)
	assert.Equal(t, 2, got.Summary.Updated)
	require.Len(t, got.Summary.Errors, 1)
	assert.Equal(t, "export.txt#L7", got.Summary.Errors[0].Ref)
}

func TestTaskStore_SaveRecordsError(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := store.TaskStore()
	now := time.Now().UTC().Truncate(time.Second)

	task := &domain.GenerationTask{
		ID:        "task-1",
		CaseID:    "case-1",
		Kind:      domain.TaskBuildTimeline,
		Status:    domain.TaskFailed,
		Error:     "no evidence records in range",
		CreatedAt: now,
	}
	require.NoError(t, tasks.Save(ctx, task))

	got, err := tasks.Get(ctx, "case-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskFailed, got.Status)
	assert.Equal(t, "no evidence records in range", got.Error)
}

func TestTaskStore_List(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := store.TaskStore()
	now := time.Now().UTC().Truncate(time.Second)

	for i, kind := range []domain.TaskKind{domain.TaskIngestChat, domain.TaskIngestChat, domain.TaskBuildTimeline} {
		require.NoError(t, tasks.Save(ctx, &domain.GenerationTask{
			ID:        string(rune('a' + i)),
			CaseID:    "case-1",
			Kind:      kind,
			Status:    domain.TaskQueued,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := tasks.List(ctx, "case-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	chats, err := tasks.List(ctx, "case-1", domain.TaskIngestChat)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	for _, task := range chats {
		assert.Equal(t, domain.TaskIngestChat, task.Kind)
	}

	other, err := tasks.List(ctx, "case-2", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTaskStore_GetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.TaskStore().Get(context.Background(), "case-1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
