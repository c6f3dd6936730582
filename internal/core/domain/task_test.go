package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskKind_Valid(t *testing.T) {
	for _, kind := range []TaskKind{
		TaskIngestChat, TaskIngestPDF, TaskIngestEmail,
		TaskBuildTimeline, TaskAnalyseEvidence, TaskBuildReport,
	} {
		assert.True(t, kind.Valid(), "kind %s", kind)
	}
	assert.False(t, TaskKind("").Valid())
	assert.False(t, TaskKind("reindex").Valid())
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, TaskQueued.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.True(t, TaskSucceeded.Terminal())
	assert.True(t, TaskFailed.Terminal())
}

func TestTaskStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskQueued, TaskRunning, true},
		{TaskQueued, TaskFailed, true},
		{TaskQueued, TaskSucceeded, false},
		{TaskRunning, TaskSucceeded, true},
		{TaskRunning, TaskFailed, true},
		{TaskRunning, TaskQueued, false},
		{TaskSucceeded, TaskRunning, false},
		{TaskFailed, TaskQueued, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("unbounded", func(t *testing.T) {
		var r DateRange
		assert.True(t, r.Unbounded())
		assert.True(t, r.Contains(start.AddDate(-10, 0, 0)))
	})

	t.Run("bounds inclusive", func(t *testing.T) {
		r := DateRange{Start: &start, End: &end}
		assert.False(t, r.Unbounded())
		assert.True(t, r.Contains(start))
		assert.True(t, r.Contains(end))
		assert.False(t, r.Contains(start.Add(-time.Second)))
		assert.False(t, r.Contains(end.Add(time.Second)))
	})

	t.Run("open end", func(t *testing.T) {
		r := DateRange{Start: &start}
		assert.True(t, r.Contains(end.AddDate(5, 0, 0)))
		assert.False(t, r.Contains(start.AddDate(-1, 0, 0)))
	})
}
