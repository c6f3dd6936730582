package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// ListTasksHandler returns tasks for the case, optionally filtered
// by kind.
func (a *API) ListTasksHandler(c *gin.Context) {
	kind := domain.TaskKind(c.Query("kind"))
	tasks, err := a.tasks.ListTasks(c.Request.Context(), caseID(c), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// GetTaskHandler returns the current state of one task.
func (a *API) GetTaskHandler(c *gin.Context) {
	task, err := a.tasks.GetTask(c.Request.Context(), caseID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTaskHandler requests cancellation of a running task.
// Cancelling a finished task is a no-op.
func (a *API) CancelTaskHandler(c *gin.Context) {
	if err := a.tasks.Cancel(c.Request.Context(), caseID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancellation requested"})
}
