// Package rest exposes the ingestion and generation pipeline over
// HTTP using gin.
package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/core/ports/driving"
)

// Default limits for the HTTP surface.
const (
	// MaxUploadBytes bounds chat and PDF uploads.
	MaxUploadBytes = 32 << 20

	// caseHeader carries the case scope; absent means the default case.
	caseHeader = "X-Case-ID"

	// defaultCase scopes requests that do not name a case.
	defaultCase = "default"
)

// API provides handlers for the casefile service.
type API struct {
	tasks          driving.TaskService
	records        driving.RecordService
	timelineReader driving.TimelineReader

	timelines       driven.TimelineStore
	recommendations driven.RecommendationStore
	reports         driven.ReportStore
	extractor       driven.Extractor

	uploadDir string
}

// NewAPI creates a new API handler.
func NewAPI(
	tasks driving.TaskService,
	records driving.RecordService,
	timelineReader driving.TimelineReader,
	timelines driven.TimelineStore,
	recommendations driven.RecommendationStore,
	reports driven.ReportStore,
	extractor driven.Extractor,
	uploadDir string,
) *API {
	return &API{
		tasks:           tasks,
		records:         records,
		timelineReader:  timelineReader,
		timelines:       timelines,
		recommendations: recommendations,
		reports:         reports,
		extractor:       extractor,
		uploadDir:       uploadDir,
	}
}

// CaseMiddleware resolves the case scope for every request.
func CaseMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caseID := c.GetHeader(caseHeader)
		if caseID == "" {
			caseID = defaultCase
		}
		c.Set("caseID", caseID)
		c.Next()
	}
}

// caseID returns the request's case scope.
func caseID(c *gin.Context) string {
	return c.GetString("caseID")
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrParse),
		errors.Is(err, domain.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondTask returns the 202 task handle for an accepted submission.
func respondTask(c *gin.Context, task *domain.GenerationTask) {
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID,
		"kind":    task.Kind,
		"status":  task.Status,
	})
}

// parseTimeParam parses an optional RFC3339 query parameter.
func parseTimeParam(c *gin.Context, name string) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
