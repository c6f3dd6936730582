package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// timelineRequest is the JSON payload for timeline construction.
type timelineRequest struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// BuildTimelineHandler submits a timeline construction task over an
// optional date window.
func (a *API) BuildTimelineHandler(c *gin.Context) {
	var payload timelineRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	params := domain.TimelineParams{Title: payload.Title}
	if payload.Start != "" {
		t, err := time.Parse(time.RFC3339, payload.Start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
			return
		}
		params.Range.Start = &t
	}
	if payload.End != "" {
		t, err := time.Parse(time.RFC3339, payload.End)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
			return
		}
		params.Range.End = &t
	}

	task, err := a.tasks.Submit(c.Request.Context(), caseID(c), domain.TaskBuildTimeline, domain.TaskParams{
		Timeline: &params,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondTask(c, task)
}

// ListTimelinesHandler returns all timelines for the case.
func (a *API) ListTimelinesHandler(c *gin.Context) {
	timelines, err := a.timelines.List(c.Request.Context(), caseID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timelines": timelines, "count": len(timelines)})
}

// GetTimelineHandler returns a timeline with deleted evidence
// references marked.
func (a *API) GetTimelineHandler(c *gin.Context) {
	timeline, err := a.timelineReader.GetTimeline(c.Request.Context(), caseID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// DeleteTimelineHandler removes a timeline.
func (a *API) DeleteTimelineHandler(c *gin.Context) {
	if err := a.timelines.Delete(c.Request.Context(), caseID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// reportRequest is the JSON payload for report assembly.
type reportRequest struct {
	TimelineID string `json:"timeline_id"`
	Title      string `json:"title"`
}

// BuildReportHandler submits a report assembly task around a stored
// timeline.
func (a *API) BuildReportHandler(c *gin.Context) {
	var payload reportRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	task, err := a.tasks.Submit(c.Request.Context(), caseID(c), domain.TaskBuildReport, domain.TaskParams{
		Report: &domain.ReportParams{
			TimelineID: payload.TimelineID,
			Title:      payload.Title,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondTask(c, task)
}

// ListReportsHandler returns all reports for the case.
func (a *API) ListReportsHandler(c *gin.Context) {
	reports, err := a.reports.List(c.Request.Context(), caseID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReportHandler returns a report by id.
func (a *API) GetReportHandler(c *gin.Context) {
	report, err := a.reports.Get(c.Request.Context(), caseID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DeleteReportHandler removes a report.
func (a *API) DeleteReportHandler(c *gin.Context) {
	if err := a.reports.Delete(c.Request.Context(), caseID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
