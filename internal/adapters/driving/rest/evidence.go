package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// SearchRecordsHandler searches the evidence store with optional
// text, kind, participant and date filters.
func (a *API) SearchRecordsHandler(c *gin.Context) {
	filter := domain.SearchFilter{
		Query:       c.Query("q"),
		SourceKind:  domain.SourceKind(c.Query("kind")),
		Participant: c.Query("participant"),
	}

	start, err := parseTimeParam(c, "start")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	end, err := parseTimeParam(c, "end")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return
	}
	filter.Range = domain.DateRange{Start: start, End: end}

	filter.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := a.records.Search(c.Request.Context(), caseID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// GetRecordHandler returns a single evidence record by id.
func (a *API) GetRecordHandler(c *gin.Context) {
	record, err := a.records.Get(c.Request.Context(), caseID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteRecordHandler removes an evidence record. Derived entities
// referencing it are left in place.
func (a *API) DeleteRecordHandler(c *gin.Context) {
	if err := a.records.Delete(c.Request.Context(), caseID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SourceLookupHandler finds a record by its source kind and ref.
func (a *API) SourceLookupHandler(c *gin.Context) {
	kind := domain.SourceKind(c.Param("kind"))
	record, err := a.records.SourceLookup(c.Request.Context(), caseID(c), kind, c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// AnalyseEvidenceHandler submits an evidence analysis task. The
// resulting recommendation set replaces the previous one.
func (a *API) AnalyseEvidenceHandler(c *gin.Context) {
	task, err := a.tasks.Submit(c.Request.Context(), caseID(c), domain.TaskAnalyseEvidence, domain.TaskParams{})
	if err != nil {
		respondError(c, err)
		return
	}
	respondTask(c, task)
}

// ListRecommendationsHandler returns the current recommendation set.
func (a *API) ListRecommendationsHandler(c *gin.Context) {
	recs, err := a.recommendations.List(c.Request.Context(), caseID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

// DeleteRecommendationHandler removes a single recommendation.
func (a *API) DeleteRecommendationHandler(c *gin.Context) {
	if err := a.recommendations.Delete(c.Request.Context(), caseID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
