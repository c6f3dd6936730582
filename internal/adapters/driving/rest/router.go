package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes for the casefile service.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.MaxMultipartMemory = MaxUploadBytes

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// All routes live under /api/v1, scoped to a case by header.
	v1 := router.Group("/api/v1")
	v1.Use(CaseMiddleware())
	{
		ingest := v1.Group("/ingest")
		{
			ingest.POST("/chat", api.IngestChatHandler)
			ingest.POST("/pdf", api.IngestPDFHandler)
			ingest.POST("/email", api.IngestEmailHandler)
		}

		records := v1.Group("/records")
		{
			records.GET("", api.SearchRecordsHandler)
			records.GET("/:id", api.GetRecordHandler)
			records.DELETE("/:id", api.DeleteRecordHandler)
		}

		evidence := v1.Group("/evidence")
		{
			evidence.POST("/analyze", api.AnalyseEvidenceHandler)
			evidence.GET("", api.ListRecommendationsHandler)
			evidence.DELETE("/:id", api.DeleteRecommendationHandler)
			evidence.GET("/source/:kind/:ref", api.SourceLookupHandler)
		}

		v1.POST("/timeline", api.BuildTimelineHandler)
		timelines := v1.Group("/timelines")
		{
			timelines.GET("", api.ListTimelinesHandler)
			timelines.GET("/:id", api.GetTimelineHandler)
			timelines.DELETE("/:id", api.DeleteTimelineHandler)
		}

		v1.POST("/report", api.BuildReportHandler)
		reports := v1.Group("/reports")
		{
			reports.GET("", api.ListReportsHandler)
			reports.GET("/:id", api.GetReportHandler)
			reports.DELETE("/:id", api.DeleteReportHandler)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", api.ListTasksHandler)
			tasks.GET("/:id", api.GetTaskHandler)
			tasks.POST("/:id/cancel", api.CancelTaskHandler)
		}
	}
}
