package rest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/logger"
)

// IngestChatHandler accepts a chat export upload and submits an
// ingestion task.
func (a *API) IngestChatHandler(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	if header.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	if len(content) > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
		return
	}

	task, err := a.tasks.Submit(c.Request.Context(), caseID(c), domain.TaskIngestChat, domain.TaskParams{
		Chat: &domain.ChatExport{
			FileName: filepath.Base(header.Filename),
			Content:  content,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondTask(c, task)
}

// IngestPDFHandler accepts a PDF upload, extracts its text and
// submits an ingestion task. The upload is kept on disk so the
// original document stays available.
func (a *API) IngestPDFHandler(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	if header.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0700); err != nil {
		respondError(c, fmt.Errorf("preparing upload directory: %w", err))
		return
	}

	name := filepath.Base(header.Filename)
	stored := filepath.Join(a.uploadDir, uuid.New().String()+"_"+name)
	if err := c.SaveUploadedFile(header, stored); err != nil {
		respondError(c, fmt.Errorf("storing upload: %w", err))
		return
	}

	doc, err := a.extractor.Extract(c.Request.Context(), stored)
	if err != nil {
		if rmErr := os.Remove(stored); rmErr != nil {
			logger.Warn("Removing rejected upload %s: %v", stored, rmErr)
		}
		respondError(c, err)
		return
	}
	// Keep the caller's file name, not the stored one.
	doc.FileName = name

	task, err := a.tasks.Submit(c.Request.Context(), caseID(c), domain.TaskIngestPDF, domain.TaskParams{
		PDF: doc,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondTask(c, task)
}

// emailIngestRequest is the JSON payload for email ingestion.
type emailIngestRequest struct {
	Addresses []string `json:"addresses"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
}

// IngestEmailHandler submits an email fetch-and-ingest task for a
// set of addresses within an optional date range.
func (a *API) IngestEmailHandler(c *gin.Context) {
	var payload emailIngestRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	params := domain.EmailParams{Addresses: payload.Addresses}
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

	task, err := a.tasks.Submit(c.Request.Context(), caseID(c), domain.TaskIngestEmail, domain.TaskParams{
		Email: &params,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondTask(c, task)
}
