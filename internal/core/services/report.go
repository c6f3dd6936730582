package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/logger"
)

// ReportAssembler composes case reports from a stored timeline and
// the current recommendation set.
type ReportAssembler struct {
	timelines       driven.TimelineStore
	recommendations driven.RecommendationStore
	reports         driven.ReportStore
	generator       driven.Generator

	retry RetryPolicy
}

// NewReportAssembler creates a report assembler.
func NewReportAssembler(
	timelines driven.TimelineStore,
	recommendations driven.RecommendationStore,
	reports driven.ReportStore,
	generator driven.Generator,
) *ReportAssembler {
	return &ReportAssembler{
		timelines:       timelines,
		recommendations: recommendations,
		reports:         reports,
		generator:       generator,
		retry:           DefaultRetryPolicy,
	}
}

// Assemble builds and persists a report around the named timeline.
// A missing timeline fails the run up front, before any collaborator
// call is made.
func (r *ReportAssembler) Assemble(ctx context.Context, caseID, timelineID, title string) (*domain.Report, error) {
	if r.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}
	if timelineID == "" {
		return nil, fmt.Errorf("%w: timeline id is required", domain.ErrInvalidInput)
	}

	timeline, err := r.timelines.Get(ctx, caseID, timelineID)
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", timelineID, err)
	}

	recs, err := r.recommendations.List(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}
	if len(recs) == 0 {
		logger.Info("Composing report without recommendations; none stored for this case")
	}

	if title == "" {
		title = fmt.Sprintf("Case report: %s", timeline.Title)
	}

	var content string
	err = r.retry.Do(ctx, func() error {
		var callErr error
		content, callErr = r.generator.ComposeReport(ctx, driven.ReportContext{
			Title:           title,
			Timeline:        timeline,
			Recommendations: recs,
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("compose report: %w", err)
	}

	report := &domain.Report{
		ID:         uuid.New().String(),
		CaseID:     caseID,
		Title:      title,
		TimelineID: timelineID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	logger.Info("Assembled report %s from timeline %s", report.ID, timelineID)
	return report, nil
}
