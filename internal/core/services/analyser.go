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

// EvidenceAnalyser selects recommended evidence from the store.
// Judgment is delegated to the generation collaborator; the analyser
// owns batching, source attribution and idempotent re-runs.
type EvidenceAnalyser struct {
	evidence        driven.EvidenceStore
	recommendations driven.RecommendationStore
	generator       driven.Generator

	// batchSize bounds how many records go into one collaborator call.
	batchSize int

	// window restricts analysis to records timestamped within the
	// last window; zero analyses the full store.
	window time.Duration

	retry RetryPolicy
}

// NewEvidenceAnalyser creates an evidence analyser. batchSize <= 0
// uses the default; window 0 means the full store.
func NewEvidenceAnalyser(
	evidence driven.EvidenceStore,
	recommendations driven.RecommendationStore,
	generator driven.Generator,
	batchSize int,
	window time.Duration,
) *EvidenceAnalyser {
	if batchSize <= 0 {
		batchSize = defaultSummaryBatch
	}
	return &EvidenceAnalyser{
		evidence:        evidence,
		recommendations: recommendations,
		generator:       generator,
		batchSize:       batchSize,
		window:          window,
		retry:           DefaultRetryPolicy,
	}
}

// Analyse pulls the store contents, batches them through the
// collaborator and atomically replaces the prior recommendation set.
// Re-running replaces rather than appends: the prior set is deleted
// before the new one is written. The task fails only when the
// collaborator is unreachable after the retry policy is exhausted.
func (a *EvidenceAnalyser) Analyse(ctx context.Context, caseID string) ([]domain.EvidenceRecommendation, error) {
	if a.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}

	records, err := a.collectRecords(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no evidence records to analyse", domain.ErrInvalidInput)
	}

	var candidates []driven.Candidate
	for start := 0; start < len(records); start += a.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}

		end := start + a.batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		items := make([]driven.EvidenceItem, len(chunk))
		for i := range chunk {
			items[i] = evidenceItem(&chunk[i])
		}

		var batch []driven.Candidate
		err := a.retry.Do(ctx, func() error {
			var callErr error
			batch, callErr = a.generator.SelectEvidence(ctx, items)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("select evidence: %w", err)
		}
		candidates = append(candidates, batch...)
	}

	recs := a.attribute(ctx, caseID, candidates)

	if err := a.recommendations.ReplaceAll(ctx, caseID, recs); err != nil {
		return nil, fmt.Errorf("replace recommendations: %w", err)
	}

	logger.Info("Evidence analysis: %d candidates, %d attributed", len(candidates), len(recs))
	return recs, nil
}

// attribute maps collaborator candidates back to their originating
// records via source ref. Candidates that match no stored record are
// dropped rather than fabricated.
func (a *EvidenceAnalyser) attribute(ctx context.Context, caseID string, candidates []driven.Candidate) []domain.EvidenceRecommendation {
	now := time.Now().UTC()
	recs := make([]domain.EvidenceRecommendation, 0, len(candidates))

	for _, c := range candidates {
		if _, err := a.evidence.GetBySourceRef(ctx, caseID, c.Kind, c.Ref); err != nil {
			logger.Warn("Dropping candidate with unknown source %s/%s: %v", c.Kind, c.Ref, err)
			continue
		}

		title := c.Title
		if title == "" {
			title = "Untitled evidence"
		}

		recs = append(recs, domain.EvidenceRecommendation{
			ID:          uuid.New().String(),
			CaseID:      caseID,
			Title:       title,
			Description: c.Description,
			Relevance:   c.Relevance,
			SourceKind:  c.Kind,
			SourceRef:   c.Ref,
			CreatedAt:   now,
		})
	}
	return recs
}

// collectRecords pages through the store, optionally restricted to
// the configured recent window.
func (a *EvidenceAnalyser) collectRecords(ctx context.Context, caseID string) ([]domain.EvidenceRecord, error) {
	var rng domain.DateRange
	if a.window > 0 {
		start := time.Now().UTC().Add(-a.window)
		rng.Start = &start
	}

	var all []domain.EvidenceRecord
	for skip := 0; ; skip += searchPageSize {
		page, err := a.evidence.Search(ctx, caseID, domain.SearchFilter{
			Range: rng,
			Skip:  skip,
			Limit: searchPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("query records: %w", err)
		}
		all = append(all, page...)
		if len(page) < searchPageSize {
			return all, nil
		}
	}
}
