package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/core/ports/driving"
	"github.com/custodia-labs/casefile/internal/logger"
)

// Ensure TimelineBuilder implements the reader interface.
var _ driving.TimelineReader = (*TimelineBuilder)(nil)

// Defaults for collaborator batching and excerpt fallbacks.
const (
	defaultSummaryBatch = 20
	defaultExcerptLen   = 500
	searchPageSize      = 200
)

// TimelineBuilder merges evidence records within a date window into an
// ordered timeline. Narrative synthesis is delegated to the generation
// collaborator; the builder owns ordering, deduplication and
// gap-handling.
type TimelineBuilder struct {
	evidence  driven.EvidenceStore
	timelines driven.TimelineStore
	generator driven.Generator

	// batchSize bounds how many records go into one collaborator call.
	batchSize int
}

// NewTimelineBuilder creates a timeline builder. batchSize <= 0 uses
// the default.
func NewTimelineBuilder(
	evidence driven.EvidenceStore,
	timelines driven.TimelineStore,
	generator driven.Generator,
	batchSize int,
) *TimelineBuilder {
	if batchSize <= 0 {
		batchSize = defaultSummaryBatch
	}
	return &TimelineBuilder{
		evidence:  evidence,
		timelines: timelines,
		generator: generator,
		batchSize: batchSize,
	}
}

// Build constructs and stores a timeline for the given window.
// Collaborator failure for a subset of records degrades those entries
// to a truncated excerpt instead of failing the build; the timeline
// is then flagged Degraded.
func (b *TimelineBuilder) Build(ctx context.Context, caseID string, params domain.TimelineParams) (*domain.Timeline, error) {
	if b.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}

	records, err := b.collectRecords(ctx, caseID, params.Range)
	if err != nil {
		return nil, err
	}

	sortForTimeline(records)

	summaries := b.summarise(ctx, records)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}

	timeline := &domain.Timeline{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		Title:     params.Title,
		Range:     params.Range,
		Degraded:  summaries.degraded,
		CreatedAt: time.Now().UTC(),
	}

	for i := range records {
		rec := &records[i]
		entry := domain.TimelineEntry{
			EvidenceID: rec.ID,
			Summary:    summaries.text[rec.NaturalKey()],
			SourceKind: rec.SourceKind,
		}
		if rec.Timestamp == nil {
			// Undated records are listed separately, never intermixed.
			timeline.Unplaced = append(timeline.Unplaced, entry)
			continue
		}
		entry.Timestamp = *rec.Timestamp
		timeline.Entries = append(timeline.Entries, entry)
	}

	if err := b.timelines.Save(ctx, timeline); err != nil {
		return nil, fmt.Errorf("save timeline: %w", err)
	}

	logger.Info("Built timeline %s: %d entries, %d unplaced, degraded=%v",
		timeline.ID, len(timeline.Entries), len(timeline.Unplaced), timeline.Degraded)
	return timeline, nil
}

// GetTimeline returns a stored timeline with SourceMissing set on
// entries whose evidence record has since been deleted. A missing
// back-reference never fails the read.
func (b *TimelineBuilder) GetTimeline(ctx context.Context, caseID, id string) (*domain.Timeline, error) {
	timeline, err := b.timelines.Get(ctx, caseID, id)
	if err != nil {
		return nil, err
	}

	if err := b.markMissing(ctx, caseID, timeline.Entries); err != nil {
		return nil, err
	}
	if err := b.markMissing(ctx, caseID, timeline.Unplaced); err != nil {
		return nil, err
	}
	return timeline, nil
}

// markMissing flags entries whose weak reference no longer resolves.
func (b *TimelineBuilder) markMissing(ctx context.Context, caseID string, entries []domain.TimelineEntry) error {
	for i := range entries {
		_, err := b.evidence.Get(ctx, caseID, entries[i].EvidenceID)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			entries[i].SourceMissing = true
		default:
			return fmt.Errorf("resolve entry source: %w", err)
		}
	}
	return nil
}

// collectRecords pages through the store until the window is
// exhausted. Each page is an independent query; no cursor state.
func (b *TimelineBuilder) collectRecords(ctx context.Context, caseID string, rng domain.DateRange) ([]domain.EvidenceRecord, error) {
	var all []domain.EvidenceRecord
	for skip := 0; ; skip += searchPageSize {
		page, err := b.evidence.Search(ctx, caseID, domain.SearchFilter{
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

// summaryResult carries per-record summaries plus the degradation
// flag. Summaries are keyed by natural key so records of different
// kinds sharing a ref string never collide.
type summaryResult struct {
	text     map[domain.NaturalKey]string
	degraded bool
}

// summarise requests one-line summaries in chunks, falling back to a
// truncated raw excerpt for any chunk the collaborator fails on.
// Cancellation is observed between chunk calls.
func (b *TimelineBuilder) summarise(ctx context.Context, records []domain.EvidenceRecord) summaryResult {
	result := summaryResult{text: make(map[domain.NaturalKey]string, len(records))}

	for start := 0; start < len(records); start += b.batchSize {
		if ctx.Err() != nil {
			// Leave the remaining records without summaries; the
			// caller turns the cancellation into a task failure.
			return result
		}

		end := start + b.batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		items := make([]driven.EvidenceItem, len(chunk))
		for i := range chunk {
			items[i] = evidenceItem(&chunk[i])
		}

		summaries, err := b.generator.Summarise(ctx, items)
		if err != nil {
			logger.Warn("Summarisation failed for %d records: %v", len(chunk), err)
			result.degraded = true
			summaries = nil
		}

		for i := range chunk {
			rec := &chunk[i]
			if s, ok := summaries[rec.SourceRef]; ok && s != "" {
				result.text[rec.NaturalKey()] = s
				continue
			}
			result.text[rec.NaturalKey()] = excerpt(rec.Body, defaultExcerptLen)
			if err == nil {
				// Collaborator silently dropped this item.
				result.degraded = true
			}
		}
	}
	return result
}

// sortForTimeline orders records ascending by timestamp, tie-breaking
// by source kind then id so builds are deterministic. Undated records
// sort last; they end up in the unplaced list anyway.
func sortForTimeline(records []domain.EvidenceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		switch {
		case a.Timestamp == nil && b.Timestamp == nil:
			// Fall through to tie-breaks.
		case a.Timestamp == nil:
			return false
		case b.Timestamp == nil:
			return true
		case !a.Timestamp.Equal(*b.Timestamp):
			return a.Timestamp.Before(*b.Timestamp)
		}
		if a.SourceKind != b.SourceKind {
			return a.SourceKind < b.SourceKind
		}
		return a.ID < b.ID
	})
}

// evidenceItem shapes a record for the collaborator, excerpting the
// body to respect payload limits.
func evidenceItem(rec *domain.EvidenceRecord) driven.EvidenceItem {
	return driven.EvidenceItem{
		Ref:          rec.SourceRef,
		Kind:         rec.SourceKind,
		Title:        rec.Title,
		Body:         excerpt(rec.Body, defaultExcerptLen),
		Timestamp:    rec.Timestamp,
		Participants: rec.Participants,
	}
}

// excerpt truncates text to at most n runes.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
