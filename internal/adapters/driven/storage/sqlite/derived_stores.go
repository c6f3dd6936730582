package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// ==================== Timeline Store ====================

// timelineStore implements driven.TimelineStore.
type timelineStore struct {
	store *Store
}

var _ driven.TimelineStore = (*timelineStore)(nil)

// Save stores or updates a timeline. Entries carry weak evidence
// references only, so they serialise as plain JSON.
func (s *timelineStore) Save(ctx context.Context, timeline *domain.Timeline) error {
	if timeline == nil {
		return domain.ErrInvalidInput
	}

	entriesJSON, err := json.Marshal(timeline.Entries)
	if err != nil {
		return fmt.Errorf("marshalling entries: %w", err)
	}
	unplacedJSON, err := json.Marshal(timeline.Unplaced)
	if err != nil {
		return fmt.Errorf("marshalling unplaced entries: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO timelines (id, case_id, title, range_start, range_end,
			entries, unplaced, degraded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			range_start = excluded.range_start,
			range_end = excluded.range_end,
			entries = excluded.entries,
			unplaced = excluded.unplaced,
			degraded = excluded.degraded
	`, timeline.ID, timeline.CaseID, timeline.Title,
		formatTimePtr(timeline.Range.Start), formatTimePtr(timeline.Range.End),
		string(entriesJSON), string(unplacedJSON),
		boolToInt(timeline.Degraded), timeline.CreatedAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("saving timeline: %w", err)
	}
	return nil
}

// Get retrieves a timeline by ID.
func (s *timelineStore) Get(ctx context.Context, caseID, id string) (*domain.Timeline, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, case_id, title, range_start, range_end, entries, unplaced, degraded, created_at
		FROM timelines WHERE case_id = ? AND id = ?
	`, caseID, id)

	var timeline domain.Timeline
	var rangeStart, rangeEnd sql.NullString
	var entriesJSON, unplacedJSON string
	var degraded int
	var createdAt string

	if err := row.Scan(&timeline.ID, &timeline.CaseID, &timeline.Title,
		&rangeStart, &rangeEnd, &entriesJSON, &unplacedJSON, &degraded, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning timeline: %w", err)
	}

	if err := finishTimeline(&timeline, rangeStart, rangeEnd, entriesJSON, unplacedJSON, degraded, createdAt); err != nil {
		return nil, err
	}
	return &timeline, nil
}

// List returns all timelines for a case, newest first.
func (s *timelineStore) List(ctx context.Context, caseID string) ([]domain.Timeline, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, case_id, title, range_start, range_end, entries, unplaced, degraded, created_at
		FROM timelines WHERE case_id = ?
		ORDER BY created_at DESC, id ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("querying timelines: %w", err)
	}
	defer rows.Close()

	var timelines []domain.Timeline //nolint:prealloc // size unknown from query
	for rows.Next() {
		var timeline domain.Timeline
		var rangeStart, rangeEnd sql.NullString
		var entriesJSON, unplacedJSON string
		var degraded int
		var createdAt string

		if err := rows.Scan(&timeline.ID, &timeline.CaseID, &timeline.Title,
			&rangeStart, &rangeEnd, &entriesJSON, &unplacedJSON, &degraded, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning timeline: %w", err)
		}
		if err := finishTimeline(&timeline, rangeStart, rangeEnd, entriesJSON, unplacedJSON, degraded, createdAt); err != nil {
			return nil, err
		}
		timelines = append(timelines, timeline)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timelines: %w", err)
	}

	return timelines, nil
}

// Delete removes a timeline.
func (s *timelineStore) Delete(ctx context.Context, caseID, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM timelines WHERE case_id = ? AND id = ?
	`, caseID, id)
	if err != nil {
		return fmt.Errorf("deleting timeline: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// finishTimeline decodes the JSON and time columns.
func finishTimeline(timeline *domain.Timeline, rangeStart, rangeEnd sql.NullString, entriesJSON, unplacedJSON string, degraded int, createdAt string) error {
	timeline.Range.Start = parseTimePtr(rangeStart)
	timeline.Range.End = parseTimePtr(rangeEnd)
	timeline.Degraded = degraded == 1

	if entriesJSON != "" {
		if err := json.Unmarshal([]byte(entriesJSON), &timeline.Entries); err != nil {
			return fmt.Errorf("unmarshaling entries: %w", err)
		}
	}
	if unplacedJSON != "" {
		if err := json.Unmarshal([]byte(unplacedJSON), &timeline.Unplaced); err != nil {
			return fmt.Errorf("unmarshaling unplaced entries: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		timeline.CreatedAt = t
	}
	return nil
}

// ==================== Recommendation Store ====================

// recommendationStore implements driven.RecommendationStore.
type recommendationStore struct {
	store *Store
}

var _ driven.RecommendationStore = (*recommendationStore)(nil)

// ReplaceAll swaps the case's recommendation set in one transaction.
func (s *recommendationStore) ReplaceAll(ctx context.Context, caseID string, recommendations []domain.EvidenceRecommendation) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM recommendations WHERE case_id = ?", caseID); err != nil {
		return fmt.Errorf("clearing recommendations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (id, case_id, title, description, relevance,
			source_kind, source_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recommendations {
		if _, err := stmt.ExecContext(ctx, rec.ID, caseID, rec.Title, rec.Description,
			rec.Relevance, rec.SourceKind, rec.SourceRef,
			rec.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting recommendation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a recommendation by ID.
func (s *recommendationStore) Get(ctx context.Context, caseID, id string) (*domain.EvidenceRecommendation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, case_id, title, description, relevance, source_kind, source_ref, created_at
		FROM recommendations WHERE case_id = ? AND id = ?
	`, caseID, id)

	var rec domain.EvidenceRecommendation
	var createdAt string
	if err := row.Scan(&rec.ID, &rec.CaseID, &rec.Title, &rec.Description,
		&rec.Relevance, &rec.SourceKind, &rec.SourceRef, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning recommendation: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}

// List returns the current recommendation set, newest first.
func (s *recommendationStore) List(ctx context.Context, caseID string) ([]domain.EvidenceRecommendation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, case_id, title, description, relevance, source_kind, source_ref, created_at
		FROM recommendations WHERE case_id = ?
		ORDER BY created_at DESC, id ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []domain.EvidenceRecommendation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.EvidenceRecommendation
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.CaseID, &rec.Title, &rec.Description,
			&rec.Relevance, &rec.SourceKind, &rec.SourceRef, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendations: %w", err)
	}

	return recs, nil
}

// Delete removes a single recommendation.
func (s *recommendationStore) Delete(ctx context.Context, caseID, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM recommendations WHERE case_id = ? AND id = ?
	`, caseID, id)
	if err != nil {
		return fmt.Errorf("deleting recommendation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Report Store ====================

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

// Save stores a report.
func (s *reportStore) Save(ctx context.Context, report *domain.Report) error {
	if report == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO reports (id, case_id, title, timeline_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			timeline_id = excluded.timeline_id,
			content = excluded.content
	`, report.ID, report.CaseID, report.Title, report.TimelineID,
		report.Content, report.CreatedAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *reportStore) Get(ctx context.Context, caseID, id string) (*domain.Report, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, case_id, title, timeline_id, content, created_at
		FROM reports WHERE case_id = ? AND id = ?
	`, caseID, id)

	var report domain.Report
	var createdAt string
	if err := row.Scan(&report.ID, &report.CaseID, &report.Title,
		&report.TimelineID, &report.Content, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		report.CreatedAt = t
	}
	return &report, nil
}

// List returns all reports for a case, newest first.
func (s *reportStore) List(ctx context.Context, caseID string) ([]domain.Report, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, case_id, title, timeline_id, content, created_at
		FROM reports WHERE case_id = ?
		ORDER BY created_at DESC, id ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report //nolint:prealloc // size unknown from query
	for rows.Next() {
		var report domain.Report
		var createdAt string
		if err := rows.Scan(&report.ID, &report.CaseID, &report.Title,
			&report.TimelineID, &report.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			report.CreatedAt = t
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}

	return reports, nil
}

// Delete removes a report.
func (s *reportStore) Delete(ctx context.Context, caseID, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM reports WHERE case_id = ? AND id = ?
	`, caseID, id)
	if err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
