package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/casefile/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// defaultSearchLimit caps unbounded search requests.
const defaultSearchLimit = 50

// Store is a unified SQLite-based storage that provides access to
// all evidence store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.casefile/data/evidence.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".casefile", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "evidence.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EvidenceStore returns an EvidenceStore interface backed by this store.
func (s *Store) EvidenceStore() driven.EvidenceStore {
	return &evidenceStore{store: s}
}

// TimelineStore returns a TimelineStore interface backed by this store.
func (s *Store) TimelineStore() driven.TimelineStore {
	return &timelineStore{store: s}
}

// RecommendationStore returns a RecommendationStore interface backed by this store.
func (s *Store) RecommendationStore() driven.RecommendationStore {
	return &recommendationStore{store: s}
}

// ReportStore returns a ReportStore interface backed by this store.
func (s *Store) ReportStore() driven.ReportStore {
	return &reportStore{store: s}
}

// TaskStore returns a TaskStore interface backed by this store.
func (s *Store) TaskStore() driven.TaskStore {
	return &taskStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Evidence Store ====================

// evidenceStore implements driven.EvidenceStore.
type evidenceStore struct {
	store *Store
}

var _ driven.EvidenceStore = (*evidenceStore)(nil)

// Upsert stores or updates a record keyed by (case, source kind,
// source ref). Re-ingesting the same source updates the existing row
// in place and keeps its id stable.
func (s *evidenceStore) Upsert(ctx context.Context, record *domain.EvidenceRecord) (string, bool, error) {
	if record == nil {
		return "", false, domain.ErrInvalidInput
	}
	if record.CaseID == "" || record.SourceRef == "" || !record.SourceKind.Valid() {
		return "", false, fmt.Errorf("%w: record needs a case, a valid source kind and a source ref", domain.ErrInvalidInput)
	}

	participantsJSON, err := json.Marshal(record.Participants)
	if err != nil {
		return "", false, fmt.Errorf("marshalling participants: %w", err)
	}
	metadataJSON, err := json.Marshal(record.RawMetadata)
	if err != nil {
		return "", false, fmt.Errorf("marshalling metadata: %w", err)
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	// Single-statement native upsert so concurrent upserts never hold a
	// read lock that must upgrade to a write lock. On conflict the
	// existing row keeps its id and created_at; RETURNING tells us
	// which row won.
	var id, createdAt string
	row := s.store.db.QueryRowContext(ctx, `
		INSERT INTO evidence_records (id, case_id, source_kind, source_ref, timestamp,
			participants, title, body, raw_metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id, source_kind, source_ref) DO UPDATE SET
			timestamp = excluded.timestamp,
			participants = excluded.participants,
			title = excluded.title,
			body = excluded.body,
			raw_metadata = excluded.raw_metadata,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, record.ID, record.CaseID, record.SourceKind, record.SourceRef,
		formatTimePtr(record.Timestamp), string(participantsJSON),
		record.Title, record.Body, string(metadataJSON),
		nowStr, nowStr)
	if err := row.Scan(&id, &createdAt); err != nil {
		return "", false, fmt.Errorf("upserting record: %w", err)
	}

	created := createdAt == nowStr
	record.ID = id
	record.UpdatedAt = now
	if created {
		record.CreatedAt = now
	} else if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		record.CreatedAt = t
	}
	return record.ID, created, nil
}

// Get retrieves a record by ID within a case.
func (s *evidenceStore) Get(ctx context.Context, caseID, id string) (*domain.EvidenceRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, case_id, source_kind, source_ref, timestamp,
			participants, title, body, raw_metadata, created_at, updated_at
		FROM evidence_records WHERE case_id = ? AND id = ?
	`, caseID, id)

	return scanEvidenceRecord(row)
}

// GetBySourceRef retrieves a record by its natural key.
func (s *evidenceStore) GetBySourceRef(ctx context.Context, caseID string, kind domain.SourceKind, ref string) (*domain.EvidenceRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, case_id, source_kind, source_ref, timestamp,
			participants, title, body, raw_metadata, created_at, updated_at
		FROM evidence_records WHERE case_id = ? AND source_kind = ? AND source_ref = ?
	`, caseID, kind, ref)

	return scanEvidenceRecord(row)
}

// Delete removes a record. Timelines and recommendations referencing
// it are left untouched; readers resolve the dangling reference.
func (s *evidenceStore) Delete(ctx context.Context, caseID, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM evidence_records WHERE case_id = ? AND id = ?
	`, caseID, id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Search returns records matching the filter, newest first with
// undated records last. Pagination via Skip/Limit is restartable:
// filters and ordering are applied identically on every call.
func (s *evidenceStore) Search(ctx context.Context, caseID string, filter domain.SearchFilter) ([]domain.EvidenceRecord, error) {
	where := []string{"case_id = ?"}
	args := []any{caseID}

	if filter.Query != "" {
		pattern := "%" + escapeLike(filter.Query) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.SourceKind != "" {
		if !filter.SourceKind.Valid() {
			return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, filter.SourceKind)
		}
		where = append(where, "source_kind = ?")
		args = append(args, filter.SourceKind)
	}
	if filter.Participant != "" {
		where = append(where, `participants LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Participant)+"%")
	}
	if filter.Range.Start != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.Range.Start.UTC().Format(time.RFC3339))
	}
	if filter.Range.End != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, filter.Range.End.UTC().Format(time.RFC3339))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	args = append(args, limit, skip)

	query := fmt.Sprintf(`
		SELECT id, case_id, source_kind, source_ref, timestamp,
			participants, title, body, raw_metadata, created_at, updated_at
		FROM evidence_records
		WHERE %s
		ORDER BY (timestamp IS NULL) ASC, timestamp DESC, id ASC
		LIMIT ? OFFSET ?
	`, strings.Join(where, " AND "))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.EvidenceRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanEvidenceRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// Count returns the number of records stored for a case.
func (s *evidenceStore) Count(ctx context.Context, caseID string) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM evidence_records WHERE case_id = ?
	`, caseID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// ==================== Helper Functions ====================

// scanEvidenceRecord scans a single evidence record row.
func scanEvidenceRecord(row *sql.Row) (*domain.EvidenceRecord, error) {
	var record domain.EvidenceRecord
	var timestamp sql.NullString
	var participantsJSON, metadataJSON string
	var createdAt, updatedAt string

	if err := row.Scan(&record.ID, &record.CaseID, &record.SourceKind, &record.SourceRef,
		&timestamp, &participantsJSON, &record.Title, &record.Body,
		&metadataJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	return finishEvidenceRecord(&record, timestamp, participantsJSON, metadataJSON, createdAt, updatedAt)
}

// scanEvidenceRecordRows scans an evidence record from *sql.Rows.
func scanEvidenceRecordRows(rows *sql.Rows) (*domain.EvidenceRecord, error) {
	var record domain.EvidenceRecord
	var timestamp sql.NullString
	var participantsJSON, metadataJSON string
	var createdAt, updatedAt string

	if err := rows.Scan(&record.ID, &record.CaseID, &record.SourceKind, &record.SourceRef,
		&timestamp, &participantsJSON, &record.Title, &record.Body,
		&metadataJSON, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	return finishEvidenceRecord(&record, timestamp, participantsJSON, metadataJSON, createdAt, updatedAt)
}

// finishEvidenceRecord decodes the JSON and time columns.
func finishEvidenceRecord(record *domain.EvidenceRecord, timestamp sql.NullString, participantsJSON, metadataJSON, createdAt, updatedAt string) (*domain.EvidenceRecord, error) {
	record.Timestamp = parseTimePtr(timestamp)

	if participantsJSON != "" {
		if err := json.Unmarshal([]byte(participantsJSON), &record.Participants); err != nil {
			return nil, fmt.Errorf("unmarshaling participants: %w", err)
		}
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &record.RawMetadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		record.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		record.UpdatedAt = t
	}

	return record, nil
}

// escapeLike escapes LIKE metacharacters so user input matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// formatTimePtr formats a time pointer to an RFC3339 string, or
// returns nil for nil.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTimePtr parses a nullable RFC3339 string to a time pointer.
func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
