package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse indicates an artifact could not be decoded at all.
	// Per-item parse failures inside a decodable artifact are recorded
	// in the IngestionSummary instead.
	ErrParse = errors.New("malformed artifact")

	// ErrUnsupportedFormat indicates extraction produced nothing usable,
	// e.g. a PDF whose text extraction came back empty.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFetch indicates a provider or network failure while fetching
	// remote messages. Retried with bounded backoff before surfacing.
	ErrFetch = errors.New("fetch failed")

	// ErrConflict indicates a task of the same kind is already running
	// for the case. The caller is expected to poll and resubmit.
	ErrConflict = errors.New("task of this kind already running")

	// ErrTimeout indicates the generation collaborator exceeded its
	// deadline. The task fails; the caller may resubmit.
	ErrTimeout = errors.New("collaborator timed out")

	// ErrCancelled indicates a running task was cancelled by request.
	ErrCancelled = errors.New("task cancelled")

	// ErrStorage indicates a fatal storage failure. Propagated as-is;
	// no partial recovery is attempted.
	ErrStorage = errors.New("storage failure")

	// ErrGeneratorUnavailable indicates the generation collaborator is
	// not configured. Timeline, analysis and report tasks are disabled.
	ErrGeneratorUnavailable = errors.New("generation service unavailable")
)
