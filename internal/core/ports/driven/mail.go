package driven

import (
	"context"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// MailQuery selects messages for one address within a date range.
// Batches of addresses are handled by the caller so that a fetch
// failure for one address never aborts the others.
type MailQuery struct {
	// Address is matched against from/to/cc/bcc.
	Address string

	// Range bounds the fetch by message date.
	Range domain.DateRange
}

// MailProvider fetches provider messages with normalised fields.
// Credential acquisition is outside this system; implementations are
// handed a ready token.
type MailProvider interface {
	// Fetch returns all messages matching the query. Failures are
	// wrapped as domain.ErrFetch.
	Fetch(ctx context.Context, q MailQuery) ([]domain.MailMessage, error)
}
