package email

import (
	"context"
	"strings"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// Adapter maps provider messages 1:1 to evidence records. The network
// fetch and auth are the mail provider's concern; the adapter only
// normalises already-fetched messages, so re-supplying a previously
// fetched message produces the same natural key and upserts in place.
type Adapter struct{}

// New creates an email adapter.
func New() *Adapter {
	return &Adapter{}
}

// Ingest converts fetched messages into records. Messages without an
// id are reported and skipped; everything else maps directly.
func (a *Adapter) Ingest(_ context.Context, caseID string, messages []domain.MailMessage) ([]domain.EvidenceRecord, []domain.ItemError) {
	var (
		records []domain.EvidenceRecord
		errs    []domain.ItemError
	)

	for _, msg := range messages {
		if msg.ID == "" {
			errs = append(errs, domain.ItemError{
				Ref:     msg.Subject,
				Message: "message without provider id",
			})
			continue
		}

		// Participants form an ordered set: sender first, then
		// recipients, each address once.
		participants := make([]string, 0, len(msg.Recipients)+1)
		seen := make(map[string]bool, len(msg.Recipients)+1)
		if msg.Sender != "" {
			participants = append(participants, msg.Sender)
			seen[msg.Sender] = true
		}
		for _, addr := range msg.Recipients {
			if addr == "" || seen[addr] {
				continue
			}
			participants = append(participants, addr)
			seen[addr] = true
		}

		title := msg.Subject
		if title == "" {
			title = "(no subject)"
		}

		records = append(records, domain.EvidenceRecord{
			CaseID:       caseID,
			SourceKind:   domain.SourceEmail,
			SourceRef:    msg.ID,
			Timestamp:    msg.Date,
			Participants: participants,
			Title:        title,
			Body:         msg.Body,
			RawMetadata: map[string]any{
				"message_id": msg.ID,
				"sender":     msg.Sender,
				"recipients": strings.Join(msg.Recipients, ", "),
				"subject":    msg.Subject,
			},
		})
	}

	return records, errs
}
