package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/logger"
)

// IngestService runs a source adapter over a raw artifact and writes
// the resulting records to the evidence store. The three source kinds
// may run fully in parallel: each touches a disjoint set of natural
// keys at upsert granularity.
type IngestService struct {
	store driven.EvidenceStore
	chat  driven.ChatIngestor
	pdf   driven.PDFIngestor
	email driven.EmailIngestor
	mail  driven.MailProvider
	retry RetryPolicy
}

// NewIngestService creates an ingest service. The mail provider may
// be nil, in which case email ingestion is rejected.
func NewIngestService(
	store driven.EvidenceStore,
	chat driven.ChatIngestor,
	pdf driven.PDFIngestor,
	email driven.EmailIngestor,
	mail driven.MailProvider,
) *IngestService {
	return &IngestService{
		store: store,
		chat:  chat,
		pdf:   pdf,
		email: email,
		mail:  mail,
		retry: DefaultRetryPolicy,
	}
}

// IngestChat parses an exported chat file and upserts one record per
// message. Two ingestions of the same file yield the same records.
func (s *IngestService) IngestChat(ctx context.Context, caseID string, export domain.ChatExport) (*domain.IngestionSummary, error) {
	records, itemErrs, err := s.chat.Ingest(ctx, caseID, export)
	if err != nil {
		return nil, err
	}

	summary := &domain.IngestionSummary{Errors: itemErrs}
	summary.Skipped = countSkipped(records, itemErrs)

	if err := s.upsertAll(ctx, records, summary); err != nil {
		return nil, err
	}

	logger.Info("Chat ingest %s: %d created, %d updated, %d skipped",
		export.FileName, summary.Created, summary.Updated, summary.Skipped)
	return summary, nil
}

// IngestPDF stores one whole-document record for an extracted PDF.
func (s *IngestService) IngestPDF(ctx context.Context, caseID string, doc domain.ExtractedPDF) (*domain.IngestionSummary, error) {
	record, err := s.pdf.Ingest(ctx, caseID, doc)
	if err != nil {
		return nil, err
	}

	summary := &domain.IngestionSummary{}
	if err := s.upsertAll(ctx, []domain.EvidenceRecord{*record}, summary); err != nil {
		return nil, err
	}

	logger.Info("PDF ingest %s: %d created, %d updated", doc.FileName, summary.Created, summary.Updated)
	return summary, nil
}

// IngestEmail fetches messages per address within the range and
// upserts them. A fetch failure for one address is retried with
// backoff, then recorded in the summary without aborting the other
// addresses. The whole ingestion fails only when every address fails.
func (s *IngestService) IngestEmail(ctx context.Context, caseID string, params domain.EmailParams) (*domain.IngestionSummary, error) {
	if s.mail == nil {
		return nil, fmt.Errorf("%w: no mail provider configured", domain.ErrFetch)
	}
	if len(params.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no addresses given", domain.ErrInvalidInput)
	}

	summary := &domain.IngestionSummary{}
	fetched := 0

	for _, address := range params.Addresses {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}

		var messages []domain.MailMessage
		err := s.retry.Do(ctx, func() error {
			var fetchErr error
			messages, fetchErr = s.mail.Fetch(ctx, driven.MailQuery{Address: address, Range: params.Range})
			return fetchErr
		})
		if err != nil {
			logger.Warn("Fetch failed for %s: %v", address, err)
			summary.AddError(address, err.Error())
			continue
		}
		fetched++

		records, itemErrs := s.email.Ingest(ctx, caseID, messages)
		summary.Errors = append(summary.Errors, itemErrs...)
		summary.Skipped += len(itemErrs)

		if err := s.upsertAll(ctx, records, summary); err != nil {
			return nil, err
		}
	}

	if fetched == 0 {
		return summary, fmt.Errorf("%w: all %d addresses failed", domain.ErrFetch, len(params.Addresses))
	}

	logger.Info("Email ingest: %d created, %d updated, %d addresses failed",
		summary.Created, summary.Updated, len(params.Addresses)-fetched)
	return summary, nil
}

// upsertAll writes records to the store, counting creations and
// updates. Cancellation is observed between records.
func (s *IngestService) upsertAll(ctx context.Context, records []domain.EvidenceRecord, summary *domain.IngestionSummary) error {
	for i := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}

		_, created, err := s.store.Upsert(ctx, &records[i])
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", records[i].SourceKind, records[i].SourceRef, err)
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	return nil
}

// countSkipped counts item errors that produced no record, i.e. whose
// ref matches no record source ref.
func countSkipped(records []domain.EvidenceRecord, errs []domain.ItemError) int {
	refs := make(map[string]struct{}, len(records))
	for i := range records {
		refs[records[i].SourceRef] = struct{}{}
	}

	skipped := 0
	for _, e := range errs {
		if _, ok := refs[e.Ref]; !ok {
			skipped++
		}
	}
	return skipped
}
