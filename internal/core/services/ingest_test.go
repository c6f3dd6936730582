package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casefile/internal/core/domain"
)

// fastRetry keeps retry-path tests quick.
var fastRetry = RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

func chatRecord(ref string) domain.EvidenceRecord {
	return domain.EvidenceRecord{
		SourceKind:   domain.SourceChat,
		SourceRef:    ref,
		Participants: []string{"Alice"},
		Title:        "msg",
		Body:         "message body",
	}
}

func TestIngestChat_CountsCreatedAndUpdated(t *testing.T) {
	store := memory.NewEvidenceStore()
	chat := &mockChatIngestor{
		records: []domain.EvidenceRecord{chatRecord("export.txt#L1"), chatRecord("export.txt#L2")},
	}
	svc := NewIngestService(store, chat, nil, nil, nil)

	export := domain.ChatExport{FileName: "export.txt", Content: []byte("x")}

	summary, err := svc.IngestChat(context.Background(), "case-1", export)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Updated)

	// Re-ingesting the same export updates in place.
	summary, err = svc.IngestChat(context.Background(), "case-1", export)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 2, summary.Updated)

	count, err := store.Count(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestChat_SkippedCounting(t *testing.T) {
	store := memory.NewEvidenceStore()
	undatedRec := chatRecord("export.txt#L2")
	chat := &mockChatIngestor{
		records: []domain.EvidenceRecord{chatRecord("export.txt#L1"), undatedRec},
		errs: []domain.ItemError{
			// Same ref as a produced record: reported but not skipped.
			{Ref: "export.txt#L2", Message: "unparseable date"},
			// No record produced for this ref: skipped.
			{Ref: "export.txt#L3", Message: "missing separator"},
		},
	}
	svc := NewIngestService(store, chat, nil, nil, nil)

	summary, err := svc.IngestChat(context.Background(), "case-1", domain.ChatExport{FileName: "export.txt", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, summary.Errors, 2)
}

func TestIngestChat_AdapterError(t *testing.T) {
	store := memory.NewEvidenceStore()
	chat := &mockChatIngestor{err: fmt.Errorf("%w: not UTF-8", domain.ErrParse)}
	svc := NewIngestService(store, chat, nil, nil, nil)

	_, err := svc.IngestChat(context.Background(), "case-1", domain.ChatExport{FileName: "f", Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestIngestPDF(t *testing.T) {
	store := memory.NewEvidenceStore()
	record := domain.EvidenceRecord{
		SourceKind: domain.SourcePDF,
		SourceRef:  "invoice.pdf",
		Title:      "invoice",
		Body:       "amount due",
	}
	svc := NewIngestService(store, nil, &mockPDFIngestor{record: &record}, nil, nil)

	summary, err := svc.IngestPDF(context.Background(), "case-1", domain.ExtractedPDF{FileName: "invoice.pdf", Text: "amount due", Pages: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	got, err := store.GetBySourceRef(context.Background(), "case-1", domain.SourcePDF, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoice", got.Title)
}

func TestIngestPDF_Unsupported(t *testing.T) {
	svc := NewIngestService(memory.NewEvidenceStore(), nil, &mockPDFIngestor{
		err: fmt.Errorf("%w: no text", domain.ErrUnsupportedFormat),
	}, nil, nil)

	_, err := svc.IngestPDF(context.Background(), "case-1", domain.ExtractedPDF{FileName: "scan.pdf"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestIngestEmail_PerAddressIsolation(t *testing.T) {
	store := memory.NewEvidenceStore()
	mail := &mockMailProvider{
		messages: map[string][]domain.MailMessage{
			"alice@example.com": {{ID: "msg-1", Sender: "alice@example.com", Subject: "hello"}},
		},
		errs: map[string]error{
			"broken@example.com": fmt.Errorf("%w: mailbox gone", domain.ErrFetch),
		},
	}
	svc := NewIngestService(store, nil, nil, emailAdapter(), mail)
	svc.retry = fastRetry

	summary, err := svc.IngestEmail(context.Background(), "case-1", domain.EmailParams{
		Addresses: []string{"broken@example.com", "alice@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "broken@example.com", summary.Errors[0].Ref)

	count, err := store.Count(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestEmail_AllAddressesFailed(t *testing.T) {
	mail := &mockMailProvider{
		errs: map[string]error{
			"a@example.com": fmt.Errorf("%w: unreachable", domain.ErrFetch),
			"b@example.com": fmt.Errorf("%w: unreachable", domain.ErrFetch),
		},
	}
	svc := NewIngestService(memory.NewEvidenceStore(), nil, nil, emailAdapter(), mail)
	svc.retry = fastRetry

	summary, err := svc.IngestEmail(context.Background(), "case-1", domain.EmailParams{
		Addresses: []string{"a@example.com", "b@example.com"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	require.NotNil(t, summary)
	assert.Len(t, summary.Errors, 2)
}

func TestIngestEmail_TransientFailureRetried(t *testing.T) {
	store := memory.NewEvidenceStore()
	mail := &mockMailProvider{
		messages: map[string][]domain.MailMessage{
			"alice@example.com": {{ID: "msg-1", Sender: "alice@example.com"}},
		},
		errs: map[string]error{
			"alice@example.com": fmt.Errorf("%w: flaky", domain.ErrFetch),
		},
		failFirst: map[string]int{"alice@example.com": 2},
	}
	svc := NewIngestService(store, nil, nil, emailAdapter(), mail)
	svc.retry = fastRetry

	summary, err := svc.IngestEmail(context.Background(), "case-1", domain.EmailParams{
		Addresses: []string{"alice@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 3, mail.fetchCount())
}

func TestIngestEmail_NoProvider(t *testing.T) {
	svc := NewIngestService(memory.NewEvidenceStore(), nil, nil, emailAdapter(), nil)

	_, err := svc.IngestEmail(context.Background(), "case-1", domain.EmailParams{
		Addresses: []string{"a@example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestIngestEmail_NoAddresses(t *testing.T) {
	svc := NewIngestService(memory.NewEvidenceStore(), nil, nil, emailAdapter(), &mockMailProvider{})

	_, err := svc.IngestEmail(context.Background(), "case-1", domain.EmailParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestEmail_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewIngestService(memory.NewEvidenceStore(), nil, nil, emailAdapter(), &mockMailProvider{})

	_, err := svc.IngestEmail(ctx, "case-1", domain.EmailParams{Addresses: []string{"a@example.com"}})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}
