package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/ingest/email"
)

// emailAdapter returns the real email adapter; its mapping is pure, so
// tests exercise it directly instead of mocking.
func emailAdapter() driven.EmailIngestor {
	return email.New()
}

// mockGenerator is a configurable generation collaborator. Error
// fields fail the matching call; failFirst fails the first N calls
// before succeeding, for retry coverage.
type mockGenerator struct {
	mu sync.Mutex

	summaries    map[string]string
	summariseErr error

	candidates []driven.Candidate
	selectErr  error

	content    string
	composeErr error

	// failFirst fails that many SelectEvidence calls before
	// succeeding; transient marks selectErr as recoverable.
	failFirst int
	transient bool

	summariseCalls int
	selectCalls    int
	composeCalls   int
}

var _ driven.Generator = (*mockGenerator)(nil)

func (m *mockGenerator) Summarise(_ context.Context, items []driven.EvidenceItem) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summariseCalls++
	if m.summariseErr != nil {
		return nil, m.summariseErr
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		if s, ok := m.summaries[item.Ref]; ok {
			out[item.Ref] = s
		}
	}
	return out, nil
}

func (m *mockGenerator) SelectEvidence(_ context.Context, _ []driven.EvidenceItem) ([]driven.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectCalls++
	if m.failFirst > 0 {
		m.failFirst--
		return nil, m.selectErr
	}
	if m.selectErr != nil && m.failFirst == 0 && !m.transient {
		return nil, m.selectErr
	}
	return m.candidates, nil
}

func (m *mockGenerator) ComposeReport(_ context.Context, _ driven.ReportContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.composeCalls++
	if m.composeErr != nil {
		return "", m.composeErr
	}
	return m.content, nil
}

func (m *mockGenerator) ModelName() string { return "mock-model" }

func (m *mockGenerator) Close() error { return nil }

func (m *mockGenerator) calls() (summarise, selectEvidence, compose int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summariseCalls, m.selectCalls, m.composeCalls
}

// mockMailProvider serves canned messages per address. failFirst
// fails that many fetches per address before succeeding.
type mockMailProvider struct {
	mu sync.Mutex

	messages  map[string][]domain.MailMessage
	errs      map[string]error
	failFirst map[string]int

	fetches int
}

var _ driven.MailProvider = (*mockMailProvider)(nil)

func (m *mockMailProvider) Fetch(_ context.Context, q driven.MailQuery) ([]domain.MailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if n := m.failFirst[q.Address]; n > 0 {
		m.failFirst[q.Address] = n - 1
		return nil, m.errs[q.Address]
	}
	// An error without a failFirst budget fails every fetch.
	if err := m.errs[q.Address]; err != nil {
		if _, transient := m.failFirst[q.Address]; !transient {
			return nil, err
		}
	}
	return m.messages[q.Address], nil
}

func (m *mockMailProvider) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// mockChatIngestor returns canned records, optionally blocking until
// released or the context is cancelled.
type mockChatIngestor struct {
	records []domain.EvidenceRecord
	errs    []domain.ItemError
	err     error

	// block, when non-nil, parks Ingest until the channel is closed.
	block chan struct{}
}

var _ driven.ChatIngestor = (*mockChatIngestor)(nil)

func (m *mockChatIngestor) Ingest(ctx context.Context, caseID string, _ domain.ChatExport) ([]domain.EvidenceRecord, []domain.ItemError, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, nil, m.err
	}
	records := make([]domain.EvidenceRecord, len(m.records))
	copy(records, m.records)
	for i := range records {
		records[i].CaseID = caseID
	}
	return records, m.errs, nil
}

// mockPDFIngestor returns one canned record or an error.
type mockPDFIngestor struct {
	record *domain.EvidenceRecord
	err    error
}

var _ driven.PDFIngestor = (*mockPDFIngestor)(nil)

func (m *mockPDFIngestor) Ingest(_ context.Context, caseID string, _ domain.ExtractedPDF) (*domain.EvidenceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	record := *m.record
	record.CaseID = caseID
	return &record, nil
}
