package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/services"
)

// submission captures one Submit call on the stub task service.
type submission struct {
	caseID string
	kind   domain.TaskKind
	params domain.TaskParams
}

// stubTaskService records submissions and answers from canned state,
// so handler tests stay synchronous.
type stubTaskService struct {
	mu sync.Mutex

	submissions []submission
	submitErr   error

	tasks map[string]*domain.GenerationTask

	cancelErr error
	cancelled []string
}

func newStubTaskService() *stubTaskService {
	return &stubTaskService{tasks: make(map[string]*domain.GenerationTask)}
}

func (s *stubTaskService) Submit(_ context.Context, caseID string, kind domain.TaskKind, params domain.TaskParams) (*domain.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submissions = append(s.submissions, submission{caseID: caseID, kind: kind, params: params})
	task := &domain.GenerationTask{
		ID:        fmt.Sprintf("task-%d", len(s.submissions)),
		CaseID:    caseID,
		Kind:      kind,
		Status:    domain.TaskQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.tasks[task.ID] = task
	return task, nil
}

func (s *stubTaskService) GetTask(_ context.Context, caseID, id string) (*domain.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.CaseID != caseID {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (s *stubTaskService) ListTasks(_ context.Context, caseID string, kind domain.TaskKind) ([]domain.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GenerationTask
	for _, task := range s.tasks {
		if task.CaseID == caseID && (kind == "" || task.Kind == kind) {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (s *stubTaskService) Cancel(_ context.Context, caseID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelErr != nil {
		return s.cancelErr
	}
	if task, ok := s.tasks[id]; !ok || task.CaseID != caseID {
		return domain.ErrNotFound
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func (s *stubTaskService) lastSubmission(t *testing.T) submission {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.submissions)
	return s.submissions[len(s.submissions)-1]
}

// stubExtractor answers with a canned document or error.
type stubExtractor struct {
	doc *domain.ExtractedPDF
	err error
}

func (s *stubExtractor) Extract(_ context.Context, path string) (*domain.ExtractedPDF, error) {
	if s.err != nil {
		return nil, s.err
	}
	doc := *s.doc
	return &doc, nil
}

// testEnv bundles the router with the stores behind it.
type testEnv struct {
	router   *gin.Engine
	tasks    *stubTaskService
	evidence *memory.EvidenceStore

	timelines       *memory.TimelineStore
	recommendations *memory.RecommendationStore
	reports         *memory.ReportStore
	extractor       *stubExtractor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		tasks:           newStubTaskService(),
		evidence:        memory.NewEvidenceStore(),
		timelines:       memory.NewTimelineStore(),
		recommendations: memory.NewRecommendationStore(),
		reports:         memory.NewReportStore(),
		extractor:       &stubExtractor{doc: &domain.ExtractedPDF{Text: "extracted", Pages: 1}},
	}

	records := services.NewRecordsService(env.evidence)
	reader := services.NewTimelineBuilder(env.evidence, env.timelines, nil, 0)

	api := NewAPI(env.tasks, records, reader, env.timelines, env.recommendations, env.reports, env.extractor, t.TempDir())
	env.router = gin.New()
	RegisterRoutes(env.router, api)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return e.do(t, method, path, body, map[string]string{"Content-Type": "application/json"})
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func multipartUpload(t *testing.T, field, fileName string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes(), writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestCaseScoping(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/evidence/analyze", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "default", env.tasks.lastSubmission(t).caseID)

	w = env.do(t, http.MethodPost, "/api/v1/evidence/analyze", nil, map[string]string{"X-Case-ID": "acme-v-jones"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "acme-v-jones", env.tasks.lastSubmission(t).caseID)
}

func TestIngestChatHandler(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "file", "export.txt", []byte("1/2/24, 9:00 AM - Alice: hi"))
	w := env.do(t, http.MethodPost, "/api/v1/ingest/chat", body, map[string]string{"Content-Type": contentType})
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decodeBody(t, w)
	assert.NotEmpty(t, resp["task_id"])
	assert.Equal(t, string(domain.TaskIngestChat), resp["kind"])
	assert.Equal(t, string(domain.TaskQueued), resp["status"])

	sub := env.tasks.lastSubmission(t)
	assert.Equal(t, domain.TaskIngestChat, sub.kind)
	require.NotNil(t, sub.params.Chat)
	assert.Equal(t, "export.txt", sub.params.Chat.FileName)
	assert.Equal(t, []byte("1/2/24, 9:00 AM - Alice: hi"), sub.params.Chat.Content)
}

func TestIngestChatHandler_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest/chat", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestChatHandler_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.tasks.submitErr = fmt.Errorf("%w: task already running", domain.ErrConflict)

	body, contentType := multipartUpload(t, "file", "export.txt", []byte("x"))
	w := env.do(t, http.MethodPost, "/api/v1/ingest/chat", body, map[string]string{"Content-Type": contentType})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIngestPDFHandler(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.doc = &domain.ExtractedPDF{Text: "invoice text", Pages: 3}

	body, contentType := multipartUpload(t, "file", "invoice.pdf", []byte("%PDF-1.4"))
	w := env.do(t, http.MethodPost, "/api/v1/ingest/pdf", body, map[string]string{"Content-Type": contentType})
	require.Equal(t, http.StatusAccepted, w.Code)

	sub := env.tasks.lastSubmission(t)
	assert.Equal(t, domain.TaskIngestPDF, sub.kind)
	require.NotNil(t, sub.params.PDF)
	// The caller's name survives; the stored name carries a uuid prefix.
	assert.Equal(t, "invoice.pdf", sub.params.PDF.FileName)
	assert.Equal(t, "invoice text", sub.params.PDF.Text)
	assert.Equal(t, 3, sub.params.PDF.Pages)
}

func TestIngestPDFHandler_ExtractionFails(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = fmt.Errorf("%w: encrypted document", domain.ErrUnsupportedFormat)

	body, contentType := multipartUpload(t, "file", "locked.pdf", []byte("%PDF-1.4"))
	w := env.do(t, http.MethodPost, "/api/v1/ingest/pdf", body, map[string]string{"Content-Type": contentType})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestEmailHandler(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest/email", map[string]any{
		"addresses": []string{"alice@example.com"},
		"start":     "2024-01-01T00:00:00Z",
		"end":       "2024-02-01T00:00:00Z",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	sub := env.tasks.lastSubmission(t)
	assert.Equal(t, domain.TaskIngestEmail, sub.kind)
	require.NotNil(t, sub.params.Email)
	assert.Equal(t, []string{"alice@example.com"}, sub.params.Email.Addresses)
	require.NotNil(t, sub.params.Email.Range.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), sub.params.Email.Range.Start.UTC())
}

func TestIngestEmailHandler_BadDates(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest/email", map[string]any{
		"addresses": []string{"alice@example.com"},
		"start":     "last tuesday",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/ingest/email", []byte("{not json"), map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
