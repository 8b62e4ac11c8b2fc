package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backend "docqa-backend/internal/api"
	"docqa-backend/internal/corpus"
	"docqa-backend/internal/qa"
	"docqa-backend/internal/session"
	"docqa-backend/pkg/api"
)

type mockCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	lastUser string
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastUser = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCompleter) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUser
}

func (m *mockCompleter) setResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
}

type relayFixture struct {
	sessions *session.Store
	classify *mockCompleter
	generate *mockCompleter
	router   chi.Router
}

func newRelayFixture(shared *corpus.Corpus) *relayFixture {
	sessions := session.NewStore()
	classify := &mockCompleter{response: "YES"}
	generate := &mockCompleter{response: "a generated answer"}

	qaRouter := qa.NewRouter(sessions, shared, qa.NewClassifier(classify, 4000), qa.NewGenerator(generate))
	service := backend.NewRelayService(sessions, shared, qaRouter, "gpt-4o-mini", 100_000)

	router := chi.NewRouter()
	service.AddRoutes(router)
	router.Get("/ws", backend.NewWSHandler(sessions, qaRouter, 100_000, nil).ServeHTTP)

	return &relayFixture{sessions: sessions, classify: classify, generate: generate, router: router}
}

func multipartBody(t *testing.T, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="doc.txt"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func (f *relayFixture) upload(t *testing.T, sessionID uuid.UUID, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()

	body, formContentType := multipartBody(t, contentType, content)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/document", sessionID), body)
	req.Header.Set("Content-Type", formContentType)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *relayFixture) ask(t *testing.T, sessionID uuid.UUID, question string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(api.AskRequest{Question: question})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/ask", sessionID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	shared := corpus.New([]corpus.Document{{Name: "a.txt", Text: "alpha"}})
	f := newRelayFixture(shared)

	id := uuid.New()
	f.sessions.Create(id)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status api.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, backend.ServiceName, status.Service)
	assert.Equal(t, "gpt-4o-mini", status.Model)
	assert.Equal(t, 1, status.CorpusDocuments)
	assert.Equal(t, 1, status.ActiveSessions)
}

func TestUploadDocument(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	content := "The capital of Francia is Paris."
	rec := f.upload(t, id, "text/plain", content)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, len(content), res.Characters)

	text, ok := f.sessions.Document(id)
	assert.True(t, ok)
	assert.Equal(t, content, text)
}

func TestUploadUnknownSession(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	rec := f.upload(t, uuid.New(), "text/plain", "some content")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadMissingFile(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/document", id), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadUnsupportedMimeType(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	rec := f.upload(t, id, "image/png", "pretend png bytes")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	_, ok := f.sessions.Document(id)
	assert.False(t, ok, "a rejected upload must not mutate the session")
}

func TestUploadEmptyDocument(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	rec := f.upload(t, id, "text/plain", "   \n  ")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAskWithoutDocument(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	rec := f.ask(t, id, "What is 2+2?")
	require.Equal(t, http.StatusOK, rec.Code)

	var res api.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, api.SourceGeneral, res.Source)
	assert.NotEmpty(t, res.Answer)
	assert.False(t, res.At.IsZero())
	assert.Equal(t, 0, f.classify.callCount())
}

func TestAskWithDocument(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	rec := f.upload(t, id, "text/plain", "The capital of Francia is Paris.")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.ask(t, id, "What is the capital of Francia?")
	require.Equal(t, http.StatusOK, rec.Code)

	var res api.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, api.SourceDocument, res.Source)
	assert.Contains(t, f.generate.lastPrompt(), "Paris")
}

func TestAskUnknownSession(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	rec := f.ask(t, uuid.New(), "hello?")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskMissingQuestion(t *testing.T) {
	f := newRelayFixture(corpus.New(nil))

	id := uuid.New()
	f.sessions.Create(id)

	rec := f.ask(t, id, "   ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCorpusDocuments(t *testing.T) {
	shared := corpus.New([]corpus.Document{
		{Name: "a.txt", Text: "alpha"},
		{Name: "b.txt", Text: "beta"},
		{Name: "c.txt", Text: "gamma"},
	})
	f := newRelayFixture(shared)

	req := httptest.NewRequest(http.MethodGet, "/corpus/documents?limit=2&offset=1", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res api.ListCorpusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, "b.txt", res.Documents[0].Name)
	assert.Equal(t, "c.txt", res.Documents[1].Name)
	assert.Equal(t, len("beta"), res.Documents[0].Characters)
}
