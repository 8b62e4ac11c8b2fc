package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"docqa-backend/internal/corpus"
	"docqa-backend/internal/extraction"
	"docqa-backend/internal/qa"
	"docqa-backend/internal/session"
	"docqa-backend/pkg/api"
)

const ServiceName = "docqa-backend"

// maxUploadBytes bounds the raw request size; the extracted text is bounded
// separately by the character limit.
const maxUploadBytes = 32 << 20

type RelayService struct {
	sessions    *session.Store
	corpus      *corpus.Corpus
	router      *qa.Router
	model       string
	uploadLimit int
}

func NewRelayService(sessions *session.Store, shared *corpus.Corpus, router *qa.Router, model string, uploadLimit int) *RelayService {
	return &RelayService{
		sessions:    sessions,
		corpus:      shared,
		router:      router,
		model:       model,
		uploadLimit: uploadLimit,
	}
}

func (s *RelayService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Get("/", RestHandler(s.GetStatus))
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Post("/document", RestHandler(s.UploadDocument))
		r.Post("/ask", RestHandler(s.Ask))
	})
	r.Get("/corpus/documents", RestHandler(s.ListCorpusDocuments))
}

func (s *RelayService) GetStatus(r *http.Request) (any, error) {
	return api.StatusResponse{
		Service:         ServiceName,
		Model:           s.model,
		CorpusDocuments: s.corpus.Len(),
		ActiveSessions:  s.sessions.Len(),
	}, nil
}

// UploadDocument attaches an extracted document text to an existing session.
// The session id must belong to a live connection; uploads overwrite any
// prior document on that session.
func (s *RelayService) UploadDocument(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if !s.sessions.Exists(sessionID) {
		return nil, CodedErrorf(http.StatusBadRequest, "unknown session id %s", sessionID)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing file in upload request")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to read uploaded file: %v", err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename)))
	}

	res, err := extraction.Extract(data, mimeType, s.uploadLimit)
	if err != nil {
		return nil, uploadError(err)
	}

	if err := s.sessions.SetDocument(sessionID, res.Text); err != nil {
		// The connection disconnected between the existence check and here.
		return nil, CodedErrorf(http.StatusBadRequest, "unknown session id %s", sessionID)
	}

	slog.Info("document stored for session", "session_id", sessionID, "pages", res.Pages, "characters", len(res.Text))
	return api.UploadResponse{Pages: res.Pages, Characters: len(res.Text)}, nil
}

func (s *RelayService) Ask(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if !s.sessions.Exists(sessionID) {
		return nil, CodedErrorf(http.StatusBadRequest, "unknown session id %s", sessionID)
	}

	req, err := ParseRequest[api.AskRequest](r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "question is required")
	}

	answer := s.router.Route(r.Context(), sessionID, req.Question)
	return api.AskResponse{Answer: answer.Text, Source: answer.Source, At: answer.At}, nil
}

type listCorpusQuery struct {
	Limit  int `schema:"limit"`
	Offset int `schema:"offset"`
}

func (s *RelayService) ListCorpusDocuments(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[listCorpusQuery](r)
	if err != nil {
		return nil, err
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	docs := s.corpus.Documents()
	res := api.ListCorpusResponse{Total: len(docs), Documents: []api.CorpusDocumentMetadata{}}

	for i := query.Offset; i < len(docs) && len(res.Documents) < query.Limit; i++ {
		res.Documents = append(res.Documents, api.CorpusDocumentMetadata{
			Name:       docs[i].Name,
			Characters: len(docs[i].Text),
		})
	}

	return res, nil
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return CodedError(http.StatusUnsupportedMediaType, err)
	case errors.Is(err, extraction.ErrEmptyDocument):
		return CodedError(http.StatusUnprocessableEntity, err)
	case errors.Is(err, extraction.ErrExtractionFailed):
		return CodedError(http.StatusUnprocessableEntity, err)
	default:
		return CodedError(http.StatusInternalServerError, err)
	}
}
