package api

import "time"

type AnswerSource string

const (
	SourceDocument AnswerSource = "document"
	SourceGeneral  AnswerSource = "general"
)

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string       `json:"answer"`
	Source AnswerSource `json:"source"`
	At     time.Time    `json:"at"`
}

type UploadResponse struct {
	Pages      int `json:"pages"`
	Characters int `json:"characters"`
}

type StatusResponse struct {
	Service         string `json:"service"`
	Model           string `json:"model"`
	CorpusDocuments int    `json:"corpus_documents"`
	ActiveSessions  int    `json:"active_sessions"`
}

type CorpusDocumentMetadata struct {
	Name       string `json:"name"`
	Characters int    `json:"characters"`
}

type ListCorpusResponse struct {
	Total     int                      `json:"total"`
	Documents []CorpusDocumentMetadata `json:"documents"`
}
