package api

import "time"

// Client-to-server frame types.
const (
	FrameUpload  = "upload"
	FrameAsk     = "ask"
	FrameMessage = "message" // legacy: plain text question, plain text answer
)

// Server-to-client frame types.
const (
	FrameConnected = "connected"
	FrameUploaded  = "uploaded"
	FrameAnswer    = "answer"
	FrameError     = "error"
)

type WSIncoming struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"` // base64 document bytes
	Question string `json:"question,omitempty"`
	Text     string `json:"text,omitempty"`
}

type WSOutgoing struct {
	Type       string       `json:"type"`
	SessionID  string       `json:"session_id,omitempty"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	Answer     string       `json:"answer,omitempty"`
	Source     AnswerSource `json:"source,omitempty"`
	At         *time.Time   `json:"at,omitempty"`
	Pages      int          `json:"pages,omitempty"`
	Characters int          `json:"characters,omitempty"`
}
