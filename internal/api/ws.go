package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"docqa-backend/internal/extraction"
	"docqa-backend/internal/qa"
	"docqa-backend/internal/session"
	"docqa-backend/pkg/api"
)

const greetingMessage = "Connected. Upload a document or ask me anything."

// WSHandler owns the connection lifecycle: a session entry is created on
// upgrade and removed on disconnect, and the upload/ask operations are
// exposed as JSON frames on the socket.
type WSHandler struct {
	sessions    *session.Store
	router      *qa.Router
	uploadLimit int
	upgrader    websocket.Upgrader
}

func NewWSHandler(sessions *session.Store, router *qa.Router, uploadLimit int, allowedOrigins []string) *WSHandler {
	origins := make(map[string]bool)
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return &WSHandler{
		sessions:    sessions,
		router:      router,
		uploadLimit: uploadLimit,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // allow non-browser clients
				}
				return origins[origin]
			},
		},
	}
}

// wsConn serializes frame writes. Answers for one connection may complete on
// several goroutines, and a write after close must be dropped, not panic.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *wsConn) write(frame api.WSOutgoing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		slog.Warn("failed to write websocket frame", "error", err)
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.conn.Close()
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxUploadBytes)

	c := &wsConn{conn: conn}
	defer c.close()

	sessionID := uuid.New()
	h.sessions.Create(sessionID)
	defer h.sessions.Remove(sessionID)

	slog.Info("session connected", "session_id", sessionID)
	defer slog.Info("session disconnected", "session_id", sessionID)

	c.write(api.WSOutgoing{
		Type:      api.FrameConnected,
		SessionID: sessionID.String(),
		Message:   greetingMessage,
	})

	// Canceling on disconnect drops this session's in-flight completion
	// calls; their results go nowhere anyway.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket closed unexpectedly", "session_id", sessionID, "error", err)
			}
			return
		}

		var incoming api.WSIncoming
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.write(api.WSOutgoing{
				Type:  api.FrameError,
				Error: "invalid message format: send JSON with a 'type' field",
			})
			continue
		}

		switch incoming.Type {
		case api.FrameUpload:
			h.handleUpload(sessionID, c, incoming)
		case api.FrameAsk:
			h.handleAsk(ctx, sessionID, c, incoming.Question)
		case api.FrameMessage:
			// Legacy plain-message form: same routing, question in 'text'.
			h.handleAsk(ctx, sessionID, c, incoming.Text)
		default:
			c.write(api.WSOutgoing{
				Type:  api.FrameError,
				Error: "unknown message type: expected upload, ask, or message",
			})
		}
	}
}

func (h *WSHandler) handleUpload(sessionID uuid.UUID, c *wsConn, incoming api.WSIncoming) {
	data, err := base64.StdEncoding.DecodeString(incoming.Data)
	if err != nil {
		c.write(api.WSOutgoing{Type: api.FrameError, Error: "document data must be base64 encoded"})
		return
	}
	if len(data) == 0 {
		c.write(api.WSOutgoing{Type: api.FrameError, Error: "document data is required"})
		return
	}

	res, err := extraction.Extract(data, incoming.MimeType, h.uploadLimit)
	if err != nil {
		c.write(api.WSOutgoing{Type: api.FrameError, Error: uploadErrorMessage(err)})
		return
	}

	if err := h.sessions.SetDocument(sessionID, res.Text); err != nil {
		c.write(api.WSOutgoing{Type: api.FrameError, Error: "session no longer exists"})
		return
	}

	slog.Info("document stored for session", "session_id", sessionID, "filename", incoming.Filename, "pages", res.Pages, "characters", len(res.Text))
	c.write(api.WSOutgoing{
		Type:       api.FrameUploaded,
		Pages:      res.Pages,
		Characters: len(res.Text),
	})
}

// handleAsk answers in its own goroutine so a slow completion call on one
// question never blocks the connection's read loop; concurrent questions
// each route against their own document snapshot and may return out of order.
func (h *WSHandler) handleAsk(ctx context.Context, sessionID uuid.UUID, c *wsConn, question string) {
	if strings.TrimSpace(question) == "" {
		c.write(api.WSOutgoing{Type: api.FrameError, Error: "question is required"})
		return
	}

	go func() {
		answer := h.router.Route(ctx, sessionID, question)
		at := answer.At
		c.write(api.WSOutgoing{
			Type:   api.FrameAnswer,
			Answer: answer.Text,
			Source: answer.Source,
			At:     &at,
		})
	}()
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return "unsupported document format: upload a PDF or plain text file"
	case errors.Is(err, extraction.ErrEmptyDocument):
		return "document contains no extractable text"
	default:
		return "could not extract text from document"
	}
}
