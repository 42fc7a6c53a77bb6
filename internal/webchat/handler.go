// Package webchat adapts the turn engine to the widget's two transports:
// a plain JSON POST per turn, and a WebSocket that carries the same
// request/response pairs for clients that keep the panel open.
package webchat

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/frontdesk-ai/frontdesk/internal/chat"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

const maxTurnBytes = 64 << 10

// Handler serves the chat transports.
type Handler struct {
	engine *chat.Engine
	logger *logging.Logger
}

// NewHandler wires the transport around a turn engine.
func NewHandler(engine *chat.Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger.Component("webchat")}
}

// envelope is one WebSocket frame in either direction; responses carry the
// session ID back so a widget that connected without one can persist it.
type envelope struct {
	chat.TurnResponse
	SessionID string `json:"session_id"`
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleConverse is the POST transport: one TurnRequest in, one
// TurnResponse out. A missing session ID is minted here and echoed in the
// X-Session-Id header so the widget can resend it.
func (h *Handler) HandleConverse(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTurnBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	resp := h.engine.Handle(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", req.SessionID)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("webchat: failed to write response", "error", err)
	}
}

// HandleWebSocket upgrades and then runs the same turn loop over frames.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var req chat.TurnRequest
		if err := websocket.JSON.Receive(conn, &req); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}
		// The connection's session wins over whatever the frame carries,
		// so one socket can never impersonate another session's guard keys.
		req.SessionID = sessionID

		resp := h.engine.Handle(r.Context(), req)
		if err := websocket.JSON.Send(conn, envelope{TurnResponse: resp, SessionID: sessionID}); err != nil {
			h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}
