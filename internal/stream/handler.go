package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/averline/splitkit/internal/flags"
	"github.com/averline/splitkit/internal/identity"
	"github.com/coder/websocket"
)

// Handler upgrades subscribers onto the flag snapshot stream.
type Handler struct {
	m             *Manager
	engine        *flags.Engine
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket handler for the flag stream.
func NewHandler(m *Manager, engine *flags.Engine, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		m:             m,
		engine:        engine,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade. Each subscriber
// receives the current snapshot on connect and a fresh one after every
// refresh merge until it disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subjectID := identity.SubjectIDFromContext(r.Context())

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "subject_id", subjectID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "subject_id", subjectID)
		}
	}()

	// Initial snapshot before registering, so a refresh racing the
	// connect cannot deliver out of order.
	initial, err := json.Marshal(snapshotMessage{Type: "snapshot", Flags: h.engine.All()})
	if err != nil {
		slog.Error("Failed to encode initial snapshot", "error", err)
		return
	}
	if err := ws.Write(r.Context(), websocket.MessageText, initial); err != nil {
		slog.Debug("Failed to send initial snapshot", "error", err, "subject_id", subjectID)
		return
	}

	h.m.register(ws)
	defer h.m.unregister(ws)

	slog.Info("Flag stream subscriber connected", "subject_id", subjectID)

	// The stream is one-way; reads only detect disconnection.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			return
		}
	}
}

// checkOrigin validates the request origin against the configured frontend.
// Development mode accepts any origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev || h.allowedOrigin == "" {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	allowedURL, err := url.Parse(h.allowedOrigin)
	if err != nil {
		return false
	}

	return strings.EqualFold(originURL.Host, allowedURL.Host)
}
