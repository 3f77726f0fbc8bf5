// Package transport exposes the HTTP and WebSocket surface described in
// spec.md §6: static controller/viewer pages, a controller WebSocket
// (one per stream, second concurrent connect rejected), and an unlimited
// viewer WebSocket. It adapts coder/websocket connections to the narrow
// internal/session.Controller and internal/broadcast.Viewer interfaces so
// the session package never depends on a concrete transport.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/xenolive/liveasr/internal/session"
)

// readyGateClosedMessage is sent to a controller rejected by the app_ready
// gate, matching original_source/main.py's startup-not-complete rejection.
const readyGateClosedMessage = "server is still starting up"

// writeTimeout bounds a single WebSocket message send.
const writeTimeout = 10 * time.Second

// Handler serves the controller/viewer HTTP and WebSocket endpoints for one
// running service instance.
type Handler struct {
	logger   *slog.Logger
	registry *session.Registry
	pages    PageRenderer

	ready atomic.Bool
}

// PageRenderer serves the static controller/viewer HTML pages. Kept as an
// interface so internal/app can wire an embed.FS-backed implementation
// without this package depending on a specific templating approach.
type PageRenderer interface {
	ControllerPage(w http.ResponseWriter, r *http.Request, streamID string)
	ViewerPage(w http.ResponseWriter, r *http.Request, streamID string)
}

// New creates a Handler. The service is not marked ready until SetReady(true)
// is called, typically once the configured ASR provider's warm-up completes.
func New(registry *session.Registry, pages PageRenderer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, pages: pages}
}

// SetReady flips the app_ready gate. Connections attempted before the first
// call with ready=true are rejected (HTTP 503 for the page routes and the
// controller socket, close code 1013 for the viewer socket), matching
// original_source/main.py's startup gate.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports the current app_ready gate state.
func (h *Handler) Ready() bool {
	return h.ready.Load()
}

// Register mounts every route this package serves onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /liveasr/{streamId}", h.controllerPage)
	mux.HandleFunc("GET /liveasr/watch/{streamId}", h.viewerPage)
	mux.HandleFunc("GET /ws/liveasr/control/{streamId}", h.controllerSocket)
	mux.HandleFunc("GET /ws/liveasr/watch/{streamId}", h.viewerSocket)
}

func (h *Handler) controllerPage(w http.ResponseWriter, r *http.Request) {
	if !h.Ready() {
		http.Error(w, readyGateClosedMessage, http.StatusServiceUnavailable)
		return
	}
	h.pages.ControllerPage(w, r, r.PathValue("streamId"))
}

func (h *Handler) viewerPage(w http.ResponseWriter, r *http.Request) {
	if !h.Ready() {
		http.Error(w, readyGateClosedMessage, http.StatusServiceUnavailable)
		return
	}
	h.pages.ViewerPage(w, r, r.PathValue("streamId"))
}

// controllerSocket accepts a single controller WebSocket per stream. Any
// connection attempted before the app_ready gate opens is rejected with an
// HTTP 503 before the WebSocket upgrade. A second concurrent connection
// attempt completes the opening handshake like any other connection, then is
// immediately closed with policy-violation code 1008 — matching
// original_source/main.py's websocket.close(code=1008), which likewise
// closes an already-upgraded connection rather than refusing the upgrade.
func (h *Handler) controllerSocket(w http.ResponseWriter, r *http.Request) {
	streamID := r.PathValue("streamId")
	logger := h.logger.With("stream_id", streamID, "role", "controller")

	if !h.Ready() {
		http.Error(w, readyGateClosedMessage, http.StatusServiceUnavailable)
		return
	}

	sess := h.registry.GetOrCreate(r.Context(), streamID)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Error("accepting controller websocket", "error", err)
		return
	}

	adapter := &wsController{conn: conn}
	if err := sess.SetController(r.Context(), adapter); err != nil {
		logger.Warn("controller rejected after accept", "error", err)
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer func() {
		sess.RemoveController(adapter)
		h.registry.RemoveIfEmpty(streamID)
	}()

	h.runControllerLoop(r.Context(), logger, sess, adapter)
}

// runControllerLoop reads frames from the controller connection until it
// disconnects, dispatching text frames as control messages and forwarding
// binary frames as audio, matching set_controller's receive loop.
func (h *Handler) runControllerLoop(ctx context.Context, logger *slog.Logger, sess *session.Session, adapter *wsController) {
	for {
		typ, data, err := adapter.conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Info("controller disconnected")
			} else {
				logger.Info("controller read loop ended", "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageText:
			if err := sess.HandleControllerText(ctx, data); err != nil {
				logger.Warn("malformed controller message, closing connection", "error", err)
				adapter.conn.Close(websocket.StatusPolicyViolation, "malformed message")
				return
			}
		case websocket.MessageBinary:
			sess.HandleControllerAudio(data)
		}
	}
}

// viewerSocket accepts an unlimited number of viewer WebSocket connections
// per stream. A viewer attempted before the app_ready gate opens is closed
// with code 1013 ("try again later") without registering it.
func (h *Handler) viewerSocket(w http.ResponseWriter, r *http.Request) {
	streamID := r.PathValue("streamId")
	logger := h.logger.With("stream_id", streamID, "role", "viewer")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Error("accepting viewer websocket", "error", err)
		return
	}

	if !h.Ready() {
		conn.Close(websocket.StatusTryAgainLater, readyGateClosedMessage)
		return
	}

	sess := h.registry.GetOrCreate(r.Context(), streamID)
	adapter := &wsViewer{conn: conn}

	if err := sess.Broadcaster().AddViewer(r.Context(), adapter); err != nil {
		logger.Warn("failed to onboard viewer", "error", err)
		conn.Close(websocket.StatusInternalError, "onboarding failed")
		return
	}
	defer func() {
		sess.Broadcaster().RemoveViewer(adapter)
		h.registry.RemoveIfEmpty(streamID)
	}()

	// Viewers are read-only from the server's perspective; the read loop
	// exists only to detect disconnection (close frames, errors).
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			logger.Info("viewer disconnected", "error", err)
			return
		}
	}
}

// wsController adapts a *websocket.Conn to internal/session.Controller.
type wsController struct {
	conn *websocket.Conn
}

func (c *wsController) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// wsViewer adapts a *websocket.Conn to internal/broadcast.Viewer.
type wsViewer struct {
	conn *websocket.Conn
}

func (v *wsViewer) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return v.conn.Write(ctx, websocket.MessageText, data)
}
