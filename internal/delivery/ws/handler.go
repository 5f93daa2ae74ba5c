// Package ws pushes hub notifications to clients over WebSocket.
package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"eventplanner/internal/delivery/http/helpers"
	"eventplanner/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Handler serves GET /ws. Each connection gets its own hub subscription.
type Handler struct {
	hub      *notify.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler that accepts upgrades from allowedOrigins ("*" allows any).
func NewHandler(hub *notify.Hub, logger *slog.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP godoc
// @Summary Subscribe to notifications
// @Description Upgrades to a WebSocket and pushes {"event": topic, "payload": {...}} frames. Optional comma separated topics filter.
// @Tags notifications
// @Param topics query string false "newEventCreated,userJoinedEvent,userLeftEvent,eventCancelled"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} helpers.APIResponse
// @Router /ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics, err := ParseTopics(r.URL.Query().Get("topics"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}

	sub, err := h.hub.Subscribe(topics...)
	if err != nil {
		if errors.Is(err, notify.ErrHubClosed) {
			helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "shutting down")
			return
		}
		helpers.WriteServiceError(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		sub.Close()
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.logger.Debug("websocket connected", "remote_addr", r.RemoteAddr, "topics", topics)

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, done)
}

// readPump discards client messages and tracks pongs. It closes done when the peer goes away.
func (h *Handler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sub *notify.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case n, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			frame, err := EncodeFrame(n)
			if err != nil {
				h.logger.Error("encode notification", "topic", n.Topic(), "error", err)
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func splitComma(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
