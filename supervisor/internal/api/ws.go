package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/supervisor/internal/websocket"
)

// WSHandler handles the WebSocket upgrade endpoint GET /api/v1/ws.
//
// Topic subscription is declared at connection time via the `topics` query
// parameter. A client that asks for nothing is subscribed to "fleet" — every
// event across the whole fleet — so a console never connects to silence by
// omission.
//
// Example connection URL:
//
//	ws://host/api/v1/ws?topics=fleet:3,fleet:7
type WSHandler struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *websocket.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: logger.Named("ws_handler"),
	}
}

// ServeWS handles GET /api/v1/ws. It resolves the requested topics, upgrades
// the connection, and starts the client read/write pumps. The handler blocks
// until the connection closes — this is expected for WebSocket handlers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topics := h.resolveTopics(r)

	client, err := websocket.NewClient(h.hub, w, r, topics, h.logger)
	if err != nil {
		// gorilla has already written the HTTP error response to the client;
		// the failure is logged here.
		h.logger.Warn("ws: upgrade failed", zap.Error(err))
		return
	}

	rendered := make([]string, len(topics))
	for i, t := range topics {
		rendered[i] = t.String()
	}
	h.logger.Info("ws: client connected",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Strings("topics", rendered),
	)

	client.Run()

	h.logger.Info("ws: client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// resolveTopics builds the topic list for a client connection from the
// `topics` query parameter (comma-separated), defaulting to AllFleet() when
// the parameter is absent, empty, or contains only blank entries.
func (h *WSHandler) resolveTopics(r *http.Request) []websocket.Topic {
	seen := make(map[websocket.Topic]struct{})
	var topics []websocket.Topic

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		t := websocket.ParseTopic(raw)
		if _, exists := seen[t]; !exists {
			seen[t] = struct{}{}
			topics = append(topics, t)
		}
	}

	if raw := r.URL.Query().Get("topics"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			add(t)
		}
	}

	if len(topics) == 0 {
		topics = append(topics, websocket.AllFleet())
	}

	return topics
}
