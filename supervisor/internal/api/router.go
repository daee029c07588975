// Package api implements the HTTP REST API and WebSocket feed for the
// Supervisor's admin surface. It uses Chi as the router and exposes the
// fleet registry and command relay under /api/v1, health and Prometheus
// metrics at the root, and the real-time event feed at /api/v1/ws.
//
// Unlike the teacher's server, there is no JWT/OIDC layer here — peer
// authentication between PLCs and the Supervisor is out of scope (see the
// module's Non-goals), and the admin surface is assumed to sit behind
// network-level access control rather than its own auth stack.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/supervisor/internal/core"
	"github.com/reactorfleet/scada-core/supervisor/internal/registry"
	"github.com/reactorfleet/scada-core/supervisor/internal/websocket"
)

// RouterConfig holds all dependencies needed to build the HTTP router.
type RouterConfig struct {
	Fleet  *registry.Fleet
	Core   *core.Core
	Hub    *websocket.Hub
	Logger *zap.Logger
}

// NewRouter builds and returns the fully configured Chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// RequestID generates a unique ID for each request, used in logs and
	// response headers for tracing.
	r.Use(middleware.RequestID)

	// RealIP extracts the real client IP from X-Forwarded-For or X-Real-IP
	// headers when the server runs behind a reverse proxy.
	r.Use(middleware.RealIP)

	// RequestLogger logs every request with method, path, status and latency.
	r.Use(RequestLogger(cfg.Logger))

	// Recoverer catches panics in handlers, logs them, and returns a 500
	// instead of crashing the server.
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	fleetHandler := NewFleetHandler(cfg.Fleet, cfg.Core, cfg.Logger)
	wsHandler := NewWSHandler(cfg.Hub, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/fleet", fleetHandler.List)
		r.Get("/fleet/{id}", fleetHandler.GetByID)
		r.Post("/fleet/{id}/command", fleetHandler.Command)
		r.Get("/rtus", fleetHandler.ListRTUs)
		r.Get("/ws", wsHandler.ServeWS)
	})

	return r
}
