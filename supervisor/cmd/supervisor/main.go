// Package main is the entry point for the fleet Supervisor binary.
//
// Startup sequence:
//  1. Parse CLI flags / environment variables
//  2. Build logger
//  3. Open the UDP transport and build the fleet registry, handshake core,
//     websocket hub, and periodic housekeeper
//  4. Start the admin HTTP server (REST + websocket feed)
//  5. Run the inbound-message loop until SIGINT/SIGTERM, then shut everything
//     down in reverse order
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/shared/transport"
	"github.com/reactorfleet/scada-core/supervisor/internal/api"
	"github.com/reactorfleet/scada-core/supervisor/internal/core"
	"github.com/reactorfleet/scada-core/supervisor/internal/housekeep"
	"github.com/reactorfleet/scada-core/supervisor/internal/registry"
	"github.com/reactorfleet/scada-core/supervisor/internal/websocket"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type config struct {
	listenAddr string
	httpAddr   string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "supervisor",
		Short: "Fleet Supervisor — terminates PLC sessions and serves the admin console",
		Long: `supervisor accepts RPLC/MGMT links from every reactor PLC in the fleet,
tracks their STATUS telemetry, relays operator RPS commands, and serves a
REST and WebSocket admin surface over the aggregated fleet state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cfg.listenAddr, "listen-addr", envOrDefault("SUPERVISOR_LISTEN_ADDR", "0.0.0.0:5000"), "UDP address to accept PLC links on")
	root.PersistentFlags().StringVar(&cfg.httpAddr, "http-addr", envOrDefault("SUPERVISOR_HTTP_ADDR", "0.0.0.0:8080"), "HTTP address for the admin API and websocket feed")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", envOrDefault("SUPERVISOR_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("supervisor %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(cfg *config) error {
	logger, err := buildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("starting fleet supervisor",
		zap.String("version", version),
		zap.String("listen_addr", cfg.listenAddr),
		zap.String("http_addr", cfg.httpAddr),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := transport.Listen(cfg.listenAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}

	fleet := registry.New(logger)
	c := core.New(fleet, conn, logger)
	hub := websocket.NewHub()
	go hub.Run(ctx)
	go relayEvents(ctx, c, hub)

	hk, err := housekeep.New(fleet, hub, logger)
	if err != nil {
		return multierr.Combine(fmt.Errorf("failed to build housekeeper: %w", err), conn.Close())
	}
	if err := hk.Start(); err != nil {
		return multierr.Combine(fmt.Errorf("failed to start housekeeper: %w", err), conn.Close())
	}

	httpSrv := &http.Server{
		Addr: cfg.httpAddr,
		Handler: api.NewRouter(api.RouterConfig{
			Fleet:  fleet,
			Core:   c,
			Hub:    hub,
			Logger: logger,
		}),
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	go inboundLoop(ctx, conn, c, logger)

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	var combined error
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		combined = multierr.Append(combined, fmt.Errorf("http shutdown: %w", err))
	}
	if err := hk.Shutdown(); err != nil {
		combined = multierr.Append(combined, fmt.Errorf("housekeeper shutdown: %w", err))
	}
	combined = multierr.Append(combined, conn.Close())
	combined = multierr.Append(combined, logger.Sync())

	if combined != nil {
		fmt.Fprintln(os.Stderr, combined)
	}

	logger.Info("fleet supervisor stopped")
	return nil
}

// inboundLoop drains the transport's message channel and hands each one to
// core for handshake/telemetry processing. Unlike the PLC's single-threaded
// tick scheduler, the Supervisor has no shared mutable safety-critical state
// per tick — it only needs core's internal locking (via the fleet registry)
// to be correct under whatever concurrency this loop and the HTTP handlers
// introduce.
func inboundLoop(ctx context.Context, conn *transport.Conn, c *core.Core, logger *zap.Logger) {
	messages := conn.Messages()
	errs := conn.Errors()
	for {
		select {
		case wm := <-messages:
			c.HandleInbound(wm, time.Now())
		case err := <-errs:
			logger.Error("transport failed", zap.Error(err))
			return
		case <-ctx.Done():
			return
		}
	}
}

// relayEvents drains core's fleet-event channel and republishes each one to
// the websocket hub, translating core's wire-agnostic Event into the JSON
// Message shape the admin console expects. Each event is delivered both to
// the fleet-wide firehose and to the originating PLC's own topic, so a
// console narrowed to one reactor sees its events without subscribing to
// every other one too.
func relayEvents(ctx context.Context, c *core.Core, hub *websocket.Hub) {
	events := c.Events()
	for {
		select {
		case ev := <-events:
			hub.PublishFleetEvent(ev.PlcID, eventToMessage(ev))
		case <-ctx.Done():
			return
		}
	}
}

func eventToMessage(ev core.Event) websocket.Message {
	payload := map[string]any{"plc_id": ev.PlcID}

	var typ websocket.MessageType
	switch ev.Kind {
	case core.EventLinked:
		typ = websocket.MsgPlcLinked
	case core.EventUnlinked:
		typ = websocket.MsgPlcUnlinked
	case core.EventStatus:
		typ = websocket.MsgPlcStatus
		payload["scram"] = ev.Scram
		payload["iss_status"] = ev.IssStatus
	case core.EventAlarm:
		typ = websocket.MsgPlcAlarm
		payload["iss_status"] = ev.IssStatus
	}

	return websocket.Message{Type: typ, Payload: payload}
}

func buildLogger(level string) (*zap.Logger, error) {
	var zcfg zap.Config

	switch level {
	case "debug":
		zcfg = zap.NewDevelopmentConfig()
	default:
		zcfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zcfg.Build()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
