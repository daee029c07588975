// Package main is the entry point for the reactor PLC binary.
//
// Startup sequence:
//  1. Parse CLI flags / environment variables
//  2. Build logger
//  3. Boot the safety core with neither reactor nor modem marked attached
//     (no peripheral handle is opened here; the node boots degraded and
//     waits for attach events)
//  4. Open the UDP transport and build the safety core, comms link, and
//     tick scheduler
//  5. Run the scheduler until SIGINT/SIGTERM, then attempt a final SCRAM
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/plc/internal/comms"
	"github.com/reactorfleet/scada-core/plc/internal/safety"
	"github.com/reactorfleet/scada-core/plc/internal/scheduler"
	"github.com/reactorfleet/scada-core/shared/transport"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type config struct {
	reactorID   uint32
	listenAddr  string
	serverAddr  string
	networked   bool
	logLevel    string
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
		Use:   "reactor-plc",
		Short: "Reactor PLC — the real-time safety loop for one simulated reactor",
		Long: `reactor-plc runs the safety core for a single reactor: it holds the
latching SCRAM flag, checks the Independent Safety System every tick, and
maintains a session with the fleet Supervisor over the SCADA messaging
layer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().Uint32Var(&cfg.reactorID, "reactor-id", envOrDefaultUint32("PLC_REACTOR_ID", 0), "this node's REACTOR_ID (plc_id on the wire)")
	root.PersistentFlags().StringVar(&cfg.listenAddr, "listen-addr", envOrDefault("PLC_LISTEN_ADDR", "0.0.0.0:4000"), "local UDP address to listen on")
	root.PersistentFlags().StringVar(&cfg.serverAddr, "server-addr", envOrDefault("PLC_SERVER_ADDR", "127.0.0.1:5000"), "Supervisor's UDP address")
	root.PersistentFlags().BoolVar(&cfg.networked, "networked", true, "whether this node requires a modem link to avoid degraded state")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", envOrDefault("PLC_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("reactor-plc %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(cfg *config) error {
	logger, err := buildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("starting reactor plc",
		zap.String("version", version),
		zap.Uint32("reactor_id", cfg.reactorID),
		zap.String("listen_addr", cfg.listenAddr),
		zap.String("server_addr", cfg.serverAddr),
		zap.Bool("networked", cfg.networked),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := transport.Listen(cfg.listenAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	// Both cleanup actions are independent and neither should mask the
	// other, so their errors are aggregated rather than one shadowing it.
	defer func() {
		if err := multierr.Combine(conn.Close(), logger.Sync()); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	serverAddr, err := net.ResolveUDPAddr("udp", cfg.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve server address: %w", err)
	}

	// The reactor handle itself is a simulated-world concern outside this
	// repository's scope; boot without one attached and wait for the
	// peripheral manager (not included here) to report an attach event.
	core := safety.NewCore(false, safety.Networked(cfg.networked), nil, logger)
	iss := &safety.LatchedIss{}
	link := comms.New(cfg.reactorID, conn, serverAddr, 0, 0, logger)

	sched := scheduler.New(core, link, conn, iss, safety.Networked(cfg.networked), logger)

	go func() {
		<-ctx.Done()
		sched.Terminate()
	}()

	sched.Run()

	logger.Info("reactor plc stopped")
	return nil
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

func envOrDefaultUint32(key string, defaultVal uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var parsed uint32
	if _, err := fmt.Sscanf(v, "%d", &parsed); err != nil {
		return defaultVal
	}
	return parsed
}
