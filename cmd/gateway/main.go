// Command gateway runs the ET112 caching Modbus gateway: it polls the
// upstream meter on a fixed schedule and serves downstream RTU and TCP
// masters entirely from the cache, so those masters never block on the
// upstream link.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"et112-cache-gateway/internal/cacheserver"
	"et112-cache-gateway/internal/config"
	"et112-cache-gateway/internal/engine"
	"et112-cache-gateway/internal/logging"
	"et112-cache-gateway/internal/register"
	"et112-cache-gateway/internal/snapshot"
	"et112-cache-gateway/internal/store"
	"et112-cache-gateway/internal/upstream"
)

var (
	configPath string
	debugLog   bool
)

func main() {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Caching Modbus gateway for the Carlo-Gavazzi ET112",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "gateway.toml", "path to the TOML configuration file")
	root.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable development-mode logging")

	root.AddCommand(runCmd())
	root.AddCommand(snapshotCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the gateway until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func snapshotCmd() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current cache snapshot and exit",
		Long:  "Connects to the upstream meter just long enough to populate the cache once, then prints it. Intended for scripting and diagnostics, not for production polling.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSnapshot(cmd.Context(), asCSV)
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "print as CSV instead of JSON")
	return cmd
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(debugLog)
	if err != nil {
		return fmt.Errorf("gateway: build logger: %w", err)
	}
	defer log.Sync()

	client, closer, err := upstream.NewClient(upstream.TransportConfig{
		ClientIsRTU:     cfg.Upstream.ClientIsRTU,
		TargetIP:        cfg.Upstream.TargetIP,
		TCPPort:         cfg.Upstream.TCPPort,
		SerialPort:      cfg.Upstream.SerialPort,
		UpstreamBaud:    cfg.Upstream.Baud,
		UpstreamFraming: cfg.Upstream.Framing,
		Timeout:         upstreamTimeout(cfg),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	eng := engine.New(cfg.PollInterval, queueDepth(cfg), cfg.Upstream.Baud, client, log)

	if cfg.Translation.Enabled {
		dest, err := config.LoadDestinationTable(cfg.Translation.DestinationTable)
		if err != nil {
			return fmt.Errorf("gateway: load destination table: %w", err)
		}
		eng.EnableTranslation(register.NewModel(dest))
	}

	var hist *store.Store
	if cfg.History.Enabled {
		hist, err = store.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer hist.Close()
	}

	rtuSrv, err := cacheserver.NewRTUServer(cacheserver.RTUConfig{
		SerialPort: cfg.Downstream.SerialPort,
		BaudRate:   cfg.Downstream.Baud,
		Framing:    cfg.Downstream.Framing,
		RTSPin:     cfg.Downstream.RTSPin,
	}, eng, log)
	if err != nil {
		return err
	}
	defer rtuSrv.Close()

	tcpSrv, err := cacheserver.NewTCPServer(cacheserver.TCPConfig{
		Port: cfg.Downstream.TCPPort,
	}, eng, log)
	if err != nil {
		return err
	}
	defer tcpSrv.Close()

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)
	go func() { errCh <- eng.Run(runCtx) }()
	go func() { errCh <- rtuSrv.Serve() }()
	go func() { errCh <- tcpSrv.Serve() }()

	if hist != nil {
		go historyLoop(runCtx, eng, hist, cfg.HistoryEvery, log)
	}

	select {
	case <-runCtx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func historyLoop(ctx context.Context, eng *engine.Engine, hist *store.Store, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := hist.WriteSnapshot(eng.Snapshot()); err != nil && log != nil {
				log.Warn("history write failed", zap.Error(err))
			}
		}
	}
}

func printSnapshot(ctx context.Context, asCSV bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(debugLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	client, closer, err := upstream.NewClient(upstream.TransportConfig{
		ClientIsRTU:     cfg.Upstream.ClientIsRTU,
		TargetIP:        cfg.Upstream.TargetIP,
		TCPPort:         cfg.Upstream.TCPPort,
		SerialPort:      cfg.Upstream.SerialPort,
		UpstreamBaud:    cfg.Upstream.Baud,
		UpstreamFraming: cfg.Upstream.Framing,
		Timeout:         upstreamTimeout(cfg),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	eng := engine.New(cfg.PollInterval, queueDepth(cfg), cfg.Upstream.Baud, client, log)

	if cfg.Translation.Enabled {
		dest, err := config.LoadDestinationTable(cfg.Translation.DestinationTable)
		if err != nil {
			return err
		}
		eng.EnableTranslation(register.NewModel(dest))
	}

	runCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	go eng.Run(runCtx)

	for !eng.IsOperational() && runCtx.Err() == nil {
		select {
		case <-runCtx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}

	snap := eng.Snapshot()
	if asCSV {
		return snapshot.WriteCSV(os.Stdout, snap)
	}
	return snapshot.WriteJSON(os.Stdout, snap)
}

// upstreamTimeout resolves the per-request upstream timeout: 1s for
// RTU per spec.md §4.6 (left as zero so upstream.NewClient's own
// default applies), 2s for TCP, which has its own keepalive and can
// tolerate a longer round trip.
func upstreamTimeout(cfg config.Resolved) time.Duration {
	if cfg.Upstream.ClientIsRTU {
		return 0
	}
	return 2 * time.Second
}

func queueDepth(cfg config.Resolved) int {
	if cfg.Upstream.ClientIsRTU {
		return upstream.RTUQueueDepth
	}
	return upstream.TCPQueueDepth
}
