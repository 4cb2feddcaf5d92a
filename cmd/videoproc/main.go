// Package main implements the videoproc entry point: capture frames
// from a live or file-backed source, run them through the processing
// pipeline, and serve subscribers and the archival queue until the
// process is signalled to stop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/config"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/natsclient"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/service"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage/objectstore"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "videoproc"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	slog.Info("Starting videoproc",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	ctx := context.Background()
	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := connectNATS(ctx, cfg, logger, metricsRegistry)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() { _ = natsClient.Close(ctx) }()
	}

	sink, err := buildSink(ctx, cfg, natsClient)
	if err != nil {
		return err
	}

	proc, err := service.New(cfg, service.Deps{
		Sink:            sink,
		Logger:          logger,
		MetricsRegistry: metricsRegistry,
	})
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}

	if cfg.Metrics.Enabled {
		metricsServer := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
		go func() {
			if serveErr := metricsServer.Start(); serveErr != nil {
				slog.Error("Metrics server failed", "error", serveErr)
			}
		}()
		defer func() { _ = metricsServer.Stop() }()
		slog.Info("Metrics server listening", "address", metricsServer.Address())
	}

	milestones := milestoneLogger(cfg, natsClient, logger)
	return runUntilSignalled(ctx, cliCfg, proc, milestones)
}

// loadConfig builds the configuration. An empty path means defaults
// plus environment overrides; a named file must load cleanly. Both
// paths validate inside the loader.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.NewLoader().Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connectNATS dials NATS when the configuration requires it: the
// nats-object storage backend or the log relay. Deployments that need
// neither run without a connection and get nil.
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
) (*natsclient.Client, error) {
	if !cfg.NeedsNATS() {
		return nil, nil
	}

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithTimeout(cfg.NATS.ConnectTimeout),
		natsclient.WithMetrics(registry.CoreMetrics()),
	}
	if cfg.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.NATS.Name))
	}
	if cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client := natsclient.NewClient(cfg.NATS.URL, opts...)

	slog.Info("Connecting to NATS")
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return client, nil
}

// buildSink constructs the archival sink for the nats-object backend.
// The file and memory backends are built inside the processor; only
// the JetStream-backed sink needs the live connection made here.
func buildSink(ctx context.Context, cfg *config.Config, client *natsclient.Client) (storage.ObjectSink, error) {
	if cfg.Storage.Backend != config.StorageBackendNATS {
		return nil, nil
	}

	js, err := client.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	sink, err := objectstore.New(ctx, js, objectstore.Config{Bucket: cfg.Storage.Bucket})
	if err != nil {
		return nil, fmt.Errorf("bind object store bucket: %w", err)
	}

	slog.Info("Archival sink ready", "backend", cfg.Storage.Backend, "bucket", cfg.Storage.Bucket)
	return sink, nil
}

// milestoneLogger mirrors lifecycle milestones onto the NATS log
// relay when it is enabled. The publisher must stay a plain nil when
// there is no client, otherwise the relay sees a non-nil interface
// wrapping a nil pointer and believes it is enabled.
func milestoneLogger(cfg *config.Config, client *natsclient.Client, logger *slog.Logger) *component.Logger {
	var pub component.LogPublisher
	if cfg.Logging.Relay && client != nil {
		pub = client
	}
	return component.NewLogger("main", pub, logger)
}

// runUntilSignalled starts the processor, begins capture, and blocks
// until SIGINT or SIGTERM triggers a graceful shutdown.
func runUntilSignalled(
	ctx context.Context,
	cliCfg *CLIConfig,
	proc *service.Processor,
	milestones *component.Logger,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	// The processor runs under the background context so a shutdown
	// signal cannot abort the upload queue's drain; the signal only
	// triggers the explicit Stop below.
	if err := proc.Start(ctx); err != nil {
		return fmt.Errorf("start processor: %w", err)
	}

	if err := proc.StartCapture(ctx, cliCfg.Source); err != nil {
		// Keep serving. Subscribers, health, and metrics stay up, and
		// a later start against a recovered device succeeds.
		slog.Error("Initial capture start failed", "error", err)
	}

	milestones.Info("videoproc started")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := proc.Stop(cliCfg.ShutdownTimeout); err != nil {
		milestones.Error("videoproc shutdown failed", err)
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	milestones.Info("videoproc shutdown complete")
	return nil
}
