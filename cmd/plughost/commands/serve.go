package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/internal/telemetry"
	"github.com/marmos91/plughost/pkg/config"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/host"
	"github.com/marmos91/plughost/pkg/lifecycle"
	"github.com/marmos91/plughost/pkg/runtime"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/plughost/pkg/metrics/prometheus"
)

var pidFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Discover, activate and serve plugins",
	Long: `Load the configuration, discover and install the declared plugins,
activate them with the HTTP host and serve until interrupted.

Examples:
  # Serve with the default configuration file
  plughost serve

  # Serve with a custom configuration file
  plughost serve --config /etc/plughost/config.yaml

  # Override settings through the environment
  PLUGHOST_LOGGING_LEVEL=DEBUG plughost serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process id to this file while serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "plughost",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "plughost",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Policy:         cfg.Discovery.ConfigurePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()),
		"level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Metrics must be initialized before the runtime so its collectors register.
	metricsResult := config.InitializeMetrics(cfg)

	rt, err := runtime.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	if err := container.AddSingleton(rt.Services(), storeConfig(cfg.Samples.Database)); err != nil {
		return err
	}

	report, err := rt.AddPlugins(ctx, cfg.Source())
	if err != nil {
		logger.Warn("Some plugins failed to install", logger.Err(err))
	}
	if report != nil {
		for _, f := range report.Failures {
			logger.Warn("Plugin unavailable", logger.Plugin(f.Name), logger.Err(f.Err))
		}
	}
	defer closePlugins(rt.Plugins())

	server := host.NewServer(hostConfig(cfg), rt.Registry())
	if _, err := rt.Activate(ctx, server); err != nil {
		if rt.Driver().Policy() == lifecycle.StopOnError {
			return fmt.Errorf("plugin activation failed: %w", err)
		}
		logger.Warn("Some plugins failed to activate", logger.Err(err))
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	if metricsResult.Server != nil {
		go func() {
			logger.Info("Metrics listening", "port", cfg.Metrics.Port)
			if err := metricsResult.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", logger.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = metricsResult.Server.Shutdown(shutdownCtx)
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("plughost is running. Press Ctrl+C to stop.", logger.Count(len(rt.Plugins())))

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")
	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
	}
	return nil
}
