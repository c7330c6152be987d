package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/regionmetrics/server/internal/aggregate"
	"github.com/obsidianstack/regionmetrics/server/internal/api"
	"github.com/obsidianstack/regionmetrics/server/internal/config"
	"github.com/obsidianstack/regionmetrics/server/internal/logging"
	"github.com/obsidianstack/regionmetrics/server/internal/metrics"
	"github.com/obsidianstack/regionmetrics/server/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP metrics endpoint",
		Long: `Load the telemetry dataset and serve POST metrics requests.

The dataset is loaded once at startup; a load failure exits non-zero before
the listener is bound. Editing the config file at runtime re-applies the
log level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, path)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, level, closer := logging.New(cfg.Logging)
	defer closer.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("regionmetrics starting", "version", version, "config", configPath)

	handler, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.HTTPPort))
	if err != nil {
		logger.Error("failed to listen on HTTP port", "port", cfg.Server.HTTPPort, "err", err)
		return err
	}

	var onReload func(*config.Config)
	if configPath != "" {
		onReload = func(next *config.Config) {
			level.Set(logging.ParseLevel(next.Logging.Level))
		}
	}
	return serve(ctx, cfg, configPath, lis, handler, logger, onReload)
}

// buildHandler loads the dataset and assembles the HTTP handler with its
// own Prometheus registry.
func buildHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	ds, err := telemetry.Load(ctx, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded",
		"source", cfg.Dataset.Source,
		"path", cfg.Dataset.Path,
		"samples", ds.Len(),
		"regions", len(ds.Regions()),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	metrics.SetDataset(ds.Len(), len(ds.Regions()))

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return api.New(aggregate.New(ds), cfg.Server, logger, metricsHandler), nil
}

// serve runs the HTTP server on lis (and the config watcher when onReload is
// set) until ctx is cancelled, then shuts down within the configured timeout.
func serve(
	ctx context.Context,
	cfg *config.Config,
	configPath string,
	lis net.Listener,
	handler http.Handler,
	logger *slog.Logger,
	onReload func(*config.Config),
) error {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", lis.Addr().String(), "routes", cfg.Server.Routes)
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("regionmetrics shutting down")

		shutdownCtx := context.Background()
		if cfg.Server.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, cfg.Server.ShutdownTimeout)
			defer cancel()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if onReload != nil && configPath != "" {
		g.Go(func() error {
			if err := config.Watch(gctx, logger, configPath, cfg, onReload); err != nil {
				logger.Warn("config watch disabled", "path", configPath, "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}
