package cli

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/http/api"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/http/swagger"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/config"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/metrics"
)

// HTTP server timeout constants. Writes wait for a whole analysis run.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 10 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// NewServeCommand creates the serve subcommand.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Starts the HTTP API. Configuration is read from defaults, the YAML file
named by TAGS_CONFIG and TAGS_* environment variables, in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithAnalyzer(service.NewAnalyzer(
			service.WithWorkers(cfg.WorkerCount),
			service.WithMaxSources(cfg.QueueSize),
			service.WithAnalyzerLogger(log.Named("analyzer")),
		)),
	)
	defer svc.Stop(context.Background())

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg, reader),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return WrapExitError(ExitFailure, "HTTP server failed", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Cancel in-flight analyses before waiting on their handlers.
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Warn(ctx, "analysis workers did not stop", logger.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newMux wires the documentation and business routes.
func newMux(ctx context.Context, svc *service.Service, cfg *config.Config, reader *ingest.Reader) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithReader(reader),
		api.WithDefaultMaxMinutes(cfg.MaxMinutes),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithLogger(logger.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater samples runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
