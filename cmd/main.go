package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/tofo/internal/adapters/export"
	"github.com/okian/tofo/internal/adapters/http/api"
	"github.com/okian/tofo/internal/adapters/scheduler"
	"github.com/okian/tofo/internal/bootstrap"
	"github.com/okian/tofo/internal/config"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/pkg/logger"
	"github.com/okian/tofo/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 5 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the custom system metrics are exported.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "tofo stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	rt, err := bootstrap.Build(ctx, cfg, bootstrap.WithLogger(log))
	if err != nil {
		return err
	}
	defer rt.Close()

	log.Info(ctx, "observatory ready",
		logger.String("name", rt.Observatory.Name),
		logger.Float64("lat", rt.Observatory.Latitude),
		logger.Float64("lon", rt.Observatory.Longitude),
		logger.Any("sources", rt.Cache.Enabled()),
	)

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Each refresh publishes a fresh plan for the default window.
	if cfg.RefreshInterval > 0 {
		planHours := time.Duration(cfg.PlanHours * float64(time.Hour))
		sched := scheduler.New(rt.Cache, cfg.RefreshInterval,
			scheduler.WithLogger(log.Named("scheduler")),
			scheduler.WithAfterRefresh(func(ctx context.Context) error {
				now := time.Now().UTC()
				_, err := rt.Session.Plan(ctx, model.Window{Start: now, End: now.Add(planHours)})
				return err
			}),
		)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	apiServer := api.NewServer(rt.Session, rt.Cache, rt.Session,
		api.WithMaxLimit(cfg.MaxScoresLimit),
		api.WithPlanHours(cfg.PlanHours),
		api.WithExportFormat(export.Format(cfg.Export.Format)),
		api.WithLogger(log.Named("api")),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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

// updateSystemMetrics updates system-level metrics.
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
