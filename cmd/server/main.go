package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hrengine/internal/db"
	"hrengine/internal/domain/audit"
	"hrengine/internal/domain/compensation"
	"hrengine/internal/domain/directory"
	"hrengine/internal/domain/leave"
	"hrengine/internal/domain/performance"
	"hrengine/internal/domain/reports"
	"hrengine/internal/facade"
	"hrengine/internal/platform/config"
	"hrengine/internal/platform/logger"
	"hrengine/internal/platform/metrics"
	transport "hrengine/internal/transport/http"
	"hrengine/migrations"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", logger.Err(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.Environment)
	slog.SetDefault(log)
	db.SetLockTimeout(cfg.LockTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
			return err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			return err
		}
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	trail := audit.New(pool, log, m)
	directorySvc := directory.NewService(pool, trail, log, m)
	leaveSvc := leave.NewService(pool, trail, log, m)
	compensationSvc := compensation.NewService(pool, trail, log, m)
	performanceSvc := performance.NewService(pool, trail, log, m)
	reportsSvc := reports.NewService(pool, log, m)

	handler := &transport.Handler{
		Config:       cfg,
		Log:          log,
		Directory:    directorySvc,
		Leave:        leaveSvc,
		Compensation: compensationSvc,
		Performance:  performanceSvc,
		Reports:      reportsSvc,
		Audit:        trail,
		Facade:       facade.New(directorySvc, leaveSvc, compensationSvc),
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           transport.NewRouter(handler, pool),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
