package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"sglgb/internal/app"
	"sglgb/internal/assessment/handler"
	"sglgb/internal/platform/config"
	"sglgb/internal/platform/httpserver"
	"sglgb/internal/platform/logger"
	"sglgb/internal/platform/metrics"
	"sglgb/internal/scheduler"
	httptransport "sglgb/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sglgb: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service, serves HTTP and runs the deadline scheduler until
// SIGINT or SIGTERM, then drains in-flight requests.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log, app.Options{Metrics: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("closing backends", "error", err)
		}
	}()

	checks := make(map[string]httptransport.HealthCheck, len(a.Checks))
	for name, check := range a.Checks {
		checks[name] = check
	}
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        metrics.New(),
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         checks,
	}, handler.New(a.Service, log))
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting sglgb", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.Policies.Watch(gctx, cfg.Catalog.ReloadPeriod)
		return nil
	})
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(a.Service,
			scheduler.WithLogger(log),
			scheduler.WithMetrics(scheduler.NewMetrics()),
			scheduler.WithConcurrency(cfg.Scheduler.Concurrency),
		)
		g.Go(func() error {
			return sched.Run(gctx, cfg.Scheduler.ReminderInterval, cfg.Scheduler.AutoSubmitEvery)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
