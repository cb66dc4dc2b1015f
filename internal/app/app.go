// Package app builds the assessment service and its infrastructure from the
// process configuration. The server and the operator CLI share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"sglgb/internal/assessment/metrics"
	"sglgb/internal/assessment/service"
	"sglgb/internal/assessment/store"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	"sglgb/internal/notification"
	"sglgb/internal/platform/config"
	"sglgb/internal/platform/lock"
	"sglgb/internal/platform/postgres"
	"sglgb/internal/platform/redis"
	audit "sglgb/pkg/platform/audit"
	"sglgb/pkg/platform/audit/publisher"
	auditmemory "sglgb/pkg/platform/audit/store/memory"
	auditpostgres "sglgb/pkg/platform/audit/store/postgres"
	"sglgb/pkg/platform/circuit"
	"sglgb/pkg/platform/tx"
)

// App is a fully wired assessment service plus the handles needed to probe
// and release its infrastructure.
type App struct {
	Service  *service.Service
	Catalog  *indicator.FileCatalog
	Policies *compliance.PolicySource
	Checks   map[string]func(ctx context.Context) error

	closers []func() error
}

// Options toggle the process-wide metrics, which may be registered once.
type Options struct {
	Metrics bool
}

// Build connects every configured backend. Unset backends fall back to their
// in-process variants: memory stores, a sharded lock and log notifications.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Checks: map[string]func(ctx context.Context) error{}}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	policies, err := compliance.NewFileSource(cfg.Catalog.PolicyFile, compliance.WithSourceLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	a.Policies = policies
	a.Catalog = indicator.NewFileCatalog(cfg.Catalog.Dir)

	svcOpts := []service.Option{service.WithLogger(logger)}
	var auditOpts []publisher.Option
	auditOpts = append(auditOpts, publisher.WithLogger(logger))
	if opts.Metrics {
		svcOpts = append(svcOpts, service.WithMetrics(metrics.New()))
		auditOpts = append(auditOpts, publisher.WithMetrics(publisher.NewMetrics()))
	}

	var (
		assessments service.Store
		auditStore  audit.Store
	)
	if cfg.Postgres.DSN != "" {
		db, err := a.openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		assessments = store.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		svcOpts = append(svcOpts, service.WithTx(tx.NewRunner(db, cfg.Server.TxTimeout)))
	} else {
		logger.WarnContext(ctx, "no database configured; assessments live in memory")
		assessments = store.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
	}
	svcOpts = append(svcOpts, service.WithAuditPublisher(publisher.NewPublisher(auditStore, auditOpts...)))

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		a.Checks["redis"] = rc.Health
		svcOpts = append(svcOpts, service.WithLocker(lock.NewRedis(rc.Client,
			lock.WithTTL(cfg.Redis.LockTTL),
			lock.WithLogger(logger),
		)))
	}

	dispatcher, err := a.dispatcher(ctx, cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}
	svcOpts = append(svcOpts, service.WithDispatcher(dispatcher))

	svc, err := service.New(assessments, a.Catalog, policies, svcOpts...)
	if err != nil {
		return nil, err
	}
	a.Service = svc
	ok = true
	return a, nil
}

func (a *App) openPostgres(ctx context.Context, cfg config.Postgres) (*sql.DB, error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.Checks["postgres"] = db.PingContext
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db, nil
}

func (a *App) dispatcher(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (notification.Dispatcher, error) {
	logDispatcher := notification.NewLogDispatcher(logger)
	if len(cfg.Brokers) == 0 {
		return logDispatcher, nil
	}
	kafka, err := notification.NewKafka(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		kafka.Close()
		return nil
	})
	a.Checks["kafka"] = kafka.Ping
	if cfg.EnsureTopic {
		if err := kafka.EnsureTopic(ctx); err != nil {
			return nil, err
		}
	}
	breaker := circuit.New("kafka-notifications")
	return notification.NewResilient(kafka, logDispatcher, breaker, logger), nil
}

// Close releases every backend in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
