// Package scheduler runs the deadline scans: reminders ahead of the
// submission deadline and auto-submission after it. Every write is decided
// by the assessment service against freshly loaded state, so scans are safe
// to run more than once, late, or from several replicas.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"sglgb/internal/assessment/service"
	"sglgb/pkg/requestcontext"
)

const (
	ScanReminders  = "reminders"
	ScanAutoSubmit = "auto_submit"
)

// ErrNoOp is returned by per-assessment steps that found nothing to do.
var ErrNoOp = service.ErrSchedulerNoOp

// Service is the part of the assessment service the scans drive.
type Service interface {
	DraftIDs(ctx context.Context) ([]string, error)
	SendReminder(ctx context.Context, id string) (int, error)
	AutoSubmit(ctx context.Context, id string) error
}

// ScanReport summarizes one scan. Failed assessments are retried on the
// next scan.
type ScanReport struct {
	Scan    string    `json:"scan"`
	At      time.Time `json:"at"`
	Scanned int       `json:"scanned"`
	Applied int       `json:"applied"`
	NoOps   int       `json:"noops"`
	Failed  int       `json:"failed"`
}

func (r ScanReport) String() string {
	return fmt.Sprintf("%s at %s: scanned=%d applied=%d noop=%d failed=%d",
		r.Scan, r.At.Format(time.RFC3339), r.Scanned, r.Applied, r.NoOps, r.Failed)
}

// Scheduler runs scans over every DRAFT assessment.
type Scheduler struct {
	service     Service
	logger      *slog.Logger
	metrics     *Metrics
	concurrency int
	clock       func() time.Time
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithConcurrency bounds how many assessments one scan touches at once.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func New(svc Service, opts ...Option) *Scheduler {
	s := &Scheduler{
		service:     svc,
		logger:      slog.Default(),
		concurrency: 4,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reminders sends every deadline reminder due at now.
func (s *Scheduler) Reminders(ctx context.Context, now time.Time) (ScanReport, error) {
	return s.scan(ctx, ScanReminders, now, func(ctx context.Context, id string) error {
		days, err := s.service.SendReminder(ctx, id)
		if err == nil {
			s.logger.InfoContext(ctx, "deadline reminder sent", "assessment_id", id, "days_left", days)
		}
		return err
	})
}

// AutoSubmit forces in every DRAFT assessment whose deadline passed before
// now.
func (s *Scheduler) AutoSubmit(ctx context.Context, now time.Time) (ScanReport, error) {
	return s.scan(ctx, ScanAutoSubmit, now, func(ctx context.Context, id string) error {
		err := s.service.AutoSubmit(ctx, id)
		if err == nil {
			s.logger.InfoContext(ctx, "assessment auto-submitted", "assessment_id", id)
		}
		return err
	})
}

// scan applies step to each DRAFT assessment with bounded parallelism. One
// assessment failing does not stop the others.
func (s *Scheduler) scan(ctx context.Context, name string, now time.Time, step func(context.Context, string) error) (ScanReport, error) {
	start := time.Now()
	ctx, span := otel.Tracer("sglgb/internal/scheduler").Start(ctx, "scheduler."+name)
	defer span.End()

	report := ScanReport{Scan: name, At: now}
	ids, err := s.service.DraftIDs(ctx)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("list draft assessments: %w", err)
	}
	report.Scanned = len(ids)

	var applied, noops, failed atomic.Int64
	stepCtx := requestcontext.WithTime(ctx, now)
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := step(stepCtx, id)
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, ErrNoOp):
				noops.Add(1)
				s.logger.DebugContext(ctx, "scheduler no-op", "scan", name, "assessment_id", id)
			default:
				failed.Add(1)
				s.logger.ErrorContext(ctx, "scheduler step failed",
					"scan", name,
					"assessment_id", id,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Applied = int(applied.Load())
	report.NoOps = int(noops.Load())
	report.Failed = int(failed.Load())
	span.SetAttributes(
		attribute.Int("scanned", report.Scanned),
		attribute.Int("applied", report.Applied),
		attribute.Int("failed", report.Failed),
	)
	s.metrics.observeScan(name, report, start)
	s.logger.InfoContext(ctx, "scan finished",
		"scan", name,
		"scanned", report.Scanned,
		"applied", report.Applied,
		"noop", report.NoOps,
		"failed", report.Failed,
	)
	return report, ctx.Err()
}

// Run drives both scans on their own tickers until ctx is cancelled. Each
// loop scans once immediately so a restart does not wait a full interval.
func (s *Scheduler) Run(ctx context.Context, reminderEvery, autoSubmitEvery time.Duration) error {
	if reminderEvery <= 0 || autoSubmitEvery <= 0 {
		return errors.New("scan intervals must be positive")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop(ctx, reminderEvery, s.Reminders) })
	g.Go(func() error { return s.loop(ctx, autoSubmitEvery, s.AutoSubmit) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, scan func(context.Context, time.Time) (ScanReport, error)) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := scan(ctx, s.clock()); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
