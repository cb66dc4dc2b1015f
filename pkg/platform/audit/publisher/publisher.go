// Package publisher writes assessment audit entries with fail-closed
// semantics. Emit blocks until the store accepts the entry; if it cannot, the
// caller's operation must fail with it.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "sglgb/pkg/platform/audit"
	"sglgb/pkg/requestcontext"
)

// Publisher emits audit entries synchronously.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates and persists event. The id, category, timestamp and
// request id are filled in when the caller left them empty.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.AssessmentID == "" {
		return errors.New("audit event requires AssessmentID")
	}
	if event.Action == "" {
		return errors.New("audit event requires Action")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = audit.CategoryFor(event.Action)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.incPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"assessment_id", event.AssessmentID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	p.metrics.observePersist(time.Since(start).Seconds())
	p.metrics.incEmitted(string(event.Category))
	return nil
}

// List returns the audit trail of one assessment in append order.
func (p *Publisher) List(ctx context.Context, assessmentID string) ([]audit.Event, error) {
	return p.store.ListByAssessment(ctx, assessmentID)
}
