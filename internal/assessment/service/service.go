package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sglgb/internal/assessment/metrics"
	"sglgb/internal/assessment/models"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	"sglgb/internal/platform/lock"
	dErrors "sglgb/pkg/domain-errors"
	"sglgb/pkg/platform/audit"
	"sglgb/pkg/platform/sentinel"
	"sglgb/pkg/platform/tx"
	"sglgb/pkg/requestcontext"
)

// maxAttempts bounds reload-and-reapply after a version conflict.
const maxAttempts = 3

// ErrSchedulerNoOp reports that a scheduler pass found nothing to do against
// the freshly loaded state. It is an expected outcome, not a failure.
var ErrSchedulerNoOp = errors.New("scheduler: nothing to do")

// Store persists assessments with optimistic concurrency. Update succeeds
// only when the stored version equals a.Version, and bumps it.
type Store interface {
	Create(ctx context.Context, a *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	Update(ctx context.Context, a *models.Assessment) error
	ListIDsByStatus(ctx context.Context, status models.Status, year int) ([]string, error)
}

// Catalog resolves the indicator tree of an assessment year.
type Catalog interface {
	Tree(ctx context.Context, year int) (*indicator.Tree, error)
}

// PolicySource returns the thresholds currently in force.
type PolicySource interface {
	Policy() compliance.Policy
}

// Dispatcher hands lifecycle events to the notification boundary.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []models.Event) error
}

// TxRunner runs fn in a transaction carried by the callback ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records audit entries fail-closed and reads them back.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, assessmentID string) ([]audit.Event, error)
}

// Service orchestrates the assessment lifecycle: it loads the aggregate
// under the per-assessment lock, applies the pure model rules and persists
// the result with its audit trail before dispatching events.
type Service struct {
	store          Store
	catalog        Catalog
	policies       PolicySource
	locker         lock.Locker
	tx             TxRunner
	dispatcher     Dispatcher
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newID          func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithLocker replaces the in-process sharded lock, e.g. with the Redis lock
// when several replicas share a database.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func WithTx(r TxRunner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

// WithIDGenerator overrides uuid generation for assessment, evidence and
// calibration request ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs a Service.
func New(store Store, catalog Catalog, policies PolicySource, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("assessment store is required")
	}
	if catalog == nil {
		return nil, errors.New("indicator catalog is required")
	}
	if policies == nil {
		return nil, errors.New("policy source is required")
	}
	s := &Service{
		store:    store,
		catalog:  catalog,
		policies: policies,
		locker:   lock.NewSharded(),
		tx:       tx.NoopRunner{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("sglgb/internal/assessment/service"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// change is what a mutation produced besides the new aggregate.
type change struct {
	changed bool
	events  []models.Event
	audits  []audit.Event
}

type mutation func(ctx context.Context, a *models.Assessment, tree *indicator.Tree, now time.Time) (*models.Assessment, change, error)

// mutate runs fn against freshly loaded state under the assessment lock.
// The save and its audit entries share one transaction; a version conflict
// reloads and re-applies fn, so preconditions are always checked against
// what is persisted. Events are dispatched only after commit.
func (s *Service) mutate(ctx context.Context, id string, fn mutation) (*models.Assessment, change, error) {
	unlock, err := s.locker.Lock(ctx, "assessment:"+id)
	if err != nil {
		return nil, change{}, s.translate(err, "failed to lock assessment")
	}
	defer unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var (
			result *models.Assessment
			ch     change
		)
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			current, err := s.store.FindByID(txCtx, id)
			if err != nil {
				return err
			}
			tree, err := s.catalog.Tree(txCtx, current.Year)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("no indicator catalog for %d", current.Year))
			}
			next, c, err := fn(txCtx, current.Clone(), tree, requestcontext.Now(txCtx))
			if err != nil {
				return err
			}
			if !c.changed {
				result, ch = current, c
				return nil
			}
			if err := s.store.Update(txCtx, next); err != nil {
				return err
			}
			for _, entry := range c.audits {
				if err := s.emitAudit(txCtx, next, entry); err != nil {
					return err
				}
			}
			result, ch = next, c
			return nil
		})
		if errors.Is(err, sentinel.ErrConflict) {
			s.incrementConflictRetry()
			s.logger.DebugContext(ctx, "assessment version conflict, reloading",
				"assessment_id", id,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, change{}, s.translate(err, "failed to update assessment")
		}
		s.dispatch(ctx, ch.events)
		return result, ch, nil
	}
	return nil, change{}, dErrors.Newf(dErrors.CodeConflict,
		"assessment %s changed concurrently %d times; retry", id, maxAttempts)
}

func (s *Service) load(ctx context.Context, id string) (*models.Assessment, *indicator.Tree, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, nil, s.translate(err, "failed to load assessment")
	}
	tree, err := s.catalog.Tree(ctx, a.Year)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("no indicator catalog for %d", a.Year))
	}
	return a, tree, nil
}

// translate keeps coded errors and maps store sentinels onto domain codes.
func (s *Service) translate(err error, msg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assessment not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "an assessment already exists for this unit and year")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "assessment changed concurrently")
	case errors.Is(err, sentinel.ErrLockHeld), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// dispatch is best-effort: a failed delivery never undoes a committed change.
func (s *Service) dispatch(ctx context.Context, events []models.Event) {
	if s.dispatcher == nil || len(events) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, events); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementDispatchFailure()
		}
		s.logger.WarnContext(ctx, "failed to dispatch lifecycle events",
			"assessment_id", events[0].AssessmentID,
			"event", string(events[0].Type),
			"count", len(events),
			"error", err,
		)
	}
}

// emitAudit writes one entry inside the save transaction and mirrors it as
// an audit log line.
func (s *Service) emitAudit(ctx context.Context, a *models.Assessment, entry audit.Event) error {
	entry.AssessmentID = a.ID
	entry.UnitID = a.UnitID
	entry.Year = a.Year
	if entry.ToStatus == "" {
		entry.ToStatus = string(a.Status)
	}
	s.logAudit(ctx, entry.Action,
		"assessment_id", a.ID,
		"actor_id", entry.ActorID,
		"from_status", entry.FromStatus,
		"to_status", entry.ToStatus,
		"area", entry.Area,
		"subject", entry.Subject,
	)
	if s.auditPublisher == nil {
		return nil
	}
	if err := s.auditPublisher.Emit(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) startSpan(ctx context.Context, name, id string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("assessment.id", id))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) incrementConflictRetry() {
	if s.metrics != nil {
		s.metrics.IncrementConflictRetry()
	}
}

func (s *Service) observeMutation(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(dErrors.GetCode(err))
	}
	s.metrics.IncrementMutation(operation, result)
}

// transitionAudits turns lifecycle events into audit entries.
func transitionAudits(from models.Status, actor models.Actor, events []models.Event) []audit.Event {
	out := make([]audit.Event, 0, len(events))
	for _, ev := range events {
		entry := audit.Event{
			Action:     string(ev.Type),
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			FromStatus: string(from),
			ToStatus:   string(ev.Status),
			Area:       string(ev.Area),
		}
		if ev.DaysLeft > 0 {
			entry.Detail = fmt.Sprintf("%d days left", ev.DaysLeft)
		}
		out = append(out, entry)
	}
	return out
}
