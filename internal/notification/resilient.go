package notification

import (
	"context"
	"log/slog"

	"sglgb/internal/assessment/models"
	"sglgb/pkg/platform/circuit"
)

// Resilient sends to a primary channel and diverts to a fallback when the
// primary fails. While the breaker is open every batch is written to the
// fallback first, then still offered to the primary so the breaker can
// close again.
type Resilient struct {
	primary  Dispatcher
	fallback Dispatcher
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewResilient(primary, fallback Dispatcher, breaker *circuit.Breaker, logger *slog.Logger) *Resilient {
	return &Resilient{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (r *Resilient) Dispatch(ctx context.Context, events []models.Event) error {
	if r.breaker.IsOpen() {
		if err := r.fallback.Dispatch(ctx, events); err != nil {
			return err
		}
		if err := r.primary.Dispatch(ctx, events); err != nil {
			r.breaker.RecordFailure()
			return nil
		}
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "notification breaker closed", "breaker", r.breaker.Name())
		}
		return nil
	}

	err := r.primary.Dispatch(ctx, events)
	if err == nil {
		r.breaker.RecordSuccess()
		return nil
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "notification breaker opened",
			"breaker", r.breaker.Name(),
			"error", err,
		)
	}
	if fbErr := r.fallback.Dispatch(ctx, events); fbErr != nil {
		return fbErr
	}
	return err
}

// Fanout delivers every batch to each dispatcher and returns the first error
// after all of them ran.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, events []models.Event) error {
	var first error
	for _, d := range f {
		if err := d.Dispatch(ctx, events); err != nil && first == nil {
			first = err
		}
	}
	return first
}
