package service

import (
	"context"
	"errors"
	"time"

	"sglgb/internal/assessment/models"
	"sglgb/internal/indicator"
)

// DraftIDs lists every assessment still in DRAFT, across years.
func (s *Service) DraftIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListIDsByStatus(ctx, models.StatusDraft, 0)
	if err != nil {
		return nil, s.translate(err, "failed to list draft assessments")
	}
	return ids, nil
}

// SendReminder sends the deadline reminder due at the request clock, if
// any. The check runs against freshly loaded state under the lock, so a
// repeated or concurrent scan returns ErrSchedulerNoOp instead of sending
// twice.
func (s *Service) SendReminder(ctx context.Context, id string) (days int, err error) {
	ctx, span := s.startSpan(ctx, "assessment.SendReminder", id)
	defer func() { endSpan(span, ignoreNoOp(err)) }()

	_, ch, err := s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, _ *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		deadline, ok := s.policies.Policy().Deadline(a.Year)
		if !ok {
			return a, change{}, nil
		}
		due, ok := a.DueReminder(deadline, now)
		if !ok {
			return a, change{}, nil
		}
		days = due
		ev := a.MarkReminder(due, now)
		events := []models.Event{ev}
		return a, change{
			changed: true,
			events:  events,
			audits:  transitionAudits(a.Status, models.SystemActor, events),
		}, nil
	})
	if err != nil {
		return 0, err
	}
	if !ch.changed {
		s.logger.DebugContext(ctx, "no reminder due", "assessment_id", id)
		return 0, ErrSchedulerNoOp
	}
	return days, nil
}

// AutoSubmit forces a DRAFT assessment in once its deadline has passed. It
// never fires twice for the same assessment.
func (s *Service) AutoSubmit(ctx context.Context, id string) (err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "assessment.AutoSubmit", id)
	var changed bool
	defer func() {
		if !errors.Is(err, ErrSchedulerNoOp) {
			s.observeTransition(models.ActionAutoSubmit, changed, err, start)
		}
		endSpan(span, ignoreNoOp(err))
	}()

	_, ch, err := s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, tree *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		policy := s.policies.Policy()
		deadline, ok := policy.Deadline(a.Year)
		if !ok || !a.AutoSubmitDue(deadline, now) {
			return a, change{}, nil
		}
		out, err := models.ApplyTransition(a, models.SystemActor, models.ActionAutoSubmit, models.Payload{}, models.Env{
			Now:    now,
			Tree:   tree,
			Policy: policy,
			NewID:  s.newID,
		})
		if err != nil {
			return nil, change{}, err
		}
		return out.Assessment, change{
			changed: out.Changed,
			events:  out.Events,
			audits:  transitionAudits(a.Status, models.SystemActor, out.Events),
		}, nil
	})
	if err != nil {
		return err
	}
	if !ch.changed {
		s.logger.DebugContext(ctx, "auto-submit not due", "assessment_id", id)
		return ErrSchedulerNoOp
	}
	changed = true
	return nil
}

func ignoreNoOp(err error) error {
	if errors.Is(err, ErrSchedulerNoOp) {
		return nil
	}
	return err
}
