package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"sglgb/internal/assessment/models"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
	"sglgb/pkg/platform/audit"
	"sglgb/pkg/requestcontext"
)

// Create opens the DRAFT assessment of a unit for a year. There is at most
// one assessment per (unit, year).
func (s *Service) Create(ctx context.Context, unitID string, year int) (a *models.Assessment, err error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Create")
	defer func() { endSpan(span, err) }()

	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "unit_id is required")
	}
	tree, err := s.catalog.Tree(ctx, year)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("no indicator catalog for %d", year))
	}

	a = models.NewAssessment(s.newID(), unitID, tree, requestcontext.Now(ctx))
	actor := requestcontext.Actor(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, a); err != nil {
			return err
		}
		return s.emitAudit(txCtx, a, audit.Event{
			Action:    audit.ActionAssessmentCreated,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
		})
	})
	if err != nil {
		return nil, s.translate(err, "failed to create assessment")
	}
	return a, nil
}

// Get returns the stored assessment.
func (s *Service) Get(ctx context.Context, id string) (*models.Assessment, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "failed to load assessment")
	}
	return a, nil
}

// RecordEvidence uploads one checklist record for an indicator. It replaces
// the current record for the same item.
func (s *Service) RecordEvidence(ctx context.Context, id string, actor models.Actor, code indicator.Code, in models.EvidenceInput) (ev models.Evidence, err error) {
	ctx, span := s.startSpan(ctx, "assessment.RecordEvidence", id, attribute.String("indicator", string(code)))
	defer func() {
		s.observeMutation("record_evidence", err)
		endSpan(span, err)
	}()

	_, _, err = s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, tree *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		from := a.Status
		recorded, err := a.RecordEvidence(actor, tree, code, in, s.newID(), now)
		if err != nil {
			return nil, change{}, err
		}
		ev = recorded
		return a, change{changed: true, audits: []audit.Event{{
			Action:     audit.ActionEvidenceRecorded,
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			FromStatus: string(from),
			Area:       string(code.Area()),
			Subject:    recorded.ID,
			Detail:     fmt.Sprintf("indicator %s item %s", code, recorded.ItemID),
		}}}, nil
	})
	if err != nil {
		return models.Evidence{}, err
	}
	return ev, nil
}

// RecordValidation stores a reviewer verdict on an indicator.
func (s *Service) RecordValidation(ctx context.Context, id string, actor models.Actor, code indicator.Code, status compliance.ValidationStatus, remarks string) (err error) {
	ctx, span := s.startSpan(ctx, "assessment.RecordValidation", id, attribute.String("indicator", string(code)))
	defer func() {
		s.observeMutation("record_validation", err)
		endSpan(span, err)
	}()

	_, _, err = s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, tree *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		from := a.Status
		if err := a.RecordValidation(actor, tree, code, status, remarks, now); err != nil {
			return nil, change{}, err
		}
		return a, change{changed: true, audits: []audit.Event{{
			Action:     audit.ActionValidationRecorded,
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			FromStatus: string(from),
			Area:       string(code.Area()),
			Subject:    string(code),
			Detail:     string(status),
		}}}, nil
	})
	return err
}

// FlagEvidence marks one evidence record for rework or calibration.
func (s *Service) FlagEvidence(ctx context.Context, id string, actor models.Actor, evidenceID string, kind models.FlagKind) (err error) {
	ctx, span := s.startSpan(ctx, "assessment.FlagEvidence", id, attribute.String("evidence.id", evidenceID))
	defer func() {
		s.observeMutation("flag_evidence", err)
		endSpan(span, err)
	}()

	_, _, err = s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, _ *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		from := a.Status
		if err := a.FlagEvidence(actor, evidenceID, kind, now); err != nil {
			return nil, change{}, err
		}
		return a, change{changed: true, audits: []audit.Event{{
			Action:     audit.ActionEvidenceFlagged,
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			FromStatus: string(from),
			Subject:    evidenceID,
			Detail:     string(kind),
		}}}, nil
	})
	return err
}

// FlagIndicatorForCalibration marks a whole indicator for the next
// calibration request, independently of its evidence flags.
func (s *Service) FlagIndicatorForCalibration(ctx context.Context, id string, actor models.Actor, code indicator.Code) (err error) {
	ctx, span := s.startSpan(ctx, "assessment.FlagIndicatorForCalibration", id, attribute.String("indicator", string(code)))
	defer func() {
		s.observeMutation("flag_indicator", err)
		endSpan(span, err)
	}()

	_, _, err = s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, tree *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		from := a.Status
		if err := a.FlagIndicatorForCalibration(actor, tree, code, now); err != nil {
			return nil, change{}, err
		}
		return a, change{changed: true, audits: []audit.Event{{
			Action:     audit.ActionIndicatorCalibrated,
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			FromStatus: string(from),
			Area:       string(code.Area()),
			Subject:    string(code),
		}}}, nil
	})
	return err
}

// Transition applies one lifecycle action. Accepted duplicates return an
// unchanged outcome and emit nothing.
func (s *Service) Transition(ctx context.Context, id string, actor models.Actor, action models.Action, payload models.Payload) (out models.Outcome, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "assessment.Transition", id,
		attribute.String("action", string(action)),
		attribute.String("actor.role", string(actor.Role)),
	)
	defer func() {
		s.observeTransition(action, out.Changed, err, start)
		endSpan(span, err)
	}()

	a, ch, err := s.mutate(ctx, id, func(_ context.Context, a *models.Assessment, tree *indicator.Tree, now time.Time) (*models.Assessment, change, error) {
		res, err := models.ApplyTransition(a, actor, action, payload, models.Env{
			Now:    now,
			Tree:   tree,
			Policy: s.policies.Policy(),
			NewID:  s.newID,
		})
		if err != nil {
			return nil, change{}, err
		}
		if !res.Changed {
			return a, change{}, nil
		}
		return res.Assessment, change{
			changed: true,
			events:  res.Events,
			audits:  transitionAudits(a.Status, actor, res.Events),
		}, nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "transition rejected",
			"assessment_id", id,
			"action", string(action),
			"actor_role", string(actor.Role),
			"error", err,
		)
		return models.Outcome{}, err
	}
	return models.Outcome{Assessment: a, Events: ch.events, Changed: ch.changed}, nil
}

// Evaluate runs the compliance evaluator on the current responses.
func (s *Service) Evaluate(ctx context.Context, id string) (sum compliance.Summary, err error) {
	ctx, span := s.startSpan(ctx, "assessment.Evaluate", id)
	defer func() { endSpan(span, err) }()

	a, tree, err := s.load(ctx, id)
	if err != nil {
		return compliance.Summary{}, err
	}
	sum, err = a.Evaluate(tree, s.policies.Policy())
	if err != nil {
		return compliance.Summary{}, s.translate(err, "failed to evaluate assessment")
	}
	if s.metrics != nil {
		s.metrics.IncrementEvaluation(sum.Passed)
	}
	span.SetAttributes(attribute.Bool("passed", sum.Passed))
	return sum, nil
}

// AuditTrail lists an assessment's audit entries in write order.
func (s *Service) AuditTrail(ctx context.Context, id string) ([]audit.Event, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.auditPublisher == nil {
		return []audit.Event{}, nil
	}
	events, err := s.auditPublisher.List(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit trail")
	}
	return events, nil
}

func (s *Service) observeTransition(action models.Action, changed bool, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	result := "applied"
	switch {
	case err != nil && isInfraError(err):
		result = "error"
	case err != nil:
		result = "rejected"
	case !changed:
		result = "noop"
	}
	s.metrics.ObserveTransition(string(action), result, start)
}

func isInfraError(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout)
}
