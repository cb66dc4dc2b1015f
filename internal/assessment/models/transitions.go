package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"sglgb/internal/calibration"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
)

// Action is a requested lifecycle move.
type Action string

const (
	ActionSubmit               Action = "submit"
	ActionAutoSubmit           Action = "auto_submit"
	ActionStartReview          Action = "start_review"
	ActionApproveArea          Action = "approve_area"
	ActionRequestRework        Action = "request_rework"
	ActionResubmit             Action = "resubmit"
	ActionStartValidation      Action = "start_validation"
	ActionRequestCalibration   Action = "request_calibration"
	ActionRequestRecalibration Action = "request_recalibration"
	ActionApprove              Action = "approve"
)

// AllActions lists every action in the table.
var AllActions = []Action{
	ActionSubmit, ActionAutoSubmit, ActionStartReview, ActionApproveArea,
	ActionRequestRework, ActionResubmit, ActionStartValidation,
	ActionRequestCalibration, ActionRequestRecalibration, ActionApprove,
}

// ParseAction accepts the wire spelling of an action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	return a, slices.Contains(AllActions, a)
}

type edge struct {
	from Status
	role Role
}

// transitions is the legal table: for each action, the states it may be
// issued from and the role each requires.
var transitions = map[Action][]edge{
	ActionSubmit:      {{StatusDraft, RoleSubmitter}},
	ActionAutoSubmit:  {{StatusDraft, RoleSystem}},
	ActionStartReview: {{StatusSubmitted, RoleAssessor}},
	ActionApproveArea: {
		{StatusUnderAssessorReview, RoleAssessor},
		{StatusUnderValidation, RoleValidator},
		{StatusCalibrationRequested, RoleValidator},
	},
	ActionRequestRework: {{StatusUnderAssessorReview, RoleAssessor}},
	ActionResubmit: {
		{StatusReworkRequested, RoleSubmitter},
		{StatusCalibrationRequested, RoleSubmitter},
		{StatusMLGOORecalibration, RoleSubmitter},
	},
	ActionStartValidation: {{StatusAwaitingFinalValidation, RoleValidator}},
	ActionRequestCalibration: {
		{StatusUnderValidation, RoleValidator},
		{StatusCalibrationRequested, RoleValidator},
	},
	ActionRequestRecalibration: {
		{StatusAwaitingMLGOOApproval, RoleMLGOO},
		{StatusMLGOORecalibration, RoleMLGOO},
	},
	ActionApprove: {{StatusAwaitingMLGOOApproval, RoleMLGOO}},
}

// IsLegal reports whether action may be issued from status at all.
func IsLegal(status Status, action Action) bool {
	_, ok := requiredRole(status, action)
	return ok
}

func requiredRole(status Status, action Action) (Role, bool) {
	for _, e := range transitions[action] {
		if e.from == status {
			return e.role, true
		}
	}
	return "", false
}

// legalFrom renders the (state, role) pairs an action is legal for.
func legalFrom(action Action) string {
	pairs := make([]string, 0, len(transitions[action]))
	for _, e := range transitions[action] {
		pairs = append(pairs, fmt.Sprintf("%s (%s)", e.from, e.role))
	}
	return strings.Join(pairs, ", ")
}

// TransitionError describes an illegal request. RequiredRole is empty when
// the action is not legal from State for any role. It is always wrapped in a
// dErrors.CodeInvalidTransition error.
type TransitionError struct {
	State        Status
	Action       Action
	RequiredRole Role
	Reason       string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s from %s", e.Action, e.State)
	if e.RequiredRole != "" {
		msg += fmt.Sprintf(" (requires %s)", e.RequiredRole)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func invalidTransition(state Status, action Action, role Role, reason string) error {
	te := &TransitionError{State: state, Action: action, RequiredRole: role, Reason: reason}
	return dErrors.Wrap(te, dErrors.CodeInvalidTransition, "invalid transition")
}

// Payload carries the action-specific arguments.
type Payload struct {
	// Area is the governance area for approve_area, request_rework and
	// request_calibration.
	Area indicator.Code
	// Indicators flags specific indicators for rework or calibration.
	Indicators []indicator.Code
	// EvidenceIDs flags evidence for rework, or scopes an oversight
	// recalibration.
	EvidenceIDs []string
	// Areas limits a calibration resubmission; empty means every open area.
	Areas   []indicator.Code
	Remarks string
}

// Env is everything a transition reads besides the aggregate.
type Env struct {
	Now    time.Time
	Tree   *indicator.Tree
	Policy compliance.Policy
	// NewID mints request ids; defaults to random UUIDs.
	NewID func() string
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// Outcome is the result of a transition. Changed is false for accepted
// duplicates, which leave the aggregate and clock untouched.
type Outcome struct {
	Assessment *Assessment
	Events     []Event
	Changed    bool
}

// ApplyTransition validates action against the table and the actor, applies
// it to a copy of a and returns the copy. On error a is unchanged and no
// events are produced.
func ApplyTransition(a *Assessment, actor Actor, action Action, payload Payload, env Env) (Outcome, error) {
	if !slices.Contains(AllActions, action) {
		return Outcome{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", action)
	}
	role, ok := requiredRole(a.Status, action)
	if !ok {
		return Outcome{}, invalidTransition(a.Status, action, "", "allowed from "+legalFrom(action))
	}
	if actor.Role != role {
		return Outcome{}, invalidTransition(a.Status, action, role, fmt.Sprintf("actor is %s", actor.Role))
	}
	if env.Tree == nil {
		return Outcome{}, dErrors.New(dErrors.CodeInternal, "transition needs the indicator tree")
	}

	next := a.Clone()
	t := &transition{a: next, actor: actor, payload: payload, env: env, action: action}
	changed, err := t.apply()
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{Assessment: a.Clone()}, nil
	}

	next.Status = DeriveStatus(next)
	next.UpdatedAt = env.Now
	for i := range t.events {
		t.events[i].Status = next.Status
	}
	return Outcome{Assessment: next, Events: t.events, Changed: true}, nil
}

type transition struct {
	a       *Assessment
	actor   Actor
	action  Action
	payload Payload
	env     Env
	events  []Event
}

func (t *transition) emit(et EventType, fn ...func(*Event)) {
	ev := newEvent(et, t.a, t.actor, t.env.Now)
	for _, f := range fn {
		f(&ev)
	}
	t.events = append(t.events, ev)
}

func (t *transition) fail(reason string) error {
	role, _ := requiredRole(t.a.Status, t.action)
	return invalidTransition(t.a.Status, t.action, role, reason)
}

func (t *transition) apply() (bool, error) {
	switch t.action {
	case ActionSubmit:
		return t.submit()
	case ActionAutoSubmit:
		return t.autoSubmit()
	case ActionStartReview:
		t.a.Phase = PhaseAssessment
		t.a.ReviewStartedAt = stamp(t.env.Now)
		t.emit(EventReviewStarted)
		return true, nil
	case ActionApproveArea:
		if t.a.Phase == PhaseAssessment {
			return t.assessArea()
		}
		return t.validateArea()
	case ActionRequestRework:
		return t.requestRework()
	case ActionResubmit:
		return t.resubmit()
	case ActionStartValidation:
		t.a.Phase = PhaseValidation
		t.a.ValidationStartedAt = stamp(t.env.Now)
		t.emit(EventValidationStarted)
		return true, nil
	case ActionRequestCalibration:
		return t.requestCalibration()
	case ActionRequestRecalibration:
		return t.requestRecalibration()
	case ActionApprove:
		return t.approve()
	}
	return false, dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", t.action)
}

func (t *transition) submit() (bool, error) {
	if missing := compliance.MissingEvidence(t.env.Tree, t.a.ResponseList()); len(missing) > 0 {
		codes := make([]string, len(missing))
		for i, c := range missing {
			codes[i] = string(c)
		}
		return false, dErrors.Newf(dErrors.CodeValidation,
			"assessment is incomplete; no evidence for indicators %s", strings.Join(codes, ", "))
	}
	t.a.Phase = PhaseSubmitted
	t.a.SubmittedAt = stamp(t.env.Now)
	t.emit(EventAssessmentSubmitted)
	return true, nil
}

// autoSubmit bypasses the completeness check; an empty assessment can still
// be forced in at the deadline.
func (t *transition) autoSubmit() (bool, error) {
	if t.a.AutoSubmittedAt != nil {
		return false, t.fail("already auto-submitted")
	}
	now := stamp(t.env.Now)
	t.a.Phase = PhaseSubmitted
	t.a.SubmittedAt = now
	t.a.AutoSubmittedAt = now
	t.a.AutoSubmitted = true
	t.emit(EventAutoSubmitted)
	return true, nil
}

func (t *transition) targetArea() (indicator.Code, error) {
	area := t.payload.Area
	if area == "" {
		return "", dErrors.New(dErrors.CodeValidation, "area is required")
	}
	if !t.a.hasArea(area) {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown governance area %s", area)
	}
	if !t.actor.CanActOnArea(area) {
		return "", dErrors.Newf(dErrors.CodeForbidden, "assessor %s is not assigned to area %s", t.actor.ID, area)
	}
	return area, nil
}

func (t *transition) assessArea() (bool, error) {
	area, err := t.targetArea()
	if err != nil {
		return false, err
	}
	switch t.a.AreaStatuses[area] {
	case AreaAssessed:
		return false, nil
	case AreaPending:
	default:
		return false, t.fail(fmt.Sprintf("area %s is %s", area, t.a.AreaStatuses[area]))
	}
	t.a.AreaStatuses[area] = AreaAssessed
	t.emit(EventAreaAssessed, withArea(area))
	if t.a.allAreas(AreaAssessed) {
		t.emit(EventReadyForValidation)
	}
	t.closeReviewRound()
	return true, nil
}

// closeReviewRound counts one rework cycle when the last undecided area of a
// review round is decided and at least one area was returned.
func (t *transition) closeReviewRound() {
	if !t.a.anyArea(AreaRework) || !t.a.allAreas(AreaAssessed, AreaRework) {
		return
	}
	t.a.ReworkRequestedAt = stamp(t.env.Now)
	t.a.ReworkCount++
}

func (t *transition) validateArea() (bool, error) {
	area, err := t.targetArea()
	if err != nil {
		return false, err
	}
	if t.a.Calibrations.IsOpen(area) {
		return false, dErrors.Newf(dErrors.CodeUnresolvedCalibration,
			"area %s has an open calibration request", area)
	}
	switch t.a.AreaStatuses[area] {
	case AreaValidated:
		return false, nil
	case AreaAssessed:
	default:
		return false, t.fail(fmt.Sprintf("area %s is %s", area, t.a.AreaStatuses[area]))
	}
	t.a.AreaStatuses[area] = AreaValidated
	t.emit(EventAreaValidated, withArea(area))

	if !t.a.allAreas(AreaValidated) {
		return true, nil
	}
	if open := t.a.Calibrations.OpenAreas(); len(open) > 0 {
		return false, dErrors.Newf(dErrors.CodeUnresolvedCalibration,
			"areas %v still have open calibration requests", open)
	}
	summary, err := t.a.Evaluate(t.env.Tree, t.env.Policy)
	if err != nil {
		return false, err
	}
	t.a.Snapshot = &summary
	t.a.ValidatedAt = stamp(t.env.Now)
	t.a.Phase = PhaseOversight
	passed := summary.Passed
	t.emit(EventValidationCompleted, func(e *Event) { e.Passed = &passed })
	return true, nil
}

func (t *transition) requestRework() (bool, error) {
	area, err := t.targetArea()
	if err != nil {
		return false, err
	}
	if t.a.AreaStatuses[area] != AreaPending {
		return false, t.fail(fmt.Sprintf("area %s is %s", area, t.a.AreaStatuses[area]))
	}
	if limit := t.env.Policy.MaxReworkCycles; limit > 0 && t.a.ReworkCount >= limit {
		return false, t.fail(fmt.Sprintf("rework limit of %d cycle(s) reached", limit))
	}

	codes, err := t.scopedIndicators(area)
	if err != nil {
		return false, err
	}
	now := t.env.Now
	flagged := make([]string, 0, len(t.payload.EvidenceIDs))
	for _, id := range t.payload.EvidenceIDs {
		resp, ev, ok := t.a.findEvidence(id)
		if !ok || !ev.Current() {
			return false, dErrors.Newf(dErrors.CodeValidation, "evidence %s not found", id)
		}
		if resp.Indicator.Area() != area {
			return false, dErrors.Newf(dErrors.CodeValidation, "evidence %s is outside area %s", id, area)
		}
		markEvidence(ev, FlagRework, t.actor.ID, now)
		flagged = append(flagged, id)
	}
	if len(codes) == 0 && len(flagged) == 0 {
		codes = t.a.areaResponses(area)
	}
	for _, code := range codes {
		r := t.a.response(code)
		r.FlaggedForRework = true
		r.FlaggedBy = t.actor.ID
		r.FlaggedAt = stamp(now)
		r.ReworkRequestedAt = stamp(now)
		r.ValidationStatus = compliance.ValidationUnset
		if t.payload.Remarks != "" {
			r.Remarks = t.payload.Remarks
		}
	}

	t.a.AreaStatuses[area] = AreaRework
	t.emit(EventReworkRequested, withArea(area), func(e *Event) {
		e.Indicators = codes
		e.EvidenceIDs = flagged
	})
	t.closeReviewRound()
	return true, nil
}

// scopedIndicators validates payload indicators against area.
func (t *transition) scopedIndicators(area indicator.Code) ([]indicator.Code, error) {
	out := make([]indicator.Code, 0, len(t.payload.Indicators))
	for _, code := range t.payload.Indicators {
		if !t.env.Tree.Has(code) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown indicator %s", code)
		}
		if code.Area() != area {
			return nil, dErrors.Newf(dErrors.CodeValidation, "indicator %s is outside area %s", code, area)
		}
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out, nil
}

func (t *transition) resubmit() (bool, error) {
	now := t.env.Now
	switch t.a.Status {
	case StatusReworkRequested:
		var areas []indicator.Code
		for _, area := range t.a.Areas {
			if t.a.AreaStatuses[area] == AreaRework {
				t.a.AreaStatuses[area] = AreaPending
				areas = append(areas, area)
			}
		}
		t.a.ReworkSubmittedAt = stamp(now)
		t.emit(EventReworkSubmitted, func(e *Event) { e.Areas = areas })
		return true, nil

	case StatusCalibrationRequested:
		return t.resolveCalibrations()

	case StatusMLGOORecalibration:
		var pending []string
		for _, id := range t.a.MLGOORecalibrationEvidenceIDs {
			if _, ev, ok := t.a.findEvidence(id); ok && ev.Current() {
				pending = append(pending, id)
			}
		}
		if len(pending) > 0 {
			return false, dErrors.Newf(dErrors.CodeValidation,
				"evidence %s must be replaced before resubmitting", strings.Join(pending, ", "))
		}
		t.a.MLGOORecalibrationSubmittedAt = stamp(now)
		t.a.Phase = PhaseOversight
		t.emit(EventRecalibrationSubmitted, func(e *Event) {
			e.EvidenceIDs = slices.Clone(t.a.MLGOORecalibrationEvidenceIDs)
		})
		return true, nil
	}
	return false, t.fail("")
}

func (t *transition) resolveCalibrations() (bool, error) {
	open := t.a.Calibrations.OpenAreas()
	areas := t.payload.Areas
	if len(areas) == 0 {
		areas = open
	}
	resolver := calibration.Resolver{
		Tree:      t.env.Tree,
		Policy:    t.env.Policy,
		Options:   t.a.EvaluationOptions(),
		Responses: t.a.Responses,
	}
	for _, area := range areas {
		if !slices.Contains(open, area) {
			return false, dErrors.Newf(dErrors.CodeValidation, "area %s has no open calibration request", area)
		}
		res, err := resolver.Resolve(&t.a.Calibrations, area, t.env.Now)
		if err != nil {
			return false, err
		}
		t.a.AreaStatuses[area] = AreaAssessed
		met := res.Summary.Met
		t.emit(EventCalibrationResolved, withArea(area), func(e *Event) {
			e.AreaMet = &met
			e.Indicators = res.Request.Indicators
		})
	}
	t.a.CalibrationSubmittedAt = stamp(t.env.Now)
	return true, nil
}

func (t *transition) requestCalibration() (bool, error) {
	area, err := t.targetArea()
	if err != nil {
		return false, err
	}
	if t.a.Calibrations.IsOpen(area) {
		return false, nil
	}
	switch t.a.AreaStatuses[area] {
	case AreaAssessed, AreaValidated:
	default:
		return false, t.fail(fmt.Sprintf("area %s is %s", area, t.a.AreaStatuses[area]))
	}
	codes, err := t.scopedIndicators(area)
	if err != nil {
		return false, err
	}
	if len(codes) == 0 {
		codes = t.a.areaResponses(area)
	}

	now := t.env.Now
	t.a.Calibrations.Open(calibration.Request{
		ID:          t.env.newID(),
		Area:        area,
		ValidatorID: t.actor.ID,
		Indicators:  codes,
		RequestedAt: now,
	})
	for _, code := range codes {
		r := t.a.response(code)
		r.FlaggedForCalibration = true
		r.FlaggedBy = t.actor.ID
		r.FlaggedAt = stamp(now)
		r.ValidationStatus = compliance.ValidationUnset
		if t.payload.Remarks != "" {
			r.Remarks = t.payload.Remarks
		}
	}
	t.a.AreaStatuses[area] = AreaCalibration
	t.a.CalibrationRequestedAt = stamp(now)
	t.emit(EventCalibrationRequested, withArea(area), func(e *Event) { e.Indicators = codes })
	return true, nil
}

// requestRecalibration is single-shot. Repeating it while the loop is open is
// accepted and changes nothing, so the clock is not reset.
func (t *transition) requestRecalibration() (bool, error) {
	if t.a.Status == StatusMLGOORecalibration {
		return false, nil
	}
	if t.a.MLGOORecalibrationRequestedAt != nil {
		return false, t.fail("recalibration was already used for this assessment")
	}
	ids := slices.Compact(slices.Sorted(slices.Values(t.payload.EvidenceIDs)))
	if len(ids) == 0 {
		return false, dErrors.New(dErrors.CodeValidation, "recalibration must name the evidence to replace")
	}
	for _, id := range ids {
		if _, ev, ok := t.a.findEvidence(id); !ok || !ev.Current() {
			return false, dErrors.Newf(dErrors.CodeValidation, "evidence %s not found", id)
		}
	}
	t.a.MLGOORecalibrationEvidenceIDs = ids
	t.a.MLGOORecalibrationRequestedAt = stamp(t.env.Now)
	t.a.Phase = PhaseRecalibration
	t.emit(EventRecalibrationRequested, func(e *Event) { e.EvidenceIDs = slices.Clone(ids) })
	return true, nil
}

func (t *transition) approve() (bool, error) {
	summary, err := t.a.Evaluate(t.env.Tree, t.env.Policy)
	if err != nil {
		return false, err
	}
	t.a.Snapshot = &summary
	t.a.CompletedAt = stamp(t.env.Now)
	t.a.Phase = PhaseCompleted
	passed := summary.Passed
	t.emit(EventAssessmentCompleted, func(e *Event) { e.Passed = &passed })
	return true, nil
}

func withArea(area indicator.Code) func(*Event) {
	return func(e *Event) { e.Area = area }
}
