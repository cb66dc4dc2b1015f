package models

import (
	"fmt"
	"strings"
	"time"

	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
)

// FlagKind selects which evidence flag a reviewer sets.
type FlagKind string

const (
	FlagRework      FlagKind = "rework"
	FlagCalibration FlagKind = "calibration"
)

// EvidenceInput is an upload's payload: a checkbox for boolean items, a value
// for the rest.
type EvidenceInput struct {
	ItemID  string
	Checked bool
	Value   string
}

// The methods below mutate the receiver in place. Callers work on a Clone so
// a failed check leaves the stored aggregate untouched.

// CanRecordEvidence reports whether the submitter may upload for code now.
func (a *Assessment) CanRecordEvidence(actor Actor, code indicator.Code) error {
	if actor.Role != RoleSubmitter {
		return dErrors.Newf(dErrors.CodeForbidden, "only the submitter may upload evidence")
	}
	switch a.Status {
	case StatusDraft:
		return nil
	case StatusReworkRequested:
		if a.AreaStatuses[code.Area()] == AreaRework {
			return nil
		}
		return dErrors.Newf(dErrors.CodeConflict, "area %s was not returned for rework", code.Area())
	case StatusCalibrationRequested:
		if a.Calibrations.IsOpen(code.Area()) {
			return nil
		}
		return dErrors.Newf(dErrors.CodeConflict, "area %s is not under calibration", code.Area())
	case StatusMLGOORecalibration:
		if r, ok := a.Responses[code]; ok {
			for _, ev := range r.Evidence {
				if containsString(a.MLGOORecalibrationEvidenceIDs, ev.ID) {
					return nil
				}
			}
		}
		return dErrors.Newf(dErrors.CodeConflict, "indicator %s is outside the recalibration scope", code)
	}
	return dErrors.Newf(dErrors.CodeConflict, "evidence is read-only while the assessment is %s", a.Status)
}

// RecordEvidence appends a new evidence record for the item and supersedes
// any current record for the same item.
func (a *Assessment) RecordEvidence(actor Actor, tree *indicator.Tree, code indicator.Code, in EvidenceInput, id string, now time.Time) (Evidence, error) {
	item, ok := tree.Item(in.ItemID)
	if !ok || item.Indicator != code {
		return Evidence{}, dErrors.Newf(dErrors.CodeValidation, "item %s does not belong to indicator %s", in.ItemID, code)
	}
	if err := a.CanRecordEvidence(actor, code); err != nil {
		return Evidence{}, err
	}
	if item.Kind != indicator.ItemBoolean && strings.TrimSpace(in.Value) == "" {
		return Evidence{}, dErrors.Newf(dErrors.CodeValidation, "item %s needs a %s value", item.ID, item.Kind)
	}

	r := a.response(code)
	for i := range r.Evidence {
		ev := &r.Evidence[i]
		if ev.ItemID == in.ItemID && ev.Current() {
			ev.SupersededAt = stamp(now)
		}
	}
	ev := Evidence{
		ID:         id,
		ItemID:     in.ItemID,
		Checked:    in.Checked || item.Kind == indicator.ItemBoolean && strings.TrimSpace(in.Value) != "",
		Value:      strings.TrimSpace(in.Value),
		UploadedBy: actor.ID,
		UploadedAt: now,
	}
	r.Evidence = append(r.Evidence, ev)
	a.UpdatedAt = now
	return ev, nil
}

// reviewWindow checks the reviewer may act on area in the current state.
func (a *Assessment) reviewWindow(actor Actor, area indicator.Code) error {
	if !a.hasArea(area) {
		return dErrors.Newf(dErrors.CodeValidation, "unknown governance area %s", area)
	}
	switch actor.Role {
	case RoleAssessor:
		if a.Status != StatusUnderAssessorReview {
			return dErrors.Newf(dErrors.CodeConflict, "assessors review only while %s", StatusUnderAssessorReview)
		}
		if !actor.CanActOnArea(area) {
			return dErrors.Newf(dErrors.CodeForbidden, "assessor %s is not assigned to area %s", actor.ID, area)
		}
		return nil
	case RoleValidator:
		if a.Status != StatusUnderValidation && a.Status != StatusCalibrationRequested {
			return dErrors.Newf(dErrors.CodeConflict, "validators review only during validation")
		}
		if a.Calibrations.IsOpen(area) {
			return dErrors.Newf(dErrors.CodeUnresolvedCalibration, "area %s has an open calibration request", area)
		}
		return nil
	}
	return dErrors.Newf(dErrors.CodeForbidden, "role %s cannot review indicators", actor.Role)
}

// RecordValidation stores a reviewer verdict on code.
func (a *Assessment) RecordValidation(actor Actor, tree *indicator.Tree, code indicator.Code, status compliance.ValidationStatus, remarks string, now time.Time) error {
	if !tree.Has(code) {
		return dErrors.Newf(dErrors.CodeValidation, "unknown indicator %s", code)
	}
	if !status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown validation status %q", status)
	}
	if err := a.reviewWindow(actor, code.Area()); err != nil {
		return err
	}
	r := a.response(code)
	r.ValidationStatus = status
	if remarks != "" {
		r.Remarks = remarks
	}
	a.UpdatedAt = now
	return nil
}

// FlagEvidence marks one evidence record. Rework flags belong to assessors,
// calibration flags to validators. Indicator-level flags are not touched.
func (a *Assessment) FlagEvidence(actor Actor, evidenceID string, kind FlagKind, now time.Time) error {
	resp, ev, ok := a.findEvidence(evidenceID)
	if !ok || !ev.Current() {
		return dErrors.Newf(dErrors.CodeNotFound, "evidence %s not found", evidenceID)
	}
	switch kind {
	case FlagRework:
		if actor.Role != RoleAssessor {
			return dErrors.New(dErrors.CodeForbidden, "only assessors flag evidence for rework")
		}
	case FlagCalibration:
		if actor.Role != RoleValidator {
			return dErrors.New(dErrors.CodeForbidden, "only validators flag evidence for calibration")
		}
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown flag %q", kind)
	}
	if err := a.reviewWindow(actor, resp.Indicator.Area()); err != nil {
		return err
	}
	markEvidence(ev, kind, actor.ID, now)
	a.UpdatedAt = now
	return nil
}

// FlagIndicatorForCalibration sets the indicator-level calibration flag.
// Evidence-level flags are left as they are.
func (a *Assessment) FlagIndicatorForCalibration(actor Actor, tree *indicator.Tree, code indicator.Code, now time.Time) error {
	if actor.Role != RoleValidator {
		return dErrors.New(dErrors.CodeForbidden, "only validators flag indicators for calibration")
	}
	if !tree.Has(code) {
		return dErrors.Newf(dErrors.CodeValidation, "unknown indicator %s", code)
	}
	if err := a.reviewWindow(actor, code.Area()); err != nil {
		return err
	}
	r := a.response(code)
	r.FlaggedForCalibration = true
	r.FlaggedBy = actor.ID
	r.FlaggedAt = stamp(now)
	a.UpdatedAt = now
	return nil
}

func markEvidence(ev *Evidence, kind FlagKind, by string, now time.Time) {
	switch kind {
	case FlagRework:
		ev.FlaggedForRework = true
	case FlagCalibration:
		ev.FlaggedForCalibration = true
	}
	ev.FlaggedBy = by
	ev.FlaggedAt = stamp(now)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String renders a compact description used in logs.
func (a *Assessment) String() string {
	return fmt.Sprintf("assessment %s (unit %s, %d) %s v%d", a.ID, a.UnitID, a.Year, a.Status, a.Version)
}
