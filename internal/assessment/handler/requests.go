package handler

import (
	"strings"

	"sglgb/internal/assessment/models"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
	pkgstrings "sglgb/pkg/platform/strings"
)

type CreateRequest struct {
	UnitID string `json:"unit_id"`
	Year   int    `json:"year"`
}

func (r *CreateRequest) Normalize() {
	r.UnitID = strings.TrimSpace(r.UnitID)
}

func (r *CreateRequest) Validate() error {
	if r.UnitID == "" {
		return dErrors.New(dErrors.CodeValidation, "unit_id is required")
	}
	if r.Year < 2000 || r.Year > 9999 {
		return dErrors.New(dErrors.CodeValidation, "year is out of range")
	}
	return nil
}

type EvidenceRequest struct {
	ItemID  string `json:"item_id"`
	Checked bool   `json:"checked"`
	Value   string `json:"value,omitempty"`
}

func (r *EvidenceRequest) Normalize() {
	r.ItemID = strings.TrimSpace(r.ItemID)
}

func (r *EvidenceRequest) Validate() error {
	if r.ItemID == "" {
		return dErrors.New(dErrors.CodeValidation, "item_id is required")
	}
	return nil
}

func (r *EvidenceRequest) input() models.EvidenceInput {
	return models.EvidenceInput{ItemID: r.ItemID, Checked: r.Checked, Value: r.Value}
}

type ValidationRequest struct {
	Status  compliance.ValidationStatus `json:"status"`
	Remarks string                      `json:"remarks,omitempty"`
}

func (r *ValidationRequest) Normalize() {
	r.Status = compliance.ValidationStatus(strings.ToUpper(strings.TrimSpace(string(r.Status))))
	r.Remarks = strings.TrimSpace(r.Remarks)
}

func (r *ValidationRequest) Validate() error {
	if !r.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown validation status %q", r.Status)
	}
	return nil
}

type FlagRequest struct {
	Kind models.FlagKind `json:"kind"`
}

func (r *FlagRequest) Normalize() {
	r.Kind = models.FlagKind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
}

func (r *FlagRequest) Validate() error {
	switch r.Kind {
	case models.FlagRework, models.FlagCalibration:
		return nil
	}
	return dErrors.Newf(dErrors.CodeValidation, "kind must be %q or %q", models.FlagRework, models.FlagCalibration)
}

// TransitionRequest names an action and its optional scope.
type TransitionRequest struct {
	Action      string   `json:"action"`
	Area        string   `json:"area,omitempty"`
	Indicators  []string `json:"indicators,omitempty"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
	Areas       []string `json:"areas,omitempty"`
	Remarks     string   `json:"remarks,omitempty"`

	action models.Action
}

func (r *TransitionRequest) Normalize() {
	r.Area = strings.TrimSpace(r.Area)
	r.Indicators = pkgstrings.DedupeAndTrim(r.Indicators)
	r.EvidenceIDs = pkgstrings.DedupeAndTrim(r.EvidenceIDs)
	r.Areas = pkgstrings.DedupeAndTrim(r.Areas)
	r.Remarks = strings.TrimSpace(r.Remarks)
}

func (r *TransitionRequest) Validate() error {
	action, ok := models.ParseAction(r.Action)
	if !ok {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", r.Action)
	}
	if action == models.ActionAutoSubmit {
		return dErrors.New(dErrors.CodeForbidden, "auto_submit is reserved for the scheduler")
	}
	r.action = action
	return nil
}

func (r *TransitionRequest) payload() models.Payload {
	return models.Payload{
		Area:        indicator.Code(r.Area),
		Indicators:  codes(r.Indicators),
		EvidenceIDs: r.EvidenceIDs,
		Areas:       codes(r.Areas),
		Remarks:     r.Remarks,
	}
}

func codes(in []string) []indicator.Code {
	if len(in) == 0 {
		return nil
	}
	out := make([]indicator.Code, len(in))
	for i, s := range in {
		out[i] = indicator.Code(s)
	}
	return out
}

// TransitionResponse is the aggregate after the action plus what it emitted.
type TransitionResponse struct {
	Assessment *models.Assessment `json:"assessment"`
	Events     []models.Event     `json:"events"`
	Changed    bool               `json:"changed"`
}
