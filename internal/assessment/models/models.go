// Package models holds the assessment aggregate and its pure lifecycle
// rules. Nothing here touches storage, clocks or the network: every
// operation takes the current time and catalog from its caller and returns
// a new aggregate plus the events it produced.
package models

import (
	"maps"
	"slices"
	"time"

	"sglgb/internal/calibration"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
)

// Response and Evidence are the evaluator's input records; the aggregate
// stores them as-is.
type (
	Response = compliance.Response
	Evidence = compliance.Evidence
)

// Status is the macro lifecycle state. It is always DeriveStatus(a).
type Status string

const (
	StatusDraft                   Status = "DRAFT"
	StatusSubmitted               Status = "SUBMITTED"
	StatusUnderAssessorReview     Status = "UNDER_ASSESSOR_REVIEW"
	StatusReworkRequested         Status = "REWORK_REQUESTED"
	StatusAwaitingFinalValidation Status = "AWAITING_FINAL_VALIDATION"
	StatusUnderValidation         Status = "UNDER_VALIDATION"
	StatusCalibrationRequested    Status = "CALIBRATION_REQUESTED"
	StatusAwaitingMLGOOApproval   Status = "AWAITING_MLGOO_APPROVAL"
	StatusMLGOORecalibration      Status = "MLGOO_RECALIBRATION"
	StatusCompleted               Status = "COMPLETED"
)

// AllStatuses lists every macro state in lifecycle order.
var AllStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusUnderAssessorReview, StatusReworkRequested,
	StatusAwaitingFinalValidation, StatusUnderValidation, StatusCalibrationRequested,
	StatusAwaitingMLGOOApproval, StatusMLGOORecalibration, StatusCompleted,
}

func (s Status) String() string { return string(s) }

// Phase is the coarse stage the aggregate is in. Together with the area map
// and open calibrations it determines Status.
type Phase string

const (
	PhaseDraft         Phase = "draft"
	PhaseSubmitted     Phase = "submitted"
	PhaseAssessment    Phase = "assessment"
	PhaseValidation    Phase = "validation"
	PhaseOversight     Phase = "oversight"
	PhaseRecalibration Phase = "recalibration"
	PhaseCompleted     Phase = "completed"
)

// AreaStatus is one governance area's review position.
type AreaStatus string

const (
	AreaPending     AreaStatus = "PENDING"
	AreaAssessed    AreaStatus = "AREA_ASSESSED"
	AreaRework      AreaStatus = "AREA_REWORK"
	AreaValidated   AreaStatus = "AREA_VALIDATED"
	AreaCalibration AreaStatus = "AREA_CALIBRATION"
)

// Role is a caller's workflow role.
type Role string

const (
	RoleSubmitter Role = "submitter"
	RoleAssessor  Role = "assessor"
	RoleValidator Role = "validator"
	RoleMLGOO     Role = "mlgoo"
	RoleSystem    Role = "system"
)

// ParseRole accepts the wire spelling of a role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleSubmitter, RoleAssessor, RoleValidator, RoleMLGOO, RoleSystem:
		return r, true
	}
	return "", false
}

// Actor is whoever asks for a change. Assessors are scoped to Areas;
// validators and oversight act on every area.
type Actor struct {
	ID    string
	Role  Role
	Areas []indicator.Code
}

// SystemActor is the identity scheduler-driven transitions run as.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// CanActOnArea reports whether the actor may review area.
func (a Actor) CanActOnArea(area indicator.Code) bool {
	if a.Role != RoleAssessor {
		return true
	}
	return slices.Contains(a.Areas, area)
}

// Assessment is the aggregate root: one per (unit, year).
type Assessment struct {
	ID     string `json:"id"`
	UnitID string `json:"unit_id"`
	Year   int    `json:"year"`

	Phase  Phase  `json:"phase"`
	Status Status `json:"status"`
	// Areas is the year's governance areas in catalog order.
	Areas        []indicator.Code              `json:"areas"`
	AreaStatuses map[indicator.Code]AreaStatus `json:"area_statuses"`

	SubmittedAt                   *time.Time `json:"submitted_at,omitempty"`
	ReviewStartedAt               *time.Time `json:"review_started_at,omitempty"`
	ReworkRequestedAt             *time.Time `json:"rework_requested_at,omitempty"`
	ReworkSubmittedAt             *time.Time `json:"rework_submitted_at,omitempty"`
	ValidationStartedAt           *time.Time `json:"validation_started_at,omitempty"`
	CalibrationRequestedAt        *time.Time `json:"calibration_requested_at,omitempty"`
	CalibrationSubmittedAt        *time.Time `json:"calibration_submitted_at,omitempty"`
	ValidatedAt                   *time.Time `json:"validated_at,omitempty"`
	MLGOORecalibrationRequestedAt *time.Time `json:"mlgoo_recalibration_requested_at,omitempty"`
	MLGOORecalibrationSubmittedAt *time.Time `json:"mlgoo_recalibration_submitted_at,omitempty"`
	AutoSubmittedAt               *time.Time `json:"auto_submitted_at,omitempty"`
	CompletedAt                   *time.Time `json:"completed_at,omitempty"`
	Reminder7dSentAt              *time.Time `json:"reminder_7d_sent_at,omitempty"`
	Reminder3dSentAt              *time.Time `json:"reminder_3d_sent_at,omitempty"`
	Reminder1dSentAt              *time.Time `json:"reminder_1d_sent_at,omitempty"`
	AutoSubmitted                 bool       `json:"auto_submitted"`
	ReworkCount                   int        `json:"rework_count"`
	MLGOORecalibrationEvidenceIDs []string   `json:"mlgoo_recalibration_mov_file_ids,omitempty"`

	Calibrations calibration.Ledger           `json:"calibrations"`
	Responses    map[indicator.Code]*Response `json:"responses,omitempty"`
	// Snapshot is the evaluator output taken when validation completed and
	// refreshed at final approval.
	Snapshot *compliance.Summary `json:"snapshot,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAssessment starts a DRAFT assessment over the tree's governance areas.
func NewAssessment(id, unitID string, tree *indicator.Tree, now time.Time) *Assessment {
	areas := tree.Areas()
	statuses := make(map[indicator.Code]AreaStatus, len(areas))
	for _, a := range areas {
		statuses[a] = AreaPending
	}
	a := &Assessment{
		ID:           id,
		UnitID:       unitID,
		Year:         tree.Year(),
		Phase:        PhaseDraft,
		Areas:        areas,
		AreaStatuses: statuses,
		Responses:    make(map[indicator.Code]*Response),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	a.Status = DeriveStatus(a)
	return a
}

// CalibrationCount is the number of resolved calibration cycles.
func (a *Assessment) CalibrationCount() int { return a.Calibrations.Count() }

// Clone returns a deep copy; transitions mutate clones only.
func (a *Assessment) Clone() *Assessment {
	c := *a
	c.Areas = slices.Clone(a.Areas)
	c.AreaStatuses = maps.Clone(a.AreaStatuses)
	c.MLGOORecalibrationEvidenceIDs = slices.Clone(a.MLGOORecalibrationEvidenceIDs)
	c.Calibrations = a.Calibrations.Clone()
	c.Responses = make(map[indicator.Code]*Response, len(a.Responses))
	for code, r := range a.Responses {
		cp := *r
		cp.Evidence = slices.Clone(r.Evidence)
		c.Responses[code] = &cp
	}
	return &c
}

// ResponseList returns responses in code order for the evaluator.
func (a *Assessment) ResponseList() []Response {
	return calibration.ResponseList(a.Responses)
}

// EvaluationOptions derives the evaluator's freshness cutoffs from the
// aggregate's timestamps and open requests.
func (a *Assessment) EvaluationOptions() compliance.Options {
	return compliance.Options{
		CalibrationRequestedAt: a.Calibrations.Cutoffs(),
		ExcludedEvidence:       slices.Clone(a.MLGOORecalibrationEvidenceIDs),
	}
}

// Evaluate runs the evaluator against the aggregate's current responses.
func (a *Assessment) Evaluate(tree *indicator.Tree, policy compliance.Policy) (compliance.Summary, error) {
	return compliance.Evaluate(tree, a.ResponseList(), policy, a.EvaluationOptions())
}

// response returns the response for code, creating it when absent.
func (a *Assessment) response(code indicator.Code) *Response {
	if a.Responses == nil {
		a.Responses = make(map[indicator.Code]*Response)
	}
	r, ok := a.Responses[code]
	if !ok {
		r = &Response{Indicator: code}
		a.Responses[code] = r
	}
	return r
}

// findEvidence locates a current evidence record by id.
func (a *Assessment) findEvidence(id string) (*Response, *Evidence, bool) {
	for _, r := range a.Responses {
		for i := range r.Evidence {
			if r.Evidence[i].ID == id {
				return r, &r.Evidence[i], true
			}
		}
	}
	return nil, nil, false
}

// areaResponses lists the indicators in area that have a response, in code
// order.
func (a *Assessment) areaResponses(area indicator.Code) []indicator.Code {
	var codes []indicator.Code
	for code := range a.Responses {
		if code.Area() == area {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	return codes
}

func (a *Assessment) allAreas(statuses ...AreaStatus) bool {
	for _, area := range a.Areas {
		if !slices.Contains(statuses, a.AreaStatuses[area]) {
			return false
		}
	}
	return true
}

func (a *Assessment) anyArea(status AreaStatus) bool {
	for _, area := range a.Areas {
		if a.AreaStatuses[area] == status {
			return true
		}
	}
	return false
}

func (a *Assessment) hasArea(area indicator.Code) bool {
	return slices.Contains(a.Areas, area)
}

func stamp(t time.Time) *time.Time { return &t }
