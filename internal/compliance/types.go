// Package compliance evaluates recorded responses against an indicator tree.
//
// Everything here is pure: no clocks, no I/O. Callers pass the assessment's
// responses, the year's tree, the active Policy and freshness Options, and get
// a Summary they can store, render or compare. Results are always
// regenerable from the inputs.
package compliance

import (
	"time"

	"sglgb/internal/indicator"
)

// ValidationStatus is a reviewer's recorded verdict on one indicator.
type ValidationStatus string

const (
	ValidationUnset       ValidationStatus = ""
	ValidationPass        ValidationStatus = "PASS"
	ValidationFail        ValidationStatus = "FAIL"
	ValidationConditional ValidationStatus = "CONDITIONAL"
)

// IsValid reports whether s is a known verdict, unset included.
func (s ValidationStatus) IsValid() bool {
	switch s {
	case ValidationUnset, ValidationPass, ValidationFail, ValidationConditional:
		return true
	}
	return false
}

// Passing reports whether s counts as a pass. CONDITIONAL passes.
func (s ValidationStatus) Passing() bool {
	return s == ValidationPass || s == ValidationConditional
}

// Evidence is one uploaded means of verification for a checklist item.
type Evidence struct {
	ID                    string     `json:"id"`
	ItemID                string     `json:"item_id"`
	Checked               bool       `json:"checked"`
	Value                 string     `json:"value,omitempty"`
	UploadedBy            string     `json:"uploaded_by,omitempty"`
	UploadedAt            time.Time  `json:"uploaded_at"`
	FlaggedForRework      bool       `json:"flagged_for_rework"`
	FlaggedForCalibration bool       `json:"flagged_for_calibration"`
	FlaggedBy             string     `json:"flagged_by,omitempty"`
	FlaggedAt             *time.Time `json:"flagged_at,omitempty"`
	SupersededAt          *time.Time `json:"superseded_at,omitempty"`
}

// Current reports whether the record has not been replaced.
func (e Evidence) Current() bool { return e.SupersededAt == nil }

// Response is the single per-(assessment, indicator) record reviewers act on.
type Response struct {
	Indicator             indicator.Code   `json:"indicator"`
	ValidationStatus      ValidationStatus `json:"validation_status,omitempty"`
	FlaggedForRework      bool             `json:"flagged_for_rework"`
	FlaggedForCalibration bool             `json:"flagged_for_calibration"`
	FlaggedBy             string           `json:"flagged_by,omitempty"`
	FlaggedAt             *time.Time       `json:"flagged_at,omitempty"`
	// ReworkRequestedAt is the last rework request naming this indicator.
	// While FlaggedForRework is set, evidence uploaded before it is stale.
	ReworkRequestedAt     *time.Time       `json:"rework_requested_at,omitempty"`
	Remarks               string           `json:"remarks,omitempty"`
	Evidence              []Evidence       `json:"evidence,omitempty"`
}

// Options carries the assessment-level freshness cutoffs.
type Options struct {
	// CalibrationRequestedAt maps an area to its open calibration request
	// time; evidence before it is stale on calibration-flagged responses.
	CalibrationRequestedAt map[indicator.Code]time.Time
	// ExcludedEvidence lists evidence ids scoped out by an oversight
	// recalibration request; they never satisfy an item.
	ExcludedEvidence []string
}

// Status is a computed indicator outcome.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// IndicatorResult is the evaluated state of one indicator.
type IndicatorResult struct {
	Code            indicator.Code   `json:"code"`
	Status          Status           `json:"status"`
	Computed        Status           `json:"computed"`
	Reviewer        ValidationStatus `json:"reviewer,omitempty"`
	IsProfilingOnly bool             `json:"is_profiling_only,omitempty"`
	IsBBI           bool             `json:"is_bbi,omitempty"`
	SelectedGroup   string           `json:"selected_group,omitempty"`
	SatisfiedItems  []string         `json:"satisfied_items,omitempty"`
	MissingItems    []string         `json:"missing_items,omitempty"`
	StaleEvidence   []string         `json:"stale_evidence,omitempty"`
}

// Passed reports whether the indicator ended PASS.
func (r IndicatorResult) Passed() bool { return r.Status == StatusPass }

// BBIResult is the derived functionality level of a BBI indicator.
type BBIResult struct {
	Indicator   indicator.Code `json:"indicator"`
	PassedCount int            `json:"passed_count"`
	Level       string         `json:"level"`
	Functional  bool           `json:"functional"`
}

// AreaResult is the roll-up of one governance area.
type AreaResult struct {
	Area       indicator.Code                     `json:"area"`
	Met        bool                               `json:"met"`
	Indicators map[indicator.Code]IndicatorResult `json:"indicators"`
	BBIs       []BBIResult                        `json:"bbis,omitempty"`
}

// Summary is the unit-level evaluation.
type Summary struct {
	Year          int                                `json:"year"`
	Areas         []AreaResult                       `json:"areas"`
	Indicators    map[indicator.Code]IndicatorResult `json:"indicators"`
	BBIs          []BBIResult                        `json:"bbis,omitempty"`
	MetAreas      int                                `json:"met_areas"`
	MinMetAreas   int                                `json:"min_met_areas"`
	RequiredAreas []indicator.Code                   `json:"required_areas,omitempty"`
	Passed        bool                               `json:"passed"`
}

// Area returns the result for code.
func (s Summary) Area(code indicator.Code) (AreaResult, bool) {
	for _, a := range s.Areas {
		if a.Area == code {
			return a, true
		}
	}
	return AreaResult{}, false
}
