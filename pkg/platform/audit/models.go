// Package audit records who moved an assessment, when, and from which state.
//
// Audit entries are written in the same transaction as the assessment they
// describe: if the entry cannot be persisted the operation fails. They are
// distinct from lifecycle notifications, which are best-effort.
package audit

import (
	"context"
	"time"
)

// Category classifies audit entries for retention and routing.
type Category string

const (
	// CategoryLifecycle covers state-machine transitions.
	CategoryLifecycle Category = "lifecycle"
	// CategoryReview covers evidence uploads, verdicts and flags.
	CategoryReview Category = "review"
	// CategoryScheduler covers reminder and auto-submit activity.
	CategoryScheduler Category = "scheduler"
)

// Action names recorded outside the lifecycle event stream.
const (
	ActionAssessmentCreated   = "assessment.created"
	ActionEvidenceRecorded    = "evidence.recorded"
	ActionValidationRecorded  = "validation.recorded"
	ActionEvidenceFlagged     = "evidence.flagged"
	ActionIndicatorCalibrated = "indicator.flagged_for_calibration"
)

// Event is one audit entry.
type Event struct {
	ID           string    `json:"id"`
	Category     Category  `json:"category"`
	Timestamp    time.Time `json:"timestamp"`
	AssessmentID string    `json:"assessment_id"`
	UnitID       string    `json:"unit_id,omitempty"`
	Year         int       `json:"year,omitempty"`
	Action       string    `json:"action"`
	ActorID      string    `json:"actor_id,omitempty"`
	ActorRole    string    `json:"actor_role,omitempty"`
	FromStatus   string    `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status,omitempty"`
	Area         string    `json:"area,omitempty"`
	// Subject is the indicator or evidence id the entry is about.
	Subject   string `json:"subject,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// CategoryFor derives the category from the action name.
func CategoryFor(action string) Category {
	switch action {
	case ActionEvidenceRecorded, ActionValidationRecorded, ActionEvidenceFlagged, ActionIndicatorCalibrated:
		return CategoryReview
	case "assessment.auto_submitted", "assessment.deadline_reminder":
		return CategoryScheduler
	}
	return CategoryLifecycle
}

// Store persists audit entries. Append must join a transaction carried by
// ctx when the implementation supports one.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAssessment(ctx context.Context, assessmentID string) ([]Event, error)
}
