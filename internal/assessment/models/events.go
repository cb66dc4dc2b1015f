package models

import (
	"time"

	"sglgb/internal/indicator"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventAssessmentSubmitted    EventType = "assessment.submitted"
	EventAutoSubmitted          EventType = "assessment.auto_submitted"
	EventReviewStarted          EventType = "assessment.review_started"
	EventAreaAssessed           EventType = "assessment.area_assessed"
	EventReworkRequested        EventType = "assessment.rework_requested"
	EventReworkSubmitted        EventType = "assessment.rework_submitted"
	EventReadyForValidation     EventType = "assessment.ready_for_validation"
	EventValidationStarted      EventType = "assessment.validation_started"
	EventAreaValidated          EventType = "assessment.area_validated"
	EventCalibrationRequested   EventType = "assessment.calibration_requested"
	EventCalibrationResolved    EventType = "assessment.calibration_resolved"
	EventValidationCompleted    EventType = "assessment.validation_completed"
	EventRecalibrationRequested EventType = "assessment.recalibration_requested"
	EventRecalibrationSubmitted EventType = "assessment.recalibration_submitted"
	EventAssessmentCompleted    EventType = "assessment.completed"
	EventDeadlineReminder       EventType = "assessment.deadline_reminder"
)

// Event is a fact the lifecycle emits for the notification boundary.
// Recipient resolution and delivery belong to the dispatcher.
type Event struct {
	Type         EventType        `json:"type"`
	AssessmentID string           `json:"assessment_id"`
	UnitID       string           `json:"unit_id"`
	Year         int              `json:"year"`
	ActorID      string           `json:"actor_id"`
	ActorRole    Role             `json:"actor_role"`
	Status       Status           `json:"status"`
	Area         indicator.Code   `json:"area,omitempty"`
	Areas        []indicator.Code `json:"areas,omitempty"`
	Indicators   []indicator.Code `json:"indicators,omitempty"`
	EvidenceIDs  []string         `json:"evidence_ids,omitempty"`
	// DaysLeft is set on deadline reminders.
	DaysLeft int `json:"days_left,omitempty"`
	// AreaMet carries the localized summary outcome of a resolved area.
	AreaMet *bool `json:"area_met,omitempty"`
	// Passed carries the unit-level outcome on validation completion.
	Passed     *bool     `json:"passed,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(t EventType, a *Assessment, actor Actor, now time.Time) Event {
	return Event{
		Type:         t,
		AssessmentID: a.ID,
		UnitID:       a.UnitID,
		Year:         a.Year,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		OccurredAt:   now,
	}
}
