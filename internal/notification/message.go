// Package notification delivers lifecycle events outside the process.
// Delivery is best-effort: callers dispatch after their change committed
// and never roll it back on a delivery failure.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"sglgb/internal/assessment/models"
)

// SchemaVersion is bumped on incompatible Message changes.
const SchemaVersion = 1

// Dispatcher hands a batch of events to a delivery channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []models.Event) error
}

// Message is the wire envelope of one event.
type Message struct {
	SchemaVersion int           `json:"schema_version"`
	Audience      []models.Role `json:"audience"`
	Event         models.Event  `json:"event"`
}

// audiences maps each event to the roles that act on it next.
var audiences = map[models.EventType][]models.Role{
	models.EventAssessmentSubmitted:    {models.RoleAssessor},
	models.EventAutoSubmitted:          {models.RoleSubmitter, models.RoleAssessor},
	models.EventReviewStarted:          {models.RoleSubmitter},
	models.EventAreaAssessed:           {models.RoleSubmitter},
	models.EventReworkRequested:        {models.RoleSubmitter},
	models.EventReworkSubmitted:        {models.RoleAssessor},
	models.EventReadyForValidation:     {models.RoleValidator},
	models.EventValidationStarted:      {models.RoleSubmitter},
	models.EventAreaValidated:          {models.RoleSubmitter},
	models.EventCalibrationRequested:   {models.RoleSubmitter},
	models.EventCalibrationResolved:    {models.RoleValidator},
	models.EventValidationCompleted:    {models.RoleMLGOO},
	models.EventRecalibrationRequested: {models.RoleSubmitter},
	models.EventRecalibrationSubmitted: {models.RoleMLGOO},
	models.EventAssessmentCompleted:    {models.RoleSubmitter, models.RoleAssessor, models.RoleValidator},
	models.EventDeadlineReminder:       {models.RoleSubmitter},
}

// Audience returns the roles notified of ev.
func Audience(ev models.Event) []models.Role {
	roles := audiences[ev.Type]
	return append(make([]models.Role, 0, len(roles)), roles...)
}

// Encode wraps ev in its envelope.
func Encode(ev models.Event) ([]byte, error) {
	b, err := json.Marshal(Message{SchemaVersion: SchemaVersion, Audience: Audience(ev), Event: ev})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return b, nil
}

// Decode parses an envelope, rejecting unknown schema versions.
func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("decode notification: %w", err)
	}
	if m.SchemaVersion != SchemaVersion {
		return Message{}, fmt.Errorf("unsupported notification schema version %d", m.SchemaVersion)
	}
	return m, nil
}
