package notification

import (
	"context"
	"log/slog"

	"sglgb/internal/assessment/models"
)

// LogDispatcher writes events as structured log lines. It is the default
// channel when no broker is configured and the fallback while it is down.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, events []models.Event) error {
	for _, ev := range events {
		d.logger.InfoContext(ctx, string(ev.Type),
			"log_type", "notification",
			"assessment_id", ev.AssessmentID,
			"unit_id", ev.UnitID,
			"status", string(ev.Status),
			"area", string(ev.Area),
			"actor_id", ev.ActorID,
			"audience", Audience(ev),
			"days_left", ev.DaysLeft,
		)
	}
	return nil
}
