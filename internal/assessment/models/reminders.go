package models

import (
	"math"
	"time"
)

// ReminderDays are the deadline reminder thresholds, loosest first.
var ReminderDays = []int{7, 3, 1}

// DaysRemaining rounds the time left up to whole days; a deadline 25 hours
// away is 2 days out. Past deadlines return a negative or zero count.
func DaysRemaining(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return int(math.Floor(left.Hours() / 24))
	}
	return int(math.Ceil(left.Hours() / 24))
}

func (a *Assessment) reminderSlot(days int) **time.Time {
	switch days {
	case 7:
		return &a.Reminder7dSentAt
	case 3:
		return &a.Reminder3dSentAt
	case 1:
		return &a.Reminder1dSentAt
	}
	return nil
}

// DueReminder returns the tightest threshold whose reminder is still unsent.
// Only DRAFT assessments before their deadline get reminders.
func (a *Assessment) DueReminder(deadline, now time.Time) (int, bool) {
	if a.Status != StatusDraft || !now.Before(deadline) {
		return 0, false
	}
	left := DaysRemaining(deadline, now)
	due := 0
	for _, d := range ReminderDays {
		if left <= d && *a.reminderSlot(d) == nil {
			due = d
		}
	}
	return due, due > 0
}

// MarkReminder records the reminder for threshold days, and any looser
// threshold that was skipped, so a late first scan sends one reminder rather
// than three. The flags never clear.
func (a *Assessment) MarkReminder(days int, now time.Time) Event {
	for _, d := range ReminderDays {
		if d < days {
			break
		}
		if slot := a.reminderSlot(d); *slot == nil {
			*slot = stamp(now)
		}
	}
	a.UpdatedAt = now
	ev := newEvent(EventDeadlineReminder, a, SystemActor, now)
	ev.DaysLeft = days
	ev.Status = a.Status
	return ev
}

// AutoSubmitDue reports whether the deadline has passed on an assessment that
// was never submitted and never forced in.
func (a *Assessment) AutoSubmitDue(deadline, now time.Time) bool {
	return a.Status == StatusDraft && a.AutoSubmittedAt == nil && now.After(deadline)
}
