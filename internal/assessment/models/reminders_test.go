package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sglgb/pkg/testutil"
)

func TestDaysRemaining(t *testing.T) {
	deadline := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"a week out", deadline.Add(-7 * 24 * time.Hour), 7},
		{"partial days round up", deadline.Add(-25 * time.Hour), 2},
		{"final hour", deadline.Add(-time.Hour), 1},
		{"at the deadline", deadline, 0},
		{"a second late", deadline.Add(time.Second), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysRemaining(deadline, tc.now))
		})
	}
}

func TestReminders(t *testing.T) {
	deadline := t0.Add(10 * 24 * time.Hour)

	testutil.Given(t, "a draft ten days out", func(t *testing.T) {
		a := newHarness(t).a
		_, due := a.DueReminder(deadline, t0)
		assert.False(t, due)
	})

	testutil.Given(t, "a draft six days out", func(t *testing.T) {
		a := newHarness(t).a
		now := deadline.Add(-6 * 24 * time.Hour)

		days, due := a.DueReminder(deadline, now)
		require.True(t, due)
		assert.Equal(t, 7, days)

		ev := a.MarkReminder(days, now)
		assert.Equal(t, EventDeadlineReminder, ev.Type)
		assert.Equal(t, 7, ev.DaysLeft)
		assert.Equal(t, SystemActor.ID, ev.ActorID)

		testutil.Then(t, "running the scan again at the same instant sends nothing", func(t *testing.T) {
			_, due := a.DueReminder(deadline, now)
			assert.False(t, due)
			assert.Nil(t, a.Reminder3dSentAt)
		})

		testutil.When(t, "the clock reaches three days", func(t *testing.T) {
			days, due := a.DueReminder(deadline, deadline.Add(-3*24*time.Hour))
			require.True(t, due)
			assert.Equal(t, 3, days)
		})
	})

	testutil.Given(t, "a first scan that only runs on the last day", func(t *testing.T) {
		a := newHarness(t).a
		now := deadline.Add(-2 * time.Hour)

		days, due := a.DueReminder(deadline, now)
		require.True(t, due)
		assert.Equal(t, 1, days)
		a.MarkReminder(days, now)

		testutil.Then(t, "the skipped reminders are stamped and never sent", func(t *testing.T) {
			assert.NotNil(t, a.Reminder7dSentAt)
			assert.NotNil(t, a.Reminder3dSentAt)
			assert.NotNil(t, a.Reminder1dSentAt)
			_, due := a.DueReminder(deadline, now.Add(time.Hour))
			assert.False(t, due)
		})
	})

	testutil.Given(t, "a submitted assessment", func(t *testing.T) {
		a := atStatus(t, StatusSubmitted).a
		_, due := a.DueReminder(deadline, deadline.Add(-time.Hour))
		assert.False(t, due)
	})

	testutil.Given(t, "a passed deadline", func(t *testing.T) {
		a := newHarness(t).a
		_, due := a.DueReminder(deadline, deadline.Add(time.Minute))
		assert.False(t, due)
	})
}

func TestAutoSubmitDue(t *testing.T) {
	deadline := t0.Add(24 * time.Hour)
	a := newHarness(t).a

	assert.False(t, a.AutoSubmitDue(deadline, deadline))
	assert.True(t, a.AutoSubmitDue(deadline, deadline.Add(time.Second)))

	a.AutoSubmittedAt = &deadline
	assert.False(t, a.AutoSubmitDue(deadline, deadline.Add(time.Second)))
}
