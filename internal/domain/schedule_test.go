package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNextMonday(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"wednesday", date(2026, time.October, 21, 14, 0), date(2026, time.October, 26, 9, 0)},
		{"saturday", date(2026, time.October, 24, 23, 59), date(2026, time.October, 26, 9, 0)},
		{"sunday", date(2026, time.October, 25, 8, 0), date(2026, time.October, 26, 9, 0)},
		{"tuesday", date(2026, time.October, 20, 0, 0), date(2026, time.October, 26, 9, 0)},
		// (1 + 7 - 1) mod 7 == 0: a Monday start stays on the same day.
		{"monday after nine", date(2026, time.October, 19, 10, 30), date(2026, time.October, 19, 9, 0)},
		{"monday before nine", date(2026, time.October, 19, 7, 0), date(2026, time.October, 19, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMonday(tt.now))
		})
	}
}

func TestFollowUpPlan_Wednesday(t *testing.T) {
	plan := FollowUpPlan(date(2026, time.October, 21, 14, 0))
	require.Len(t, plan, 6)

	want := []PlannedTask{
		{Week1, TaskTypeMessage, DescriptionThanksMessage, date(2026, time.October, 26, 9, 0)},
		{Week1, TaskTypeReminder, DescriptionInviteReminder, date(2026, time.October, 29, 9, 0)},
		{Week2, TaskTypeReminder, DescriptionInviteReminder, date(2026, time.November, 5, 9, 0)},
		{Week3, TaskTypeReminder, DescriptionInviteReminder, date(2026, time.November, 12, 9, 0)},
		{Week4, TaskTypeReminder, DescriptionInviteReminder, date(2026, time.November, 19, 9, 0)},
		{Week4, TaskTypeStatusCheck, DescriptionStatusCheck, date(2026, time.November, 20, 9, 0)},
	}
	assert.Equal(t, want, plan)
}

func TestFollowUpPlan_Monday(t *testing.T) {
	plan := FollowUpPlan(date(2026, time.October, 19, 11, 0))
	require.Len(t, plan, 6)

	assert.Equal(t, date(2026, time.October, 19, 9, 0), plan[0].DueDate)
	assert.Equal(t, date(2026, time.October, 22, 9, 0), plan[1].DueDate)
	assert.Equal(t, date(2026, time.November, 13, 9, 0), plan[5].DueDate)
}

func TestFollowUpPlan_KeepsWallClockAcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// Clocks go back on 2026-10-25; every task must still be due at 09:00.
	plan := FollowUpPlan(time.Date(2026, time.October, 20, 12, 0, 0, 0, berlin))
	for _, p := range plan {
		assert.Equal(t, 9, p.DueDate.Hour(), "task %s/%s", p.Week, p.TaskType)
		assert.Equal(t, berlin, p.DueDate.Location())
	}
}

func TestFollowUpPlan_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sec := rapid.Int64Range(0, 4102444800).Draw(t, "unix")
		now := time.Unix(sec, 0).UTC()

		plan := FollowUpPlan(now)
		if len(plan) != 6 {
			t.Fatalf("len(plan)=%d, want 6", len(plan))
		}

		perWeek := map[Week]int{}
		for i, p := range plan {
			perWeek[p.Week]++
			if p.DueDate.Hour() != 9 || p.DueDate.Minute() != 0 {
				t.Fatalf("plan[%d] due %v, want 09:00", i, p.DueDate)
			}
			if i > 0 && !plan[i-1].DueDate.Before(p.DueDate) {
				t.Fatalf("plan[%d] due %v not after plan[%d] due %v", i, p.DueDate, i-1, plan[i-1].DueDate)
			}
		}
		if perWeek[Week1] != 2 || perWeek[Week2] != 1 || perWeek[Week3] != 1 || perWeek[Week4] != 2 {
			t.Fatalf("tasks per week=%v, want 2/1/1/2", perWeek)
		}

		first := plan[0].DueDate
		if first.Weekday() != time.Monday {
			t.Fatalf("first task due on %v, want Monday", first.Weekday())
		}
		startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if d := first.Sub(startDay); d < 0 || d >= 7*24*time.Hour {
			t.Fatalf("first task %v is %v after start day, want within a week", first, d)
		}

		for i := 2; i <= 4; i++ {
			if got := plan[i].DueDate.Sub(plan[i-1].DueDate); got != 7*24*time.Hour {
				t.Fatalf("reminder gap %d=%v, want 7 days", i, got)
			}
		}
		if got := plan[5].DueDate.Sub(plan[4].DueDate); got != 24*time.Hour {
			t.Fatalf("status check gap=%v, want 1 day", got)
		}
		if plan[5].TaskType != TaskTypeStatusCheck {
			t.Fatalf("last task type=%s, want %s", plan[5].TaskType, TaskTypeStatusCheck)
		}
	})
}
