package domain

import "time"

const (
	DescriptionThanksMessage  = `Send "Thanks for coming" message`
	DescriptionInviteReminder = "Remind to invite to service"
	DescriptionStatusCheck    = "Confirm if person joined small group"

	dueHour = 9
)

// PlannedTask is one entry of the follow-up plan before it is persisted.
type PlannedTask struct {
	Week        Week
	TaskType    TaskType
	Description string
	DueDate     time.Time
}

// NextMonday returns the Monday at 09:00 that the follow-up plan starts on,
// in now's location. The offset is (1 + 7 - weekday) mod 7, which is zero
// when now is already a Monday.
func NextMonday(now time.Time) time.Time {
	offset := (1 + 7 - int(now.Weekday())) % 7
	return atDueHour(now, offset)
}

// FollowUpPlan lays out the six tasks of the 4-week cadence for a workflow
// started at now.
func FollowUpPlan(now time.Time) []PlannedTask {
	monday := NextMonday(now)

	plan := []PlannedTask{
		{Week: Week1, TaskType: TaskTypeMessage, Description: DescriptionThanksMessage, DueDate: monday},
		{Week: Week1, TaskType: TaskTypeReminder, Description: DescriptionInviteReminder, DueDate: atDueHour(monday, 3)},
	}

	for week := 2; week <= 4; week++ {
		thursday := atDueHour(monday, (week-1)*7+3)
		plan = append(plan, PlannedTask{
			Week:        WeekNumber(week),
			TaskType:    TaskTypeReminder,
			Description: DescriptionInviteReminder,
			DueDate:     thursday,
		})

		if week == 4 {
			plan = append(plan, PlannedTask{
				Week:        Week4,
				TaskType:    TaskTypeStatusCheck,
				Description: DescriptionStatusCheck,
				DueDate:     atDueHour(thursday, 1),
			})
		}
	}

	return plan
}

// atDueHour moves t by days calendar days and pins it to 09:00 local time.
func atDueHour(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, dueHour, 0, 0, 0, t.Location())
}
