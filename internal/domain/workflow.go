package domain

import (
	"fmt"
	"time"
)

type Week string

const (
	Week1 Week = "WEEK_1"
	Week2 Week = "WEEK_2"
	Week3 Week = "WEEK_3"
	Week4 Week = "WEEK_4"
)

var nextWeek = map[Week]Week{
	Week1: Week2,
	Week2: Week3,
	Week3: Week4,
	Week4: Week4,
}

func ParseWeek(s string) (Week, error) {
	w := Week(s)
	if _, ok := nextWeek[w]; !ok {
		return "", fmt.Errorf("unknown week %q", s)
	}
	return w, nil
}

// WeekNumber returns n for WEEK_n.
func WeekNumber(n int) Week {
	return Week(fmt.Sprintf("WEEK_%d", n))
}

type WorkflowProgress struct {
	ID          string
	ContactID   string
	CurrentWeek Week
	Completed   bool
	StartDate   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Tasks []Task
}

// Advance returns the week and completion flag the workflow moves to once every
// task of its current week is resolved. WEEK_4 maps onto itself, so a workflow
// only completes when it is already at WEEK_4 on entry.
func (w WorkflowProgress) Advance() (Week, bool) {
	next, ok := nextWeek[w.CurrentWeek]
	if !ok {
		next = Week2
	}
	return next, next == Week4 && w.CurrentWeek == Week4
}
