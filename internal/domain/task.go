package domain

import (
	"fmt"
	"time"
)

type TaskType string

const (
	TaskTypeMessage     TaskType = "MESSAGE"
	TaskTypeReminder    TaskType = "REMINDER"
	TaskTypeStatusCheck TaskType = "STATUS_CHECK"
)

type TaskStatus string

const (
	StatusPending             TaskStatus = "PENDING"
	StatusCompleted           TaskStatus = "COMPLETED"
	StatusAlreadyInSmallGroup TaskStatus = "ALREADY_IN_SMALL_GROUP"
	StatusContactEnded        TaskStatus = "CONTACT_ENDED"
	StatusRescheduled         TaskStatus = "RESCHEDULED"
)

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case StatusPending, StatusCompleted, StatusAlreadyInSmallGroup, StatusContactEnded, StatusRescheduled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

func ParseTaskType(s string) (TaskType, error) {
	switch tt := TaskType(s); tt {
	case TaskTypeMessage, TaskTypeReminder, TaskTypeStatusCheck:
		return tt, nil
	default:
		return "", fmt.Errorf("unknown task type %q", s)
	}
}

// EndsWorkflow reports whether moving a task into s terminates its workflow.
func (s TaskStatus) EndsWorkflow() bool {
	return s == StatusAlreadyInSmallGroup || s == StatusContactEnded
}

type Task struct {
	ID                  string
	WorkflowProgressID  string
	AssignedToID        string
	Week                Week
	TaskType            TaskType
	Description         string
	DueDate             time.Time
	Status              TaskStatus
	CompletedAt         *time.Time // nil iff Status == StatusPending
	Notes               string
	CommunicationMethod string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetStatus applies s and keeps CompletedAt in step with it.
func (t *Task) SetStatus(s TaskStatus, now time.Time) {
	t.Status = s
	if s == StatusPending {
		t.CompletedAt = nil
		return
	}
	at := now
	t.CompletedAt = &at
}
