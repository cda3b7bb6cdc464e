package dto

import (
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

// UpdateTaskStatusRequest may omit status to only record notes or the
// communication method.
type UpdateTaskStatusRequest struct {
	Status              string  `json:"status,omitempty"`
	Notes               *string `json:"notes"`
	CommunicationMethod *string `json:"communicationMethod"`
}

type TaskResponse struct {
	ID                  string     `json:"id"`
	WorkflowProgressID  string     `json:"workflowProgressId"`
	AssignedToID        string     `json:"assignedToId"`
	Week                string     `json:"week"`
	TaskType            string     `json:"taskType"`
	Description         string     `json:"description"`
	DueDate             time.Time  `json:"dueDate"`
	Status              string     `json:"status"`
	CompletedAt         *time.Time `json:"completedAt"`
	Notes               string     `json:"notes,omitempty"`
	CommunicationMethod string     `json:"communicationMethod,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func FromTask(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:                  t.ID,
		WorkflowProgressID:  t.WorkflowProgressID,
		AssignedToID:        t.AssignedToID,
		Week:                string(t.Week),
		TaskType:            string(t.TaskType),
		Description:         t.Description,
		DueDate:             t.DueDate,
		Status:              string(t.Status),
		CompletedAt:         t.CompletedAt,
		Notes:               t.Notes,
		CommunicationMethod: t.CommunicationMethod,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func FromTasks(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, FromTask(t))
	}
	return out
}

type WorkflowResponse struct {
	ID          string         `json:"id"`
	ContactID   string         `json:"contactId"`
	CurrentWeek string         `json:"currentWeek"`
	Completed   bool           `json:"completed"`
	StartDate   time.Time      `json:"startDate"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Tasks       []TaskResponse `json:"tasks"`
}

func FromWorkflow(w domain.WorkflowProgress) WorkflowResponse {
	return WorkflowResponse{
		ID:          w.ID,
		ContactID:   w.ContactID,
		CurrentWeek: string(w.CurrentWeek),
		Completed:   w.Completed,
		StartDate:   w.StartDate,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		Tasks:       FromTasks(w.Tasks),
	}
}

type StatsResponse struct {
	TotalContacts   int64 `json:"totalContacts"`
	ActiveWorkflows int64 `json:"activeWorkflows"`
	PendingTasks    int64 `json:"pendingTasks"`
	OverdueTasks    int64 `json:"overdueTasks"`
}

func FromStats(s domain.Stats) StatsResponse {
	return StatsResponse{
		TotalContacts:   s.TotalContacts,
		ActiveWorkflows: s.ActiveWorkflows,
		PendingTasks:    s.PendingTasks,
		OverdueTasks:    s.OverdueTasks,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
