package handlers

import (
	"context"
	"net/http"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/http/dto"
	"github.com/rtepass1986/reallifeberlin/internal/service"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type TaskService interface {
	GetTask(ctx context.Context, id string) (domain.Task, error)
	ListTasks(ctx context.Context, actor service.Actor, f store.TaskFilter) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, actor service.Actor, taskID string, upd service.StatusUpdate) (domain.Task, error)
}

type TaskHandler struct {
	taskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := store.TaskFilter{AssignedToID: q.Get("assignedToId")}
	if s := q.Get("status"); s != "" {
		status, err := domain.ParseTaskStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = status
	}
	if s := q.Get("week"); s != "" {
		week, err := domain.ParseWeek(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Week = week
	}

	tasks, err := h.taskService.ListTasks(r.Context(), actor, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTasks(tasks))
}

// GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTask(task))
}

// PATCH /api/tasks/{id}/status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.UpdateTaskStatus(r.Context(), actor, r.PathValue("id"), service.StatusUpdate{
		Status:              domain.TaskStatus(req.Status),
		Notes:               req.Notes,
		CommunicationMethod: req.CommunicationMethod,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTask(task))
}
