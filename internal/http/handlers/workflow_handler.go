package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/http/dto"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type WorkflowService interface {
	GetWorkflow(ctx context.Context, id string) (domain.WorkflowProgress, error)
	ListWorkflows(ctx context.Context, f store.WorkflowFilter) ([]domain.WorkflowProgress, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context, f store.RecordFilter) (domain.Dashboard, error)
}

type WorkflowHandler struct {
	workflows WorkflowService
	dashboard DashboardService
}

func NewWorkflowHandler(workflows WorkflowService, dashboard DashboardService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, dashboard: dashboard}
}

// GET /api/workflows
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.WorkflowFilter
	if s := r.URL.Query().Get("completed"); s != "" {
		completed, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		f.Completed = &completed
	}

	workflows, err := h.workflows.ListWorkflows(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := make([]dto.WorkflowResponse, 0, len(workflows))
	for _, wf := range workflows {
		response = append(response, dto.FromWorkflow(wf))
	}

	writeJSON(w, http.StatusOK, response)
}

// GET /api/workflows/{id}
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.GetWorkflow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromWorkflow(wf))
}

// GET /api/dashboard
func (h *WorkflowHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	f, err := recordFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dash, err := h.dashboard.Dashboard(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromDashboard(dash))
}
