package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/http/dto"
	"github.com/rtepass1986/reallifeberlin/internal/service"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type KPIService interface {
	CreateMissionPoint(ctx context.Context, in service.NewMissionPoint) (domain.MissionPoint, error)
	GetMissionPoint(ctx context.Context, id string) (domain.MissionPoint, error)
	ListMissionPoints(ctx context.Context) ([]domain.MissionPoint, error)
	UpdateMissionPoint(ctx context.Context, id string, p service.MissionPointPatch) (domain.MissionPoint, error)
	DeleteMissionPoint(ctx context.Context, id string) error

	CreateKPI(ctx context.Context, k domain.KPI) (domain.KPI, error)
	GetKPI(ctx context.Context, id string, f store.RecordFilter) (domain.KPI, error)
	ListKPIs(ctx context.Context, f store.KPIFilter) ([]domain.KPI, error)
	UpdateKPI(ctx context.Context, id string, p service.KPIPatch) (domain.KPI, error)
	DeleteKPI(ctx context.Context, id string) error

	AddRecord(ctx context.Context, kpiID string, in service.NewKPIRecord) (domain.KPIRecord, error)
	ListRecords(ctx context.Context, kpiID string, f store.RecordFilter) ([]domain.KPIRecord, error)
	Trends(ctx context.Context, kpiID string, f store.RecordFilter, g domain.TrendGrouping) ([]domain.TrendPoint, error)
}

type KPIHandler struct {
	kpis KPIService
}

func NewKPIHandler(kpis KPIService) *KPIHandler {
	return &KPIHandler{kpis: kpis}
}

// GET /api/mission-points
func (h *KPIHandler) ListMissionPoints(w http.ResponseWriter, r *http.Request) {
	mps, err := h.kpis.ListMissionPoints(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMissionPoints(mps))
}

// GET /api/mission-points/{id}
func (h *KPIHandler) GetMissionPoint(w http.ResponseWriter, r *http.Request) {
	mp, err := h.kpis.GetMissionPoint(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMissionPoint(mp))
}

// POST /api/mission-points
func (h *KPIHandler) CreateMissionPoint(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMissionPointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mp, err := h.kpis.CreateMissionPoint(r.Context(), service.NewMissionPoint{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromMissionPoint(mp))
}

// PUT /api/mission-points/{id}
func (h *KPIHandler) UpdateMissionPoint(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateMissionPointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mp, err := h.kpis.UpdateMissionPoint(r.Context(), r.PathValue("id"), service.MissionPointPatch{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMissionPoint(mp))
}

// DELETE /api/mission-points/{id}
func (h *KPIHandler) DeleteMissionPoint(w http.ResponseWriter, r *http.Request) {
	if err := h.kpis.DeleteMissionPoint(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/kpis
func (h *KPIHandler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kpis, err := h.kpis.ListKPIs(r.Context(), store.KPIFilter{
		MissionPointID: q.Get("missionPointId"),
		Location:       q.Get("location"),
		Category:       q.Get("category"),
		Subcategory:    q.Get("subcategory"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromKPIs(kpis))
}

// GET /api/kpis/{id}
func (h *KPIHandler) GetKPI(w http.ResponseWriter, r *http.Request) {
	f, err := recordFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	k, err := h.kpis.GetKPI(r.Context(), r.PathValue("id"), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromKPI(k))
}

// POST /api/kpis
func (h *KPIHandler) CreateKPI(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateKPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	k, err := h.kpis.CreateKPI(r.Context(), req.ToDomain())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromKPI(k))
}

// PUT /api/kpis/{id}
func (h *KPIHandler) UpdateKPI(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateKPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	k, err := h.kpis.UpdateKPI(r.Context(), r.PathValue("id"), service.KPIPatch{
		MissionPointID:    req.MissionPointID,
		Name:              req.Name,
		Description:       req.Description,
		TrackingFrequency: req.TrackingFrequency,
		Location:          req.Location,
		Category:          req.Category,
		Subcategory:       req.Subcategory,
		Metadata:          req.Metadata,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromKPI(k))
}

// DELETE /api/kpis/{id}
func (h *KPIHandler) DeleteKPI(w http.ResponseWriter, r *http.Request) {
	if err := h.kpis.DeleteKPI(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/kpis/{id}/records
func (h *KPIHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateKPIRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	var date time.Time
	if req.Date != "" {
		var err error
		if date, err = parseDate(req.Date, false); err != nil {
			writeError(w, http.StatusBadRequest, "date: "+err.Error())
			return
		}
	}

	rec, err := h.kpis.AddRecord(r.Context(), r.PathValue("id"), service.NewKPIRecord{
		Value: *req.Value,
		Date:  date,
		Notes: req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromKPIRecord(rec))
}

// GET /api/kpis/{id}/records
func (h *KPIHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := recordFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s := q.Get("limit"); s != "" {
		if f.Limit, err = strconv.Atoi(s); err != nil || f.Limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	recs, err := h.kpis.ListRecords(r.Context(), r.PathValue("id"), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromKPIRecords(recs))
}

// GET /api/dashboard/kpi-trends/{kpiId}
func (h *KPIHandler) Trends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := recordFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := domain.ParseTrendGrouping(q.Get("groupBy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.kpis.Trends(r.Context(), r.PathValue("kpiId"), f, g)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTrends(points))
}

// recordFilter reads startDate and endDate. A date-only endDate covers the
// whole day.
func recordFilter(q url.Values) (store.RecordFilter, error) {
	var f store.RecordFilter
	var err error
	if s := q.Get("startDate"); s != "" {
		if f.From, err = parseDate(s, false); err != nil {
			return f, fmt.Errorf("startDate: %w", err)
		}
	}
	if s := q.Get("endDate"); s != "" {
		if f.To, err = parseDate(s, true); err != nil {
			return f, fmt.Errorf("endDate: %w", err)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("endDate is before startDate")
	}
	return f, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
