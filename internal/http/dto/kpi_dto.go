package dto

import (
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

type CreateMissionPointRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type UpdateMissionPointRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

type CreateKPIRequest struct {
	MissionPointID    string         `json:"missionPointId"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	TrackingFrequency string         `json:"trackingFrequency"`
	Location          string         `json:"location"`
	Category          string         `json:"category"`
	Subcategory       string         `json:"subcategory"`
	Metadata          map[string]any `json:"metadata"`
}

func (r CreateKPIRequest) ToDomain() domain.KPI {
	return domain.KPI{
		MissionPointID:    r.MissionPointID,
		Name:              r.Name,
		Description:       r.Description,
		TrackingFrequency: domain.TrackingFrequency(r.TrackingFrequency),
		Location:          r.Location,
		Category:          r.Category,
		Subcategory:       r.Subcategory,
		Metadata:          r.Metadata,
	}
}

type UpdateKPIRequest struct {
	MissionPointID    *string        `json:"missionPointId"`
	Name              *string        `json:"name"`
	Description       *string        `json:"description"`
	TrackingFrequency *string        `json:"trackingFrequency"`
	Location          *string        `json:"location"`
	Category          *string        `json:"category"`
	Subcategory       *string        `json:"subcategory"`
	Metadata          map[string]any `json:"metadata"`
}

// CreateKPIRecordRequest takes the date as RFC 3339 or YYYY-MM-DD; empty
// means now.
type CreateKPIRecordRequest struct {
	Value *float64 `json:"value"`
	Date  string   `json:"date"`
	Notes string   `json:"notes"`
}

type KPIRecordResponse struct {
	ID        string    `json:"id"`
	KPIID     string    `json:"kpiId"`
	Value     float64   `json:"value"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromKPIRecord(r domain.KPIRecord) KPIRecordResponse {
	return KPIRecordResponse{
		ID:        r.ID,
		KPIID:     r.KPIID,
		Value:     r.Value,
		Date:      r.Date,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

func FromKPIRecords(recs []domain.KPIRecord) []KPIRecordResponse {
	out := make([]KPIRecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, FromKPIRecord(r))
	}
	return out
}

type KPIResponse struct {
	ID                string              `json:"id"`
	MissionPointID    string              `json:"missionPointId"`
	Name              string              `json:"name"`
	Description       string              `json:"description,omitempty"`
	TrackingFrequency string              `json:"trackingFrequency"`
	Location          string              `json:"location,omitempty"`
	Category          string              `json:"category,omitempty"`
	Subcategory       string              `json:"subcategory,omitempty"`
	Metadata          map[string]any      `json:"metadata,omitempty"`
	Records           []KPIRecordResponse `json:"records"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func FromKPI(k domain.KPI) KPIResponse {
	return KPIResponse{
		ID:                k.ID,
		MissionPointID:    k.MissionPointID,
		Name:              k.Name,
		Description:       k.Description,
		TrackingFrequency: string(k.TrackingFrequency),
		Location:          k.Location,
		Category:          k.Category,
		Subcategory:       k.Subcategory,
		Metadata:          k.Metadata,
		Records:           FromKPIRecords(k.Records),
		CreatedAt:         k.CreatedAt,
		UpdatedAt:         k.UpdatedAt,
	}
}

func FromKPIs(kpis []domain.KPI) []KPIResponse {
	out := make([]KPIResponse, 0, len(kpis))
	for _, k := range kpis {
		out = append(out, FromKPI(k))
	}
	return out
}

type MissionPointResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Order       int           `json:"order"`
	KPIs        []KPIResponse `json:"kpis"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func FromMissionPoint(mp domain.MissionPoint) MissionPointResponse {
	return MissionPointResponse{
		ID:          mp.ID,
		Name:        mp.Name,
		Description: mp.Description,
		Order:       mp.Order,
		KPIs:        FromKPIs(mp.KPIs),
		CreatedAt:   mp.CreatedAt,
		UpdatedAt:   mp.UpdatedAt,
	}
}

func FromMissionPoints(mps []domain.MissionPoint) []MissionPointResponse {
	out := make([]MissionPointResponse, 0, len(mps))
	for _, mp := range mps {
		out = append(out, FromMissionPoint(mp))
	}
	return out
}

type TrendPointResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func FromTrends(points []domain.TrendPoint) []TrendPointResponse {
	out := make([]TrendPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, TrendPointResponse{Date: p.Period, Value: p.Value})
	}
	return out
}

type DashboardResponse struct {
	MissionPoints []MissionPointResponse `json:"missionPoints"`
	Statistics    StatsResponse          `json:"statistics"`
}

func FromDashboard(d domain.Dashboard) DashboardResponse {
	return DashboardResponse{
		MissionPoints: FromMissionPoints(d.MissionPoints),
		Statistics:    FromStats(d.Stats),
	}
}
