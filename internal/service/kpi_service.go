package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

const (
	defaultRecordLimit = 100
	// missionPointRecordLimit caps the records attached to each KPI of a
	// single mission point view.
	missionPointRecordLimit = 10
)

type KPIService struct {
	store store.KPIStore
	env
}

func NewKPIService(s store.KPIStore, opts Options) (*KPIService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	return &KPIService{store: s, env: newEnv(opts, "kpi")}, nil
}

type NewMissionPoint struct {
	Name        string
	Description string
	Order       int
}

type MissionPointPatch struct {
	Name        *string
	Description *string
	Order       *int
}

func (p MissionPointPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Order == nil
}

func (s *KPIService) CreateMissionPoint(ctx context.Context, in NewMissionPoint) (domain.MissionPoint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.MissionPoint{}, invalid("name is required")
	}

	mp, err := s.store.CreateMissionPoint(ctx, domain.MissionPoint{
		Name:        name,
		Description: in.Description,
		Order:       in.Order,
	})
	if err != nil {
		return domain.MissionPoint{}, storeErr("mission point", err)
	}
	s.logger.Info("mission point created", "mission_point_id", mp.ID)
	mp.KPIs = []domain.KPI{}
	return mp, nil
}

// GetMissionPoint returns the mission point with its KPIs and their latest
// records.
func (s *KPIService) GetMissionPoint(ctx context.Context, id string) (domain.MissionPoint, error) {
	mp, err := s.store.GetMissionPoint(ctx, id)
	if err != nil {
		return domain.MissionPoint{}, storeErr("mission point "+id, err)
	}
	return s.withKPIs(ctx, mp, store.RecordFilter{Limit: missionPointRecordLimit})
}

// ListMissionPoints returns every mission point in display order with its
// KPIs and their records.
func (s *KPIService) ListMissionPoints(ctx context.Context) ([]domain.MissionPoint, error) {
	return s.missionPointTree(ctx, store.RecordFilter{})
}

func (s *KPIService) UpdateMissionPoint(ctx context.Context, id string, p MissionPointPatch) (domain.MissionPoint, error) {
	if p.empty() {
		return domain.MissionPoint{}, invalid("no fields to update")
	}
	mp, err := s.store.GetMissionPoint(ctx, id)
	if err != nil {
		return domain.MissionPoint{}, storeErr("mission point "+id, err)
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return domain.MissionPoint{}, invalid("name must not be empty")
		}
		mp.Name = name
	}
	if p.Description != nil {
		mp.Description = *p.Description
	}
	if p.Order != nil {
		mp.Order = *p.Order
	}

	updated, err := s.store.UpdateMissionPoint(ctx, mp)
	if err != nil {
		return domain.MissionPoint{}, storeErr("mission point "+id, err)
	}
	return updated, nil
}

func (s *KPIService) DeleteMissionPoint(ctx context.Context, id string) error {
	if err := s.store.DeleteMissionPoint(ctx, id); err != nil {
		return storeErr("mission point "+id, err)
	}
	s.logger.Info("mission point deleted", "mission_point_id", id)
	return nil
}

type KPIPatch struct {
	MissionPointID    *string
	Name              *string
	Description       *string
	TrackingFrequency *string
	Location          *string
	Category          *string
	Subcategory       *string
	Metadata          map[string]any
}

func (p KPIPatch) empty() bool {
	return p.MissionPointID == nil && p.Name == nil && p.Description == nil &&
		p.TrackingFrequency == nil && p.Location == nil && p.Category == nil &&
		p.Subcategory == nil && p.Metadata == nil
}

// apply copies every set field except the tracking frequency, which needs
// parsing first.
func (p KPIPatch) apply(k *domain.KPI) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&k.MissionPointID, p.MissionPointID)
	set(&k.Name, p.Name)
	set(&k.Description, p.Description)
	set(&k.Location, p.Location)
	set(&k.Category, p.Category)
	set(&k.Subcategory, p.Subcategory)
	if p.Metadata != nil {
		k.Metadata = p.Metadata
	}
}

// CreateKPI defaults the tracking frequency to MANUAL. An unknown mission
// point is a validation error.
func (s *KPIService) CreateKPI(ctx context.Context, k domain.KPI) (domain.KPI, error) {
	k.ID = ""
	k.Name = strings.TrimSpace(k.Name)
	if k.Name == "" {
		return domain.KPI{}, invalid("name is required")
	}
	if k.MissionPointID == "" {
		return domain.KPI{}, invalid("missionPointId is required")
	}
	freq, err := domain.ParseTrackingFrequency(string(k.TrackingFrequency))
	if err != nil {
		return domain.KPI{}, invalid("%v", err)
	}
	k.TrackingFrequency = freq

	created, err := s.store.CreateKPI(ctx, k)
	if errors.Is(err, store.ErrNotFound) {
		return domain.KPI{}, invalid("mission point %s does not exist", k.MissionPointID)
	}
	if err != nil {
		return domain.KPI{}, storeErr("kpi", err)
	}
	s.logger.Info("kpi created", "kpi_id", created.ID, "mission_point_id", created.MissionPointID)
	created.Records = []domain.KPIRecord{}
	return created, nil
}

// GetKPI returns the KPI with its records inside f.
func (s *KPIService) GetKPI(ctx context.Context, id string, f store.RecordFilter) (domain.KPI, error) {
	k, err := s.store.GetKPI(ctx, id)
	if err != nil {
		return domain.KPI{}, storeErr("kpi "+id, err)
	}
	if k.Records, err = s.store.ListKPIRecords(ctx, id, f); err != nil {
		return domain.KPI{}, storeErr("records of kpi "+id, err)
	}
	return k, nil
}

// ListKPIs returns the matching KPIs newest first, each with all its records.
func (s *KPIService) ListKPIs(ctx context.Context, f store.KPIFilter) ([]domain.KPI, error) {
	kpis, err := s.store.ListKPIs(ctx, f)
	if err != nil {
		return nil, storeErr("kpis", err)
	}
	return s.attachRecords(ctx, kpis, store.RecordFilter{})
}

func (s *KPIService) UpdateKPI(ctx context.Context, id string, p KPIPatch) (domain.KPI, error) {
	if p.empty() {
		return domain.KPI{}, invalid("no fields to update")
	}
	k, err := s.store.GetKPI(ctx, id)
	if err != nil {
		return domain.KPI{}, storeErr("kpi "+id, err)
	}

	if p.MissionPointID != nil && *p.MissionPointID != k.MissionPointID {
		if _, err := s.store.GetMissionPoint(ctx, *p.MissionPointID); errors.Is(err, store.ErrNotFound) {
			return domain.KPI{}, invalid("mission point %s does not exist", *p.MissionPointID)
		} else if err != nil {
			return domain.KPI{}, storeErr("mission point "+*p.MissionPointID, err)
		}
	}
	if p.TrackingFrequency != nil {
		freq, err := domain.ParseTrackingFrequency(*p.TrackingFrequency)
		if err != nil {
			return domain.KPI{}, invalid("%v", err)
		}
		k.TrackingFrequency = freq
	}
	p.apply(&k)

	k.Name = strings.TrimSpace(k.Name)
	if k.Name == "" {
		return domain.KPI{}, invalid("name must not be empty")
	}

	updated, err := s.store.UpdateKPI(ctx, k)
	if err != nil {
		return domain.KPI{}, storeErr("kpi "+id, err)
	}
	return updated, nil
}

func (s *KPIService) DeleteKPI(ctx context.Context, id string) error {
	if err := s.store.DeleteKPI(ctx, id); err != nil {
		return storeErr("kpi "+id, err)
	}
	s.logger.Info("kpi deleted", "kpi_id", id)
	return nil
}

type NewKPIRecord struct {
	Value float64
	Date  time.Time // defaults to now
	Notes string
}

func (s *KPIService) AddRecord(ctx context.Context, kpiID string, in NewKPIRecord) (domain.KPIRecord, error) {
	date := in.Date
	if date.IsZero() {
		date = s.clock()
	}

	rec, err := s.store.AddKPIRecord(ctx, domain.KPIRecord{
		KPIID: kpiID,
		Value: in.Value,
		Date:  date,
		Notes: in.Notes,
	})
	if err != nil {
		return domain.KPIRecord{}, storeErr("kpi "+kpiID, err)
	}
	return rec, nil
}

// ListRecords returns the KPI's records newest first. Without a limit at most
// 100 records are returned.
func (s *KPIService) ListRecords(ctx context.Context, kpiID string, f store.RecordFilter) ([]domain.KPIRecord, error) {
	if _, err := s.store.GetKPI(ctx, kpiID); err != nil {
		return nil, storeErr("kpi "+kpiID, err)
	}
	if f.Limit <= 0 {
		f.Limit = defaultRecordLimit
	}
	recs, err := s.store.ListKPIRecords(ctx, kpiID, f)
	if err != nil {
		return nil, storeErr("records of kpi "+kpiID, err)
	}
	return recs, nil
}

// Trends averages the KPI's records inside f per day, ISO week or month of
// the configured location.
func (s *KPIService) Trends(ctx context.Context, kpiID string, f store.RecordFilter, g domain.TrendGrouping) ([]domain.TrendPoint, error) {
	if _, err := s.store.GetKPI(ctx, kpiID); err != nil {
		return nil, storeErr("kpi "+kpiID, err)
	}
	f.Limit = 0
	recs, err := s.store.ListKPIRecords(ctx, kpiID, f)
	if err != nil {
		return nil, storeErr("records of kpi "+kpiID, err)
	}
	return domain.KPITrends(recs, g, s.loc), nil
}

func (s *KPIService) missionPointTree(ctx context.Context, f store.RecordFilter) ([]domain.MissionPoint, error) {
	mps, err := s.store.ListMissionPoints(ctx)
	if err != nil {
		return nil, storeErr("mission points", err)
	}
	for i := range mps {
		if mps[i], err = s.withKPIs(ctx, mps[i], f); err != nil {
			return nil, err
		}
	}
	return mps, nil
}

func (s *KPIService) withKPIs(ctx context.Context, mp domain.MissionPoint, f store.RecordFilter) (domain.MissionPoint, error) {
	kpis, err := s.store.ListKPIs(ctx, store.KPIFilter{MissionPointID: mp.ID})
	if err != nil {
		return domain.MissionPoint{}, storeErr("kpis of mission point "+mp.ID, err)
	}
	if mp.KPIs, err = s.attachRecords(ctx, kpis, f); err != nil {
		return domain.MissionPoint{}, err
	}
	return mp, nil
}

func (s *KPIService) attachRecords(ctx context.Context, kpis []domain.KPI, f store.RecordFilter) ([]domain.KPI, error) {
	for i := range kpis {
		recs, err := s.store.ListKPIRecords(ctx, kpis[i].ID, f)
		if err != nil {
			return nil, storeErr("records of kpi "+kpis[i].ID, err)
		}
		kpis[i].Records = recs
	}
	return kpis, nil
}
