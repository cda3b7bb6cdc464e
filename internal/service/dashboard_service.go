package service

import (
	"context"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type StatsStore interface {
	Stats(ctx context.Context, now time.Time) (domain.Stats, error)
}

type DashboardStore interface {
	StatsStore
	store.KPIStore
}

type DashboardService struct {
	store DashboardStore
	kpis  *KPIService
	env
}

func NewDashboardService(s DashboardStore, opts Options) (*DashboardService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	e := newEnv(opts, "dashboard")
	return &DashboardService{
		store: s,
		kpis:  &KPIService{store: s, env: e},
		env:   e,
	}, nil
}

// Stats counts contacts, active workflows, and pending and overdue tasks.
func (s *DashboardService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.Stats(ctx, s.clock())
}

// Dashboard returns every mission point with its KPIs and their records
// inside f, newest record first, next to the follow-up counters.
func (s *DashboardService) Dashboard(ctx context.Context, f store.RecordFilter) (domain.Dashboard, error) {
	mps, err := s.kpis.missionPointTree(ctx, f)
	if err != nil {
		return domain.Dashboard{}, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return domain.Dashboard{MissionPoints: mps, Stats: stats}, nil
}
