package memory

import (
	"context"
	"sort"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

func (s *Store) CreateMissionPoint(_ context.Context, mp domain.MissionPoint) (domain.MissionPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mp.ID = newID(mp.ID)
	if _, ok := s.missionPoints[mp.ID]; ok {
		return domain.MissionPoint{}, store.ErrAlreadyExists
	}
	mp.KPIs = nil
	now := s.now()
	mp.CreatedAt, mp.UpdatedAt = now, now
	s.missionPoints[mp.ID] = mp

	return mp, nil
}

func (s *Store) GetMissionPoint(_ context.Context, id string) (domain.MissionPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mp, ok := s.missionPoints[id]
	if !ok {
		return domain.MissionPoint{}, store.ErrNotFound
	}
	return mp, nil
}

func (s *Store) ListMissionPoints(_ context.Context) ([]domain.MissionPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MissionPoint, 0, len(s.missionPoints))
	for _, mp := range s.missionPoints {
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateMissionPoint(_ context.Context, mp domain.MissionPoint) (domain.MissionPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.missionPoints[mp.ID]
	if !ok {
		return domain.MissionPoint{}, store.ErrNotFound
	}
	mp.KPIs = nil
	mp.CreatedAt = existing.CreatedAt
	mp.UpdatedAt = s.now()
	s.missionPoints[mp.ID] = mp

	return mp, nil
}

func (s *Store) DeleteMissionPoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.missionPoints[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.missionPoints, id)
	for kpiID, k := range s.kpis {
		if k.MissionPointID == id {
			s.deleteKPILocked(kpiID)
		}
	}
	return nil
}

func (s *Store) CreateKPI(_ context.Context, k domain.KPI) (domain.KPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.missionPoints[k.MissionPointID]; !ok {
		return domain.KPI{}, store.ErrNotFound
	}
	k.ID = newID(k.ID)
	if _, ok := s.kpis[k.ID]; ok {
		return domain.KPI{}, store.ErrAlreadyExists
	}
	k.Records = nil
	now := s.now()
	k.CreatedAt, k.UpdatedAt = now, now
	s.kpis[k.ID] = k

	return k, nil
}

func (s *Store) GetKPI(_ context.Context, id string) (domain.KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.kpis[id]
	if !ok {
		return domain.KPI{}, store.ErrNotFound
	}
	return k, nil
}

func (s *Store) ListKPIs(_ context.Context, f store.KPIFilter) ([]domain.KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.KPI, 0, len(s.kpis))
	for _, k := range s.kpis {
		if f.MissionPointID != "" && k.MissionPointID != f.MissionPointID {
			continue
		}
		if f.Location != "" && k.Location != f.Location {
			continue
		}
		if f.Category != "" && k.Category != f.Category {
			continue
		}
		if f.Subcategory != "" && k.Subcategory != f.Subcategory {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateKPI(_ context.Context, k domain.KPI) (domain.KPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.kpis[k.ID]
	if !ok {
		return domain.KPI{}, store.ErrNotFound
	}
	if _, ok := s.missionPoints[k.MissionPointID]; !ok {
		return domain.KPI{}, store.ErrNotFound
	}
	k.Records = nil
	k.CreatedAt = existing.CreatedAt
	k.UpdatedAt = s.now()
	s.kpis[k.ID] = k

	return k, nil
}

func (s *Store) DeleteKPI(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kpis[id]; !ok {
		return store.ErrNotFound
	}
	s.deleteKPILocked(id)
	return nil
}

// deleteKPILocked expects s.mu to be held.
func (s *Store) deleteKPILocked(id string) {
	delete(s.kpis, id)
	for recID, r := range s.records {
		if r.KPIID == id {
			delete(s.records, recID)
		}
	}
}

func (s *Store) AddKPIRecord(_ context.Context, r domain.KPIRecord) (domain.KPIRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kpis[r.KPIID]; !ok {
		return domain.KPIRecord{}, store.ErrNotFound
	}
	r.ID = newID(r.ID)
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	s.records[r.ID] = r

	return r, nil
}

func (s *Store) ListKPIRecords(_ context.Context, kpiID string, f store.RecordFilter) ([]domain.KPIRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.KPIRecord, 0)
	for _, r := range s.records {
		if r.KPIID != kpiID {
			continue
		}
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
