package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

func (s *Store) CreateMissionPoint(ctx context.Context, mp domain.MissionPoint) (domain.MissionPoint, error) {
	mp.ID = newID(mp.ID)
	mp.KPIs = nil
	now := s.now()
	mp.CreatedAt, mp.UpdatedAt = now, now

	rec := missionPointFromDomain(mp)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.MissionPoint{}, translate(err)
	}
	return mp, nil
}

func (s *Store) GetMissionPoint(ctx context.Context, id string) (domain.MissionPoint, error) {
	var rec missionPointRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.MissionPoint{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) ListMissionPoints(ctx context.Context) ([]domain.MissionPoint, error) {
	var recs []missionPointRecord
	if err := s.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list mission points: %w", err)
	}

	out := make([]domain.MissionPoint, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateMissionPoint(ctx context.Context, mp domain.MissionPoint) (domain.MissionPoint, error) {
	existing, err := s.GetMissionPoint(ctx, mp.ID)
	if err != nil {
		return domain.MissionPoint{}, err
	}
	mp.KPIs = nil
	mp.CreatedAt = existing.CreatedAt
	mp.UpdatedAt = s.now()

	rec := missionPointFromDomain(mp)
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return domain.MissionPoint{}, translate(err)
	}
	return mp, nil
}

func (s *Store) DeleteMissionPoint(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&missionPointRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}

		var kpiIDs []string
		if err := tx.Model(&kpiRecord{}).Where("mission_point_id = ?", id).Pluck("id", &kpiIDs).Error; err != nil {
			return err
		}
		if len(kpiIDs) == 0 {
			return nil
		}
		if err := tx.Delete(&kpiValueRecord{}, "kpi_id IN ?", kpiIDs).Error; err != nil {
			return err
		}
		return tx.Delete(&kpiRecord{}, "id IN ?", kpiIDs).Error
	})
}

func (s *Store) CreateKPI(ctx context.Context, k domain.KPI) (domain.KPI, error) {
	k.ID = newID(k.ID)
	k.Records = nil
	now := s.now()
	k.CreatedAt, k.UpdatedAt = now, now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &missionPointRecord{}, k.MissionPointID); err != nil {
			return err
		}
		rec := kpiFromDomain(k)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.KPI{}, translate(err)
	}
	return k, nil
}

func (s *Store) GetKPI(ctx context.Context, id string) (domain.KPI, error) {
	var rec kpiRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.KPI{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) ListKPIs(ctx context.Context, f store.KPIFilter) ([]domain.KPI, error) {
	q := s.db.WithContext(ctx).Model(&kpiRecord{})
	if f.MissionPointID != "" {
		q = q.Where("mission_point_id = ?", f.MissionPointID)
	}
	if f.Location != "" {
		q = q.Where("location = ?", f.Location)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Subcategory != "" {
		q = q.Where("subcategory = ?", f.Subcategory)
	}

	var recs []kpiRecord
	if err := q.Order("created_at DESC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}

	out := make([]domain.KPI, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateKPI(ctx context.Context, k domain.KPI) (domain.KPI, error) {
	existing, err := s.GetKPI(ctx, k.ID)
	if err != nil {
		return domain.KPI{}, err
	}
	k.Records = nil
	k.CreatedAt = existing.CreatedAt
	k.UpdatedAt = s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &missionPointRecord{}, k.MissionPointID); err != nil {
			return err
		}
		rec := kpiFromDomain(k)
		return tx.Save(&rec).Error
	})
	if err != nil {
		return domain.KPI{}, translate(err)
	}
	return k, nil
}

func (s *Store) DeleteKPI(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&kpiRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return tx.Delete(&kpiValueRecord{}, "kpi_id = ?", id).Error
	})
}

func (s *Store) AddKPIRecord(ctx context.Context, r domain.KPIRecord) (domain.KPIRecord, error) {
	r.ID = newID(r.ID)
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &kpiRecord{}, r.KPIID); err != nil {
			return err
		}
		rec := kpiValueFromDomain(r)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.KPIRecord{}, translate(err)
	}
	return r, nil
}

func (s *Store) ListKPIRecords(ctx context.Context, kpiID string, f store.RecordFilter) ([]domain.KPIRecord, error) {
	q := s.db.WithContext(ctx).Model(&kpiValueRecord{}).Where("kpi_id = ?", kpiID)
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", f.To.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var recs []kpiValueRecord
	if err := q.Order("date DESC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list kpi records: %w", err)
	}

	out := make([]domain.KPIRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// requireRow returns store.ErrNotFound unless a row of model with id exists.
func requireRow(tx *gorm.DB, model any, id string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
