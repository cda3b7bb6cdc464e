package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.ID = newID(u.ID)
	u.Email = strings.ToLower(u.Email)
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRecord{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrAlreadyExists
		}
		rec := userFromDomain(u)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.User{}, translate(err)
	}

	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).First(&rec, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		return domain.User{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now()

	rec := userFromDomain(u)
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) CreateContact(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	c.ID = newID(c.ID)
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	rec := contactFromDomain(c)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Contact{}, translate(err)
	}
	return c, nil
}

func (s *Store) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	var rec contactRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.Contact{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) ListContacts(ctx context.Context, f store.ContactFilter) ([]domain.Contact, error) {
	q := s.db.WithContext(ctx).Model(&contactRecord{})
	if f.Source != "" {
		q = q.Where("source = ?", string(f.Source))
	}
	if f.Classification != "" {
		q = q.Where("classification = ?", string(f.Classification))
	}
	if f.CreatorID != "" {
		q = q.Where("creator_id = ?", f.CreatorID)
	}

	var recs []contactRecord
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	contacts := make([]domain.Contact, 0, len(recs))
	for _, r := range recs {
		contacts = append(contacts, r.toDomain())
	}
	return contacts, nil
}

func (s *Store) UpdateContact(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	existing, err := s.GetContact(ctx, c.ID)
	if err != nil {
		return domain.Contact{}, err
	}
	c.CreatedAt = existing.CreatedAt
	c.CreatorID = existing.CreatorID
	c.UpdatedAt = s.now()

	rec := contactFromDomain(c)
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return domain.Contact{}, translate(err)
	}
	return c, nil
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&contactRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}

		var workflowIDs []string
		if err := tx.Model(&workflowRecord{}).Where("contact_id = ?", id).Pluck("id", &workflowIDs).Error; err != nil {
			return err
		}
		if len(workflowIDs) == 0 {
			return nil
		}
		if err := tx.Delete(&taskRecord{}, "workflow_progress_id IN ?", workflowIDs).Error; err != nil {
			return err
		}
		return tx.Delete(&workflowRecord{}, "id IN ?", workflowIDs).Error
	})
}

func (s *Store) CreateSmallGroupLeader(ctx context.Context, l domain.SmallGroupLeader) (domain.SmallGroupLeader, error) {
	l.ID = newID(l.ID)
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now

	rec := leaderFromDomain(l)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.SmallGroupLeader{}, translate(err)
	}
	return l, nil
}

func (s *Store) GetSmallGroupLeader(ctx context.Context, id string) (domain.SmallGroupLeader, error) {
	var rec leaderRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.SmallGroupLeader{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) AnySmallGroupLeader(ctx context.Context) (domain.SmallGroupLeader, error) {
	var rec leaderRecord
	if err := s.db.WithContext(ctx).Take(&rec).Error; err != nil {
		return domain.SmallGroupLeader{}, translate(err)
	}
	return rec.toDomain(), nil
}
