package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

// Store keeps every entity in maps guarded by a single lock, so multi-record
// operations are atomic the same way a transaction is in the SQL store.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	contacts  map[string]domain.Contact
	leaders   map[string]domain.SmallGroupLeader
	workflows map[string]domain.WorkflowProgress
	tasks     map[string]domain.Task

	missionPoints map[string]domain.MissionPoint
	kpis          map[string]domain.KPI
	records       map[string]domain.KPIRecord

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		contacts:  make(map[string]domain.Contact),
		leaders:   make(map[string]domain.SmallGroupLeader),
		workflows: make(map[string]domain.WorkflowProgress),
		tasks:     make(map[string]domain.Task),

		missionPoints: make(map[string]domain.MissionPoint),
		kpis:          make(map[string]domain.KPI),
		records:       make(map[string]domain.KPIRecord),

		now: time.Now,
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Store) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.User{}, store.ErrAlreadyExists
		}
	}

	u.ID = newID(u.ID)
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u

	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = u

	return u, nil
}

func (s *Store) CreateContact(_ context.Context, c domain.Contact) (domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = newID(c.ID)
	if _, ok := s.contacts[c.ID]; ok {
		return domain.Contact{}, store.ErrAlreadyExists
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.contacts[c.ID] = c

	return c, nil
}

func (s *Store) GetContact(_ context.Context, id string) (domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return domain.Contact{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListContacts(_ context.Context, f store.ContactFilter) ([]domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts := make([]domain.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if f.Source != "" && c.Source != f.Source {
			continue
		}
		if f.Classification != "" && c.Classification != f.Classification {
			continue
		}
		if f.CreatorID != "" && c.CreatorID != f.CreatorID {
			continue
		}
		contacts = append(contacts, c)
	}

	// newest first, like the SQL store
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].CreatedAt.After(contacts[j].CreatedAt)
	})

	return contacts, nil
}

func (s *Store) UpdateContact(_ context.Context, c domain.Contact) (domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[c.ID]
	if !ok {
		return domain.Contact{}, store.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.CreatorID = existing.CreatorID
	c.UpdatedAt = s.now()
	s.contacts[c.ID] = c

	return c, nil
}

func (s *Store) DeleteContact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.contacts, id)

	for wfID, wf := range s.workflows {
		if wf.ContactID != id {
			continue
		}
		for taskID, t := range s.tasks {
			if t.WorkflowProgressID == wfID {
				delete(s.tasks, taskID)
			}
		}
		delete(s.workflows, wfID)
	}

	return nil
}

func (s *Store) CreateSmallGroupLeader(_ context.Context, l domain.SmallGroupLeader) (domain.SmallGroupLeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = newID(l.ID)
	if _, ok := s.leaders[l.ID]; ok {
		return domain.SmallGroupLeader{}, store.ErrAlreadyExists
	}
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	s.leaders[l.ID] = l

	return l, nil
}

func (s *Store) GetSmallGroupLeader(_ context.Context, id string) (domain.SmallGroupLeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leaders[id]
	if !ok {
		return domain.SmallGroupLeader{}, store.ErrNotFound
	}
	return l, nil
}

func (s *Store) AnySmallGroupLeader(_ context.Context) (domain.SmallGroupLeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.leaders {
		return l, nil
	}
	return domain.SmallGroupLeader{}, store.ErrNotFound
}
