package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
	"github.com/rtepass1986/reallifeberlin/internal/workerpool"
)

type ContactStore interface {
	store.ContactStore
	GetWorkflowByContact(ctx context.Context, contactID string) (domain.WorkflowProgress, error)
}

// WorkflowStarter is the part of WorkflowService a new contact needs.
type WorkflowStarter interface {
	CreateWorkflow(ctx context.Context, contactID, assignedToID string) (domain.WorkflowProgress, error)
}

// PeopleSync pushes a contact to the church's people database.
type PeopleSync interface {
	SyncContact(ctx context.Context, c domain.Contact) error
}

type ContactService struct {
	store     ContactStore
	workflows WorkflowStarter
	sync      PeopleSync
	pool      workerpool.JobPool
	env
}

// NewContactService wires the contact operations. sync and pool may be nil,
// which disables the background people sync.
func NewContactService(s ContactStore, workflows WorkflowStarter, sync PeopleSync, pool workerpool.JobPool, opts Options) (*ContactService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if workflows == nil {
		return nil, errors.New("workflow starter is nil")
	}
	return &ContactService{
		store:     s,
		workflows: workflows,
		sync:      sync,
		pool:      pool,
		env:       newEnv(opts, "contact"),
	}, nil
}

type NewContact struct {
	Contact      domain.Contact
	AssignedToID string // defaults to the creator
}

type ContactDetails struct {
	Contact  domain.Contact
	Workflow *domain.WorkflowProgress
}

// CreateContact stores the contact and, unless it is already registered for a
// small group, starts its follow-up workflow. The people sync runs in the
// background and never fails the call.
func (s *ContactService) CreateContact(ctx context.Context, actor Actor, in NewContact) (ContactDetails, error) {
	c := in.Contact
	c.ID = ""
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ContactDetails{}, invalid("name is required")
	}
	if err := validateEnums(c); err != nil {
		return ContactDetails{}, err
	}
	c.CreatorID = actor.ID

	created, err := s.store.CreateContact(ctx, c)
	if err != nil {
		return ContactDetails{}, storeErr("contact", err)
	}
	s.logger.Info("contact created", "contact_id", created.ID, "creator_id", actor.ID)

	details := ContactDetails{Contact: created}
	if !created.RegisteredForSmallGroup {
		assignee := in.AssignedToID
		if assignee == "" {
			assignee = actor.ID
		}
		wf, err := s.workflows.CreateWorkflow(ctx, created.ID, assignee)
		if err != nil {
			return details, fmt.Errorf("start workflow: %w", err)
		}
		details.Workflow = &wf
	}

	s.syncInBackground(created)
	return details, nil
}

func (s *ContactService) syncInBackground(c domain.Contact) {
	if s.sync == nil || s.pool == nil {
		return
	}
	err := s.pool.Enqueue(func(ctx context.Context) {
		if err := s.sync.SyncContact(ctx, c); err != nil {
			s.logger.Warn("people sync failed", "contact_id", c.ID, "error", err)
		}
	})
	if err != nil {
		s.logger.Warn("people sync dropped", "contact_id", c.ID, "error", err)
	}
}

func (s *ContactService) GetContact(ctx context.Context, id string) (ContactDetails, error) {
	c, err := s.store.GetContact(ctx, id)
	if err != nil {
		return ContactDetails{}, storeErr("contact "+id, err)
	}

	details := ContactDetails{Contact: c}
	wf, err := s.store.GetWorkflowByContact(ctx, id)
	switch {
	case err == nil:
		details.Workflow = &wf
	case !errors.Is(err, store.ErrNotFound):
		return ContactDetails{}, storeErr("workflow of contact "+id, err)
	}
	return details, nil
}

// ListContacts returns contacts newest first. Without an explicit creator
// filter, non-admins only see contacts they created.
func (s *ContactService) ListContacts(ctx context.Context, actor Actor, f store.ContactFilter) ([]domain.Contact, error) {
	if f.CreatorID == "" && !actor.IsAdmin() {
		f.CreatorID = actor.ID
	}
	return s.store.ListContacts(ctx, f)
}

// ContactPatch holds the fields of a partial update. Nil means unchanged.
type ContactPatch struct {
	Name                    *string
	Email                   *string
	Phone                   *string
	Address                 *string
	City                    *string
	PostalCode              *string
	District                *string
	Area                    *string
	Notes                   *string
	Source                  *domain.Source
	Classification          *domain.Classification
	RegisteredForSmallGroup *bool
	SmallGroupID            *string
}

func (p ContactPatch) empty() bool {
	return p == ContactPatch{}
}

func (p ContactPatch) apply(c *domain.Contact) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Name, p.Name)
	set(&c.Email, p.Email)
	set(&c.Phone, p.Phone)
	set(&c.Address, p.Address)
	set(&c.City, p.City)
	set(&c.PostalCode, p.PostalCode)
	set(&c.District, p.District)
	set(&c.Area, p.Area)
	set(&c.Notes, p.Notes)
	set(&c.SmallGroupID, p.SmallGroupID)
	if p.Source != nil {
		c.Source = *p.Source
	}
	if p.Classification != nil {
		c.Classification = *p.Classification
	}
	if p.RegisteredForSmallGroup != nil {
		c.RegisteredForSmallGroup = *p.RegisteredForSmallGroup
	}
}

func (s *ContactService) UpdateContact(ctx context.Context, id string, patch ContactPatch) (domain.Contact, error) {
	if patch.empty() {
		return domain.Contact{}, invalid("no fields to update")
	}

	c, err := s.store.GetContact(ctx, id)
	if err != nil {
		return domain.Contact{}, storeErr("contact "+id, err)
	}
	patch.apply(&c)

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Contact{}, invalid("name must not be empty")
	}
	if err := validateEnums(c); err != nil {
		return domain.Contact{}, err
	}

	updated, err := s.store.UpdateContact(ctx, c)
	if err != nil {
		return domain.Contact{}, storeErr("contact "+id, err)
	}
	return updated, nil
}

func (s *ContactService) DeleteContact(ctx context.Context, id string) error {
	if err := s.store.DeleteContact(ctx, id); err != nil {
		return storeErr("contact "+id, err)
	}
	s.logger.Info("contact deleted", "contact_id", id)
	return nil
}

func validateEnums(c domain.Contact) error {
	if _, err := domain.ParseSource(string(c.Source)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := domain.ParseClassification(string(c.Classification)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
