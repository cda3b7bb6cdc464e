package handlers

import (
	"context"
	"net/http"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/http/dto"
	"github.com/rtepass1986/reallifeberlin/internal/service"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type ContactService interface {
	CreateContact(ctx context.Context, actor service.Actor, in service.NewContact) (service.ContactDetails, error)
	GetContact(ctx context.Context, id string) (service.ContactDetails, error)
	ListContacts(ctx context.Context, actor service.Actor, f store.ContactFilter) ([]domain.Contact, error)
	UpdateContact(ctx context.Context, id string, patch service.ContactPatch) (domain.Contact, error)
	DeleteContact(ctx context.Context, id string) error
}

type ContactHandler struct {
	contacts ContactService
}

func NewContactHandler(contacts ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// POST /api/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req dto.CreateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	details, err := h.contacts.CreateContact(r.Context(), actor, service.NewContact{
		Contact:      req.ToDomain(),
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.FromContactDetails(details.Contact, details.Workflow))
}

// GET /api/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := store.ContactFilter{CreatorID: q.Get("creatorId")}
	if s := q.Get("source"); s != "" {
		src, err := domain.ParseSource(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Source = src
	}
	if s := q.Get("classification"); s != "" {
		c, err := domain.ParseClassification(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Classification = c
	}

	contacts, err := h.contacts.ListContacts(r.Context(), actor, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := make([]dto.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		response = append(response, dto.FromContact(c))
	}

	writeJSON(w, http.StatusOK, response)
}

// GET /api/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.contacts.GetContact(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromContactDetails(details.Contact, details.Workflow))
}

// PUT /api/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := service.ContactPatch{
		Name:                    req.Name,
		Email:                   req.Email,
		Phone:                   req.Phone,
		Address:                 req.Address,
		City:                    req.City,
		PostalCode:              req.PostalCode,
		District:                req.District,
		Area:                    req.Area,
		Notes:                   req.Notes,
		RegisteredForSmallGroup: req.RegisteredForSmallGroup,
		SmallGroupID:            req.SmallGroupID,
	}
	if req.Source != nil {
		src := domain.Source(*req.Source)
		patch.Source = &src
	}
	if req.Classification != nil {
		c := domain.Classification(*req.Classification)
		patch.Classification = &c
	}

	c, err := h.contacts.UpdateContact(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromContact(c))
}

// DELETE /api/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.DeleteContact(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
