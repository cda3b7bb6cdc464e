package dto

import (
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

type CreateContactRequest struct {
	Name                    string `json:"name"`
	Email                   string `json:"email"`
	Phone                   string `json:"phone"`
	Address                 string `json:"address"`
	City                    string `json:"city"`
	PostalCode              string `json:"postalCode"`
	District                string `json:"district"`
	Area                    string `json:"area"`
	Notes                   string `json:"notes"`
	Source                  string `json:"source"`
	Classification          string `json:"classification"`
	RegisteredForSmallGroup bool   `json:"registeredForSmallGroup"`
	SmallGroupID            string `json:"smallGroupId"`
	AssignedToID            string `json:"assignedToId"`
}

func (r CreateContactRequest) ToDomain() domain.Contact {
	return domain.Contact{
		Name:                    r.Name,
		Email:                   r.Email,
		Phone:                   r.Phone,
		Address:                 r.Address,
		City:                    r.City,
		PostalCode:              r.PostalCode,
		District:                r.District,
		Area:                    r.Area,
		Notes:                   r.Notes,
		Source:                  domain.Source(r.Source),
		Classification:          domain.Classification(r.Classification),
		RegisteredForSmallGroup: r.RegisteredForSmallGroup,
		SmallGroupID:            r.SmallGroupID,
	}
}

// UpdateContactRequest carries a partial update. Absent fields stay unchanged.
type UpdateContactRequest struct {
	Name                    *string `json:"name"`
	Email                   *string `json:"email"`
	Phone                   *string `json:"phone"`
	Address                 *string `json:"address"`
	City                    *string `json:"city"`
	PostalCode              *string `json:"postalCode"`
	District                *string `json:"district"`
	Area                    *string `json:"area"`
	Notes                   *string `json:"notes"`
	Source                  *string `json:"source"`
	Classification          *string `json:"classification"`
	RegisteredForSmallGroup *bool   `json:"registeredForSmallGroup"`
	SmallGroupID            *string `json:"smallGroupId"`
}

type ContactResponse struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	Email                   string            `json:"email,omitempty"`
	Phone                   string            `json:"phone,omitempty"`
	Address                 string            `json:"address,omitempty"`
	City                    string            `json:"city,omitempty"`
	PostalCode              string            `json:"postalCode,omitempty"`
	District                string            `json:"district,omitempty"`
	Area                    string            `json:"area,omitempty"`
	Notes                   string            `json:"notes,omitempty"`
	Source                  string            `json:"source"`
	Classification          string            `json:"classification"`
	RegisteredForSmallGroup bool              `json:"registeredForSmallGroup"`
	SmallGroupID            string            `json:"smallGroupId,omitempty"`
	CreatorID               string            `json:"creatorId"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
	Workflow                *WorkflowResponse `json:"workflowProgress,omitempty"`
}

func FromContact(c domain.Contact) ContactResponse {
	return ContactResponse{
		ID:                      c.ID,
		Name:                    c.Name,
		Email:                   c.Email,
		Phone:                   c.Phone,
		Address:                 c.Address,
		City:                    c.City,
		PostalCode:              c.PostalCode,
		District:                c.District,
		Area:                    c.Area,
		Notes:                   c.Notes,
		Source:                  string(c.Source),
		Classification:          string(c.Classification),
		RegisteredForSmallGroup: c.RegisteredForSmallGroup,
		SmallGroupID:            c.SmallGroupID,
		CreatorID:               c.CreatorID,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
	}
}

func FromContactDetails(c domain.Contact, wf *domain.WorkflowProgress) ContactResponse {
	out := FromContact(c)
	if wf != nil {
		w := FromWorkflow(*wf)
		out.Workflow = &w
	}
	return out
}
