package dto

import (
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

// RegisterRequest is the public sign-up body. A role sent here is ignored.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreateUserRequest is the admin-only body for adding staff with a role.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type AuthorizeResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type UserResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	PlanningCenterID string    `json:"planningCenterId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func FromUser(u domain.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             string(u.Role),
		PlanningCenterID: u.PlanningCenterID,
		CreatedAt:        u.CreatedAt,
	}
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// LoginErrorResponse tells the client to switch to the Planning Center flow.
type LoginErrorResponse struct {
	Error             string `json:"error"`
	UsePlanningCenter bool   `json:"usePlanningCenterLogin"`
}
