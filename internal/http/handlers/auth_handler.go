package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/http/dto"
	"github.com/rtepass1986/reallifeberlin/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, r service.Registration) (service.Session, error)
	CreateUser(ctx context.Context, actor service.Actor, in service.NewUser) (domain.User, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Me(ctx context.Context, userID string) (domain.User, error)
	AuthorizeURL(state string) (string, string, error)
	PlanningCenterCallback(ctx context.Context, code string) (service.Session, error)
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func sessionResponse(s service.Session) dto.AuthResponse {
	return dto.AuthResponse{Token: s.Token, User: dto.FromUser(s.User)}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.auth.Register(r.Context(), service.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

// POST /api/users
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.auth.CreateUser(r.Context(), actor, service.NewUser{
		Registration: service.Registration{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
		},
		Role: domain.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.FromUser(u))
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsePlanningCenter) {
			writeJSON(w, http.StatusUnauthorized, dto.LoginErrorResponse{
				Error:             "please sign in with Planning Center",
				UsePlanningCenter: true,
			})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	u, err := h.auth.Me(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromUser(u))
}

// GET /api/auth/planning-center/authorize
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	url, state, err := h.auth.AuthorizeURL(r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthorizeResponse{URL: url, State: state})
}

// POST /api/auth/planning-center/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.CallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.auth.PlanningCenterCallback(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(sess))
}
