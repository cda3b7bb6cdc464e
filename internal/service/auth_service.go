package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/rtepass1986/reallifeberlin/internal/auth"
	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/planningcenter"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

// ErrUsePlanningCenter marks a login that has to go through Planning Center.
var ErrUsePlanningCenter = fmt.Errorf("%w: use planning center login", ErrUnauthorized)

const minPasswordLength = 6

type TokenIssuer interface {
	Issue(userID string, role domain.Role) (string, error)
	Parse(token string) (auth.Claims, error)
}

// IdentityProvider signs staff in through an external OAuth2 provider.
type IdentityProvider interface {
	AuthCodeURL(state string) (string, error)
	Identify(ctx context.Context, code string) (planningcenter.UserInfo, error)
}

// PersonFinder looks a person up in the external people database.
type PersonFinder interface {
	FindPersonByEmail(ctx context.Context, email string) (planningcenter.Person, bool, error)
}

type AuthService struct {
	users    store.UserStore
	tokens   TokenIssuer
	identity IdentityProvider
	people   PersonFinder
	env
}

// NewAuthService wires authentication. identity and people may be nil when
// Planning Center is not configured.
func NewAuthService(users store.UserStore, tokens TokenIssuer, identity IdentityProvider, people PersonFinder, opts Options) (*AuthService, error) {
	if users == nil {
		return nil, ErrStoreNil
	}
	if tokens == nil {
		return nil, errors.New("token issuer is nil")
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		identity: identity,
		people:   people,
		env:      newEnv(opts, "auth"),
	}, nil
}

type Session struct {
	Token string
	User  domain.User
}

type Registration struct {
	Email    string
	Password string
	Name     string
}

// Register is the public sign-up. It always creates a VIEWER; other roles are
// granted by an admin through CreateUser or by seeding.
func (s *AuthService) Register(ctx context.Context, r Registration) (Session, error) {
	u, err := s.createUser(ctx, r, domain.RoleViewer)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return s.session(u)
}

type NewUser struct {
	Registration
	Role domain.Role // VIEWER when empty
}

// CreateUser adds a user with any role. Only admins may call it.
func (s *AuthService) CreateUser(ctx context.Context, actor Actor, in NewUser) (domain.User, error) {
	if !actor.IsAdmin() {
		return domain.User{}, fmt.Errorf("create user: %w", ErrForbidden)
	}
	role := in.Role
	if role == "" {
		role = domain.RoleViewer
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	u, err := s.createUser(ctx, in.Registration, role)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "admin_id", actor.ID)
	return u, nil
}

func (s *AuthService) createUser(ctx context.Context, r Registration, role domain.Role) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, invalid("email %q is not valid", r.Email)
	}
	if len(r.Password) < minPasswordLength {
		return domain.User{}, invalid("password must have at least %d characters", minPasswordLength)
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return domain.User{}, invalid("name is required")
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.users.CreateUser(ctx, domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return domain.User{}, storeErr("user "+email, err)
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		if s.knownToPlanningCenter(ctx, email) {
			return Session{}, ErrUsePlanningCenter
		}
		return Session{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	if u.PasswordHash == "" {
		return Session{}, ErrUsePlanningCenter
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	return s.session(u)
}

func (s *AuthService) knownToPlanningCenter(ctx context.Context, email string) bool {
	if s.people == nil {
		return false
	}
	_, ok, err := s.people.FindPersonByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("planning center lookup failed", "error", err)
		return false
	}
	return ok
}

func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, storeErr("user "+userID, err)
	}
	return u, nil
}

// Authenticate verifies a bearer token and returns its actor.
func (s *AuthService) Authenticate(token string) (Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// AuthorizeURL returns the Planning Center sign-in URL. A state is generated
// when none is given.
func (s *AuthService) AuthorizeURL(state string) (string, string, error) {
	if s.identity == nil {
		return "", "", fmt.Errorf("%w: %v", ErrExternalService, planningcenter.ErrNotConfigured)
	}
	if state == "" {
		state = uuid.NewString()
	}
	u, err := s.identity.AuthCodeURL(state)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return u, state, nil
}

// PlanningCenterCallback finishes the OAuth2 flow. Unknown people become
// VIEWER users without a password; known users get their name refreshed.
func (s *AuthService) PlanningCenterCallback(ctx context.Context, code string) (Session, error) {
	if strings.TrimSpace(code) == "" {
		return Session{}, invalid("authorization code required")
	}
	if s.identity == nil {
		return Session{}, fmt.Errorf("%w: %v", ErrExternalService, planningcenter.ErrNotConfigured)
	}

	info, err := s.identity.Identify(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	email := strings.ToLower(info.LoginEmail())
	if email == "" {
		return Session{}, fmt.Errorf("%w: planning center returned no identity", ErrExternalService)
	}
	name := info.DisplayName()

	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u, err = s.users.CreateUser(ctx, domain.User{
			Email:            email,
			Name:             name,
			Role:             domain.RoleViewer,
			PlanningCenterID: info.Sub,
		})
		if err != nil {
			return Session{}, storeErr("user "+email, err)
		}
		s.logger.Info("user created from planning center", "user_id", u.ID)
	case err != nil:
		return Session{}, fmt.Errorf("load user: %w", err)
	default:
		u.Name = name
		if u.PlanningCenterID == "" {
			u.PlanningCenterID = info.Sub
		}
		if u, err = s.users.UpdateUser(ctx, u); err != nil {
			return Session{}, storeErr("user "+email, err)
		}
	}

	return s.session(u)
}

func (s *AuthService) session(u domain.User) (Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}
