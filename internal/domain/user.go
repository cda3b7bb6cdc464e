package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleConnector Role = "CONNECTOR"
	RoleViewer    Role = "VIEWER"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleConnector, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID               string
	Email            string
	Name             string
	PasswordHash     string // empty for users that only sign in through Planning Center
	Role             Role
	PlanningCenterID string

	CreatedAt time.Time
	UpdatedAt time.Time
}
