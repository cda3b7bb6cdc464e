// Package seed loads initial users and small-group leaders from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rtepass1986/reallifeberlin/internal/auth"
	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type User struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password,omitempty"`
	Role     string `yaml:"role,omitempty"`
}

type Leader struct {
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name"`
	WhatsApp  string `yaml:"whatsapp,omitempty"`
	UserEmail string `yaml:"user_email,omitempty"`
}

type File struct {
	Users   []User   `yaml:"users"`
	Leaders []Leader `yaml:"small_group_leaders"`
}

type Store interface {
	store.UserStore
	store.LeaderStore
}

type Result struct {
	UsersCreated   int
	UsersSkipped   int
	LeadersCreated int
	LeadersSkipped int
}

func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}

	for i, u := range file.Users {
		if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Name) == "" {
			return File{}, fmt.Errorf("user %d: email and name are required", i)
		}
		if u.Role != "" {
			if _, err := domain.ParseRole(u.Role); err != nil {
				return File{}, fmt.Errorf("user %s: %w", u.Email, err)
			}
		}
	}
	for i, l := range file.Leaders {
		if strings.TrimSpace(l.Name) == "" {
			return File{}, fmt.Errorf("small group leader %d: name is required", i)
		}
	}
	return file, nil
}

// Apply creates what does not exist yet. Users are matched by email and
// leaders by id, so running it twice is harmless.
func Apply(ctx context.Context, s Store, file File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed")

	var res Result
	for _, u := range file.Users {
		created, err := applyUser(ctx, s, u)
		if err != nil {
			return res, err
		}
		if created {
			res.UsersCreated++
			logger.Info("user seeded", "email", u.Email)
		} else {
			res.UsersSkipped++
		}
	}

	for _, l := range file.Leaders {
		created, err := applyLeader(ctx, s, l)
		if err != nil {
			return res, err
		}
		if created {
			res.LeadersCreated++
			logger.Info("small group leader seeded", "name", l.Name)
		} else {
			res.LeadersSkipped++
		}
	}

	return res, nil
}

func applyUser(ctx context.Context, s Store, u User) (bool, error) {
	_, err := s.GetUserByEmail(ctx, u.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("look up user %s: %w", u.Email, err)
	}

	role := domain.RoleViewer
	if u.Role != "" {
		role = domain.Role(u.Role)
	}
	user := domain.User{Email: strings.ToLower(u.Email), Name: u.Name, Role: role}
	if u.Password != "" {
		if user.PasswordHash, err = auth.HashPassword(u.Password); err != nil {
			return false, err
		}
	}

	if _, err := s.CreateUser(ctx, user); err != nil {
		return false, fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return true, nil
}

func applyLeader(ctx context.Context, s Store, l Leader) (bool, error) {
	if l.ID != "" {
		_, err := s.GetSmallGroupLeader(ctx, l.ID)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("look up small group leader %s: %w", l.ID, err)
		}
	}

	leader := domain.SmallGroupLeader{ID: l.ID, Name: l.Name, WhatsApp: l.WhatsApp}
	if l.UserEmail != "" {
		u, err := s.GetUserByEmail(ctx, l.UserEmail)
		if err != nil {
			return false, fmt.Errorf("small group leader %s: user %s: %w", l.Name, l.UserEmail, err)
		}
		leader.UserID = u.ID
	}

	if _, err := s.CreateSmallGroupLeader(ctx, leader); err != nil {
		return false, fmt.Errorf("create small group leader %s: %w", l.Name, err)
	}
	return true, nil
}
