package service

import (
	"errors"
	"fmt"

	"github.com/rtepass1986/reallifeberlin/internal/store"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrExternalService = errors.New("external service unavailable")
	ErrStoreNil        = errors.New("store is nil")
)

// storeErr maps store sentinels onto service errors and names the entity.
func storeErr(entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	case errors.Is(err, store.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", entity, ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w", entity, err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
