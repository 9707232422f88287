package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrNonPositiveAmount  = errors.New("payment amount must be positive")
	ErrAlreadyActivated   = errors.New("prepaid subscription already activated for this block")
	ErrDuplicateEmail     = errors.New("email already used by another specialist")
	ErrBlockExhausted     = errors.New("subscription block has no sessions left")
	ErrBlockMismatch      = errors.New("entry and block belong to different children")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("specialist account is deactivated")
)

func notFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
