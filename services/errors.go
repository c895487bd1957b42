package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable wraps every persistence or proof-storage failure. Callers may retry.
	ErrUnavailable = errors.New("service temporarily unavailable")
	// ErrUserNotFound is returned when the referenced member does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidPhoto rejects empty uploads and non-image content.
	ErrInvalidPhoto = errors.New("invalid photo")
	// ErrPhotoTooLarge rejects uploads above the configured limit.
	ErrPhotoTooLarge = errors.New("photo too large")
	// ErrInvalidInput rejects malformed profile, login or search input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUsernameTaken is returned by Register for an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned by Authenticate for a bad username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
