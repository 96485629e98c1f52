package identity

import (
	"errors"
	"fmt"

	"github.com/bissquit/incidenthub/internal/domain"
)

// Identity errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthenticated)
	ErrUnknownSubject     = fmt.Errorf("token subject does not match any user: %w", domain.ErrUnauthenticated)
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidName        = errors.New("name must be at least 2 characters")
	ErrInvalidPassword    = errors.New("password must be at least 6 characters")
	ErrInvalidRole        = errors.New("invalid role")
)
