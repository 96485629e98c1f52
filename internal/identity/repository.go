package identity

import (
	"context"

	"github.com/bissquit/incidenthub/internal/domain"
)

// Repository defines the interface for user data access.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
