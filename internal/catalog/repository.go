package catalog

import (
	"context"

	"github.com/bissquit/incidenthub/internal/domain"
)

// Repository defines the interface for catalog data operations.
type Repository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}
