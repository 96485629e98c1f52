package incidents

import (
	"context"

	"github.com/bissquit/incidenthub/internal/domain"
)

// ServiceResolver looks up the service an incident is filed against.
// It must return an error matching catalog.ErrServiceNotFound for unknown ids.
type ServiceResolver interface {
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
}
