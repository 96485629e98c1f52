// Package catalog manages the services incidents are filed against.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bissquit/incidenthub/internal/authz"
	"github.com/bissquit/incidenthub/internal/domain"
)

// Field length limits.
const (
	MinServiceNameLength        = 2
	MinServiceDescriptionLength = 3
)

// Service implements catalog business logic.
type Service struct {
	repo       Repository
	authorizer authz.Authorizer
}

// NewService creates a new catalog service.
func NewService(repo Repository, authorizer authz.Authorizer) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
	}
}

// CreateServiceInput holds data for creating a service.
type CreateServiceInput struct {
	Name        string
	Description *string
}

// CreateService registers a new service. Only ADMIN may do this.
func (s *Service) CreateService(ctx context.Context, actor domain.Actor, input CreateServiceInput) (*domain.Service, error) {
	if !s.authorizer.CanPerform(actor.Role, authz.ActionServiceCreate) {
		return nil, authz.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if utf8.RuneCountInString(name) < MinServiceNameLength {
		return nil, domain.NewValidationError("name", ErrInvalidServiceName)
	}

	var description *string
	if input.Description != nil {
		d := strings.TrimSpace(*input.Description)
		if utf8.RuneCountInString(d) < MinServiceDescriptionLength {
			return nil, domain.NewValidationError("description", ErrInvalidDescription)
		}
		description = &d
	}

	service := &domain.Service{
		Name:        name,
		Description: description,
	}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return service, nil
}

// GetServiceByID retrieves a service by ID.
func (s *Service) GetServiceByID(ctx context.Context, id string) (*domain.Service, error) {
	return s.repo.GetServiceByID(ctx, id)
}

// ListServices returns all services ordered by name.
func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx)
}
