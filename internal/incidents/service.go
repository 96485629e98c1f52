// Package incidents implements the incident lifecycle: filing, listing,
// status transitions and the comment/audit trail.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bissquit/incidenthub/internal/authz"
	"github.com/bissquit/incidenthub/internal/catalog"
	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/pkg/metrics"
)

// Field length limits.
const (
	MinTitleLength       = 3
	MinDescriptionLength = 5
	MinMessageLength     = 2
)

// Service implements incident business logic.
type Service struct {
	repo       Repository
	services   ServiceResolver
	authorizer authz.Authorizer
	now        func() time.Time
}

// NewService creates a new incident service.
func NewService(repo Repository, services ServiceResolver, authorizer authz.Authorizer) *Service {
	return &Service{
		repo:       repo,
		services:   services,
		authorizer: authorizer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateIncidentInput holds data for filing an incident.
type CreateIncidentInput struct {
	Title       string
	Description string
	ServiceID   string
	// Severity is optional; empty means DefaultIncidentSeverity.
	Severity domain.IncidentSeverity
}

// TransitionResult describes the outcome of a status change request.
type TransitionResult struct {
	Incident *domain.Incident
	// Update is the audit entry appended for the change; nil for a no-op.
	Update   *domain.IncidentUpdate
	Previous domain.IncidentStatus
	Kind     domain.TransitionKind
}

// SkippedInvestigation reports whether the incident went from OPEN straight to RESOLVED.
func (r *TransitionResult) SkippedInvestigation() bool {
	return r.Kind == domain.TransitionSkip
}

// CreateIncident files a new incident against an existing service.
func (s *Service) CreateIncident(ctx context.Context, actor domain.Actor, input CreateIncidentInput) (*domain.Incident, error) {
	if !s.authorizer.CanPerform(actor.Role, authz.ActionIncidentCreate) {
		return nil, authz.ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if utf8.RuneCountInString(title) < MinTitleLength {
		return nil, domain.NewValidationError("title", ErrInvalidTitle)
	}

	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return nil, domain.NewValidationError("description", ErrInvalidDescription)
	}

	severity := input.Severity
	if severity == "" {
		severity = domain.DefaultIncidentSeverity
	}
	if !severity.IsValid() {
		return nil, domain.NewValidationError("severity", ErrInvalidSeverity)
	}

	if _, err := s.services.GetServiceByID(ctx, input.ServiceID); err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("resolve service: %w", err)
	}

	now := s.now()
	incident := &domain.Incident{
		Title:       title,
		Description: description,
		Status:      domain.IncidentStatusOpen,
		Severity:    severity,
		ServiceID:   input.ServiceID,
		ReporterID:  actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create incident: %w", err)
	}

	metrics.IncidentsCreated.WithLabelValues(string(severity)).Inc()

	return incident, nil
}

// ListIncidents returns incidents newest first, joined with their service,
// people and updates. Every role sees every incident.
func (s *Service) ListIncidents(ctx context.Context, actor domain.Actor, filter ListFilter) ([]*domain.IncidentDetails, error) {
	if !s.authorizer.CanPerform(actor.Role, authz.ActionIncidentRead) {
		return nil, authz.ErrForbidden
	}

	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.NewValidationError("status", ErrInvalidStatus)
	}

	if filter.ServiceNameContains != nil {
		needle := strings.TrimSpace(*filter.ServiceNameContains)
		if needle == "" {
			filter.ServiceNameContains = nil
		} else {
			filter.ServiceNameContains = &needle
		}
	}

	return s.repo.ListIncidents(ctx, filter)
}

// GetIncident returns one incident with its updates newest first.
func (s *Service) GetIncident(ctx context.Context, actor domain.Actor, id string) (*domain.IncidentDetails, error) {
	details, err := s.repo.GetIncidentDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.authorizer.CanPerform(actor.Role, authz.ActionIncidentRead) {
		return nil, authz.ErrForbidden
	}

	return details, nil
}

// TransitionStatus moves an incident to a new status. Only SUPPORT and ADMIN may do this.
//
// Requesting the current status is a no-op: the record is returned as stored,
// updated_at is left alone and no audit entry is written. Every other pair of
// statuses is allowed, including reopening a RESOLVED incident and skipping
// INVESTIGATING (reported through TransitionResult.SkippedInvestigation).
func (s *Service) TransitionStatus(ctx context.Context, actor domain.Actor, id string, status domain.IncidentStatus) (*TransitionResult, error) {
	if _, err := s.repo.GetIncident(ctx, id); err != nil {
		return nil, err
	}

	if !s.authorizer.CanPerform(actor.Role, authz.ActionIncidentTransition) {
		return nil, authz.ErrForbidden
	}

	if !status.IsValid() {
		return nil, domain.NewValidationError("status", ErrInvalidStatus)
	}

	result := &TransitionResult{}
	incident, err := s.repo.MutateIncident(ctx, id, func(current *domain.Incident) (*Mutation, error) {
		kind, ok := domain.ClassifyTransition(current.Status, status)
		if !ok {
			return nil, fmt.Errorf("stored incident %s has unknown status %q", current.ID, current.Status)
		}

		result.Previous = current.Status
		result.Kind = kind

		if kind == domain.TransitionNoop {
			return nil, nil
		}

		now := s.now()
		next := *current
		next.Status = status
		next.UpdatedAt = now

		audit := domain.NewStatusChangeUpdate(current.ID, actor.UserID, current.Status, status)
		audit.CreatedAt = now
		result.Update = audit

		return &Mutation{
			Incident: &next,
			Updates:  []*domain.IncidentUpdate{audit},
		}, nil
	})
	if err != nil {
		if errors.Is(err, ErrIncidentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("transition incident: %w", err)
	}

	result.Incident = incident
	if result.Kind != domain.TransitionNoop {
		metrics.IncidentTransitions.WithLabelValues(string(result.Previous), string(status)).Inc()
	}

	return result, nil
}

// AddComment appends a comment from the actor to an incident's trail.
func (s *Service) AddComment(ctx context.Context, actor domain.Actor, id, message string) (*domain.IncidentUpdate, error) {
	if _, err := s.repo.GetIncident(ctx, id); err != nil {
		return nil, err
	}

	if !s.authorizer.CanPerform(actor.Role, authz.ActionIncidentComment) {
		return nil, authz.ErrForbidden
	}

	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) < MinMessageLength {
		return nil, domain.NewValidationError("message", ErrInvalidMessage)
	}

	update := &domain.IncidentUpdate{
		IncidentID: id,
		UserID:     actor.UserID,
		Kind:       domain.UpdateKindComment,
		Message:    message,
		CreatedAt:  s.now(),
	}

	if err := s.repo.CreateIncidentUpdate(ctx, update); err != nil {
		if errors.Is(err, ErrIncidentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}

	metrics.IncidentComments.Inc()

	return update, nil
}
