package incidents

import (
	"context"

	"github.com/bissquit/incidenthub/internal/domain"
)

// Repository defines the interface for incident storage.
//
// Implementations must serialize MutateIncident calls per incident id: while
// one call is between reading the current record and writing the mutation,
// no other MutateIncident on the same id may read it.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	GetIncidentDetails(ctx context.Context, id string) (*domain.IncidentDetails, error)
	ListIncidents(ctx context.Context, filter ListFilter) ([]*domain.IncidentDetails, error)

	CreateIncidentUpdate(ctx context.Context, update *domain.IncidentUpdate) error

	// MutateIncident loads the incident under a per-id write lock and hands a
	// copy to fn. A non-nil Mutation is persisted atomically; a nil Mutation
	// leaves the record untouched. Returns the record as stored afterwards.
	MutateIncident(ctx context.Context, id string, fn MutateFunc) (*domain.Incident, error)
}

// MutateFunc computes the new state of an incident from its current state.
type MutateFunc func(current *domain.Incident) (*Mutation, error)

// Mutation is a change to persist in one atomic unit.
type Mutation struct {
	Incident *domain.Incident
	Updates  []*domain.IncidentUpdate
}

// ListFilter holds filter options for listing incidents.
type ListFilter struct {
	Status *domain.IncidentStatus
	// ServiceNameContains is a case-insensitive substring of the service name.
	ServiceNameContains *string
	Limit               int
	Offset              int
}
