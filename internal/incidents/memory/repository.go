// Package memory provides an in-process implementation of the incidents repository.
package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/bissquit/incidenthub/internal/catalog"
	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/incidents"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// ServiceLookup resolves services for joins and name filtering.
type ServiceLookup interface {
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
}

// UserLookup resolves reporters, assignees and update authors.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type storedIncident struct {
	incident domain.Incident
	seq      int
}

type storedUpdate struct {
	update domain.IncidentUpdate
	seq    int
}

// Repository keeps incidents in memory.
// Writes to one incident are serialized by a per-id mutex.
type Repository struct {
	services ServiceLookup
	users    UserLookup

	mu        sync.RWMutex
	incidents map[string]*storedIncident
	updates   map[string][]storedUpdate
	locks     map[string]*sync.Mutex
	seq       int
}

// NewRepository creates an empty repository.
func NewRepository(services ServiceLookup, users UserLookup) *Repository {
	return &Repository{
		services:  services,
		users:     users,
		incidents: make(map[string]*storedIncident),
		updates:   make(map[string][]storedUpdate),
		locks:     make(map[string]*sync.Mutex),
	}
}

// CreateIncident stores a new incident and assigns its id.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	if _, err := r.services.GetServiceByID(ctx, incident.ServiceID); err != nil {
		return incidents.ErrServiceNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	incident.ID = uuid.NewString()
	r.seq++
	r.incidents[incident.ID] = &storedIncident{incident: *incident, seq: r.seq}
	r.locks[incident.ID] = &sync.Mutex{}
	return nil
}

// GetIncident returns a copy of the stored incident.
func (r *Repository) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.incidents[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	incident := stored.incident
	return &incident, nil
}

// GetIncidentDetails returns the incident joined with its service, people and updates.
func (r *Repository) GetIncidentDetails(ctx context.Context, id string) (*domain.IncidentDetails, error) {
	incident, err := r.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.details(ctx, *incident)
}

// ListIncidents returns matching incidents newest first.
func (r *Repository) ListIncidents(ctx context.Context, filter incidents.ListFilter) ([]*domain.IncidentDetails, error) {
	r.mu.RLock()
	snapshot := make([]storedIncident, 0, len(r.incidents))
	for _, stored := range r.incidents {
		snapshot = append(snapshot, *stored)
	}
	r.mu.RUnlock()

	slices.SortFunc(snapshot, func(a, b storedIncident) int {
		if c := b.incident.CreatedAt.Compare(a.incident.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	var needle string
	if filter.ServiceNameContains != nil {
		needle = cases.Fold().String(*filter.ServiceNameContains)
	}

	result := make([]*domain.IncidentDetails, 0)
	skipped := 0
	for _, stored := range snapshot {
		incident := stored.incident
		if filter.Status != nil && incident.Status != *filter.Status {
			continue
		}
		if needle != "" {
			service, err := r.services.GetServiceByID(ctx, incident.ServiceID)
			if err != nil || !strings.Contains(cases.Fold().String(service.Name), needle) {
				continue
			}
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}

		details, err := r.details(ctx, incident)
		if err != nil {
			return nil, err
		}
		result = append(result, details)
	}

	return result, nil
}

// CreateIncidentUpdate appends an update to an existing incident.
func (r *Repository) CreateIncidentUpdate(_ context.Context, update *domain.IncidentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.incidents[update.IncidentID]; !ok {
		return incidents.ErrIncidentNotFound
	}
	r.appendUpdateLocked(update)
	return nil
}

// MutateIncident applies fn to the incident while holding its write lock.
func (r *Repository) MutateIncident(ctx context.Context, id string, fn incidents.MutateFunc) (*domain.Incident, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := r.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	mutation, err := fn(current)
	if err != nil {
		return nil, err
	}
	if mutation == nil {
		return r.GetIncident(ctx, id)
	}

	r.mu.Lock()
	stored := r.incidents[id]
	next := *mutation.Incident
	next.ID = id
	next.ReporterID = stored.incident.ReporterID
	next.ServiceID = stored.incident.ServiceID
	next.CreatedAt = stored.incident.CreatedAt
	stored.incident = next
	for _, update := range mutation.Updates {
		r.appendUpdateLocked(update)
	}
	r.mu.Unlock()

	return r.GetIncident(ctx, id)
}

func (r *Repository) appendUpdateLocked(update *domain.IncidentUpdate) {
	update.ID = uuid.NewString()
	r.seq++
	r.updates[update.IncidentID] = append(r.updates[update.IncidentID], storedUpdate{update: *update, seq: r.seq})
}

func (r *Repository) details(ctx context.Context, incident domain.Incident) (*domain.IncidentDetails, error) {
	details := &domain.IncidentDetails{Incident: incident}

	service, err := r.services.GetServiceByID(ctx, incident.ServiceID)
	if err != nil && !errors.Is(err, catalog.ErrServiceNotFound) {
		return nil, err
	}
	details.Service = service

	details.Reporter = r.summary(ctx, incident.ReporterID)
	if incident.AssigneeID != nil {
		details.Assignee = r.summary(ctx, *incident.AssigneeID)
	}

	r.mu.RLock()
	updates := slices.Clone(r.updates[incident.ID])
	r.mu.RUnlock()

	slices.SortFunc(updates, func(a, b storedUpdate) int {
		if c := b.update.CreatedAt.Compare(a.update.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	details.Updates = make([]*domain.IncidentUpdateDetails, 0, len(updates))
	for _, stored := range updates {
		details.Updates = append(details.Updates, &domain.IncidentUpdateDetails{
			IncidentUpdate: stored.update,
			User:           r.summary(ctx, stored.update.UserID),
		})
	}

	return details, nil
}

func (r *Repository) summary(ctx context.Context, userID string) *domain.UserSummary {
	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil
	}
	return user.Summary()
}
