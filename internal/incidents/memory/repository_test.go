package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/incidenthub/internal/catalog"
	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/incidents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticServices map[string]*domain.Service

func (s staticServices) GetServiceByID(_ context.Context, id string) (*domain.Service, error) {
	if svc, ok := s[id]; ok {
		return svc, nil
	}
	return nil, catalog.ErrServiceNotFound
}

type staticUsers map[string]*domain.User

func (u staticUsers) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, errors.New("user not found")
}

func newTestRepository() *Repository {
	return NewRepository(
		staticServices{"svc-1": {ID: "svc-1", Name: "Payments API"}},
		staticUsers{"u-1": {ID: "u-1", Email: "a@example.com", Name: "Alice", Role: domain.RoleSupport}},
	)
}

func newIncident() *domain.Incident {
	now := time.Now().UTC()
	return &domain.Incident{
		Title:       "Payments down",
		Description: "All card payments rejected",
		Status:      domain.IncidentStatusOpen,
		Severity:    domain.IncidentSeverityHigh,
		ServiceID:   "svc-1",
		ReporterID:  "u-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateIncident_UnknownService(t *testing.T) {
	repo := newTestRepository()
	incident := newIncident()
	incident.ServiceID = "svc-missing"

	err := repo.CreateIncident(context.Background(), incident)

	require.ErrorIs(t, err, incidents.ErrServiceNotFound)
	assert.Empty(t, incident.ID)
}

func TestGetIncident_ReturnsCopy(t *testing.T) {
	repo := newTestRepository()
	incident := newIncident()
	require.NoError(t, repo.CreateIncident(context.Background(), incident))

	got, err := repo.GetIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	got.Status = domain.IncidentStatusResolved

	again, err := repo.GetIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusOpen, again.Status)
}

func TestMutateIncident_PreservesIdentity(t *testing.T) {
	repo := newTestRepository()
	incident := newIncident()
	require.NoError(t, repo.CreateIncident(context.Background(), incident))

	updated, err := repo.MutateIncident(context.Background(), incident.ID, func(current *domain.Incident) (*incidents.Mutation, error) {
		next := *current
		next.ID = "other"
		next.ReporterID = "someone-else"
		next.ServiceID = "svc-elsewhere"
		next.CreatedAt = time.Time{}
		next.Status = domain.IncidentStatusInvestigating
		return &incidents.Mutation{
			Incident: &next,
			Updates:  []*domain.IncidentUpdate{domain.NewStatusChangeUpdate(current.ID, "u-1", current.Status, next.Status)},
		}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, incident.ID, updated.ID)
	assert.Equal(t, "u-1", updated.ReporterID)
	assert.Equal(t, incident.ServiceID, updated.ServiceID)
	assert.Equal(t, incident.CreatedAt, updated.CreatedAt)
	assert.Equal(t, domain.IncidentStatusInvestigating, updated.Status)

	details, err := repo.GetIncidentDetails(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Len(t, details.Updates, 1)
	assert.NotEmpty(t, details.Updates[0].ID)
	require.NotNil(t, details.Updates[0].User)
	assert.Equal(t, "Alice", details.Updates[0].User.Name)
}

func TestMutateIncident_ErrorLeavesRecordUntouched(t *testing.T) {
	repo := newTestRepository()
	incident := newIncident()
	require.NoError(t, repo.CreateIncident(context.Background(), incident))

	wantErr := errors.New("boom")
	_, err := repo.MutateIncident(context.Background(), incident.ID, func(*domain.Incident) (*incidents.Mutation, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	got, err := repo.GetIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusOpen, got.Status)
}

func TestMutateIncident_NotFound(t *testing.T) {
	repo := newTestRepository()

	_, err := repo.MutateIncident(context.Background(), "missing", func(*domain.Incident) (*incidents.Mutation, error) {
		t.Fatal("mutate func must not run")
		return nil, nil
	})

	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func TestMutateIncident_SerializesWriters(t *testing.T) {
	repo := newTestRepository()
	incident := newIncident()
	require.NoError(t, repo.CreateIncident(context.Background(), incident))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MutateIncident(context.Background(), incident.ID, func(current *domain.Incident) (*incidents.Mutation, error) {
				next := *current
				next.Title += "!"
				return &incidents.Mutation{Incident: &next}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Len(t, got.Title, len(incident.Title)+workers)
}

func TestCreateIncidentUpdate_UnknownIncident(t *testing.T) {
	repo := newTestRepository()

	err := repo.CreateIncidentUpdate(context.Background(), &domain.IncidentUpdate{IncidentID: "missing"})

	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}
