// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/incidents"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foreignKeyViolation = "23503"

// querier is an interface for database operations that both *pgxpool.Pool and pgx.Tx implement.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	i.id, i.title, i.description, i.status, i.severity,
	i.service_id, i.reporter_id, i.assignee_id, i.created_at, i.updated_at`

const detailsQuery = `
	SELECT ` + incidentColumns + `,
		s.id, s.name, s.description, s.created_at, s.updated_at,
		r.id, r.email, r.name, r.role,
		a.id, a.email, a.name, a.role
	FROM incidents i
	JOIN services s ON s.id = i.service_id
	JOIN users r ON r.id = i.reporter_id
	LEFT JOIN users a ON a.id = i.assignee_id
`

// CreateIncident creates a new incident in the database.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			title, description, status, severity, service_id, reporter_id, assignee_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if _, err := uuid.Parse(incident.ServiceID); err != nil {
		return incidents.ErrServiceNotFound
	}

	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Severity,
		incident.ServiceID,
		incident.ReporterID,
		incident.AssigneeID,
		incident.CreatedAt,
		incident.UpdatedAt,
	).Scan(&incident.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation && pgErr.ConstraintName == "incidents_service_id_fkey" {
			return incidents.ErrServiceNotFound
		}
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by ID.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return r.getIncident(ctx, r.db, id, false)
}

func (r *Repository) getIncident(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Incident, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, incidents.ErrIncidentNotFound
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var incident domain.Incident
	err := q.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&incident.Severity,
		&incident.ServiceID,
		&incident.ReporterID,
		&incident.AssigneeID,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	return &incident, nil
}

// GetIncidentDetails retrieves an incident with its service, people and updates.
func (r *Repository) GetIncidentDetails(ctx context.Context, id string) (*domain.IncidentDetails, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, incidents.ErrIncidentNotFound
	}

	rows, err := r.db.Query(ctx, detailsQuery+` WHERE i.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get incident details: %w", err)
	}

	list, err := r.scanDetails(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, incidents.ErrIncidentNotFound
	}

	return list[0], nil
}

// ListIncidents retrieves incidents with optional filters, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filter incidents.ListFilter) ([]*domain.IncidentDetails, error) {
	query := detailsQuery + ` WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND i.status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.ServiceNameContains != nil {
		query += fmt.Sprintf(" AND strpos(lower(s.name), lower($%d)) > 0", argNum)
		args = append(args, *filter.ServiceNameContains)
		argNum++
	}

	query += " ORDER BY i.created_at DESC, i.id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	return r.scanDetails(ctx, rows)
}

func (r *Repository) scanDetails(ctx context.Context, rows pgx.Rows) ([]*domain.IncidentDetails, error) {
	defer rows.Close()

	list := make([]*domain.IncidentDetails, 0)
	ids := make([]string, 0)
	byID := make(map[string]*domain.IncidentDetails)

	for rows.Next() {
		var (
			d        domain.IncidentDetails
			service  domain.Service
			reporter domain.UserSummary
			assignee struct {
				ID, Email, Name *string
				Role            *domain.Role
			}
		)
		err := rows.Scan(
			&d.ID,
			&d.Title,
			&d.Description,
			&d.Status,
			&d.Severity,
			&d.ServiceID,
			&d.ReporterID,
			&d.AssigneeID,
			&d.CreatedAt,
			&d.UpdatedAt,
			&service.ID,
			&service.Name,
			&service.Description,
			&service.CreatedAt,
			&service.UpdatedAt,
			&reporter.ID,
			&reporter.Email,
			&reporter.Name,
			&reporter.Role,
			&assignee.ID,
			&assignee.Email,
			&assignee.Name,
			&assignee.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}

		d.Service = &service
		d.Reporter = &reporter
		if assignee.ID != nil {
			d.Assignee = &domain.UserSummary{
				ID:    *assignee.ID,
				Email: *assignee.Email,
				Name:  *assignee.Name,
				Role:  *assignee.Role,
			}
		}
		d.Updates = make([]*domain.IncidentUpdateDetails, 0)

		list = append(list, &d)
		ids = append(ids, d.ID)
		byID[d.ID] = &d
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	if len(ids) == 0 {
		return list, nil
	}

	updates, err := r.listUpdates(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		if d, ok := byID[u.IncidentID]; ok {
			d.Updates = append(d.Updates, u)
		}
	}

	return list, nil
}

func (r *Repository) listUpdates(ctx context.Context, incidentIDs []string) ([]*domain.IncidentUpdateDetails, error) {
	query := `
		SELECT u.id, u.incident_id, u.user_id, u.kind, u.message, u.old_status, u.new_status, u.created_at,
			usr.id, usr.email, usr.name, usr.role
		FROM incident_updates u
		JOIN users usr ON usr.id = u.user_id
		WHERE u.incident_id = ANY($1::uuid[])
		ORDER BY u.created_at DESC, u.seq DESC
	`
	rows, err := r.db.Query(ctx, query, incidentIDs)
	if err != nil {
		return nil, fmt.Errorf("list incident updates: %w", err)
	}
	defer rows.Close()

	updates := make([]*domain.IncidentUpdateDetails, 0)
	for rows.Next() {
		var (
			u    domain.IncidentUpdateDetails
			user domain.UserSummary
		)
		err := rows.Scan(
			&u.ID,
			&u.IncidentID,
			&u.UserID,
			&u.Kind,
			&u.Message,
			&u.OldStatus,
			&u.NewStatus,
			&u.CreatedAt,
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident update: %w", err)
		}
		u.User = &user
		updates = append(updates, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident updates: %w", err)
	}

	return updates, nil
}

// CreateIncidentUpdate appends an update to an incident.
func (r *Repository) CreateIncidentUpdate(ctx context.Context, update *domain.IncidentUpdate) error {
	return r.createIncidentUpdate(ctx, r.db, update)
}

func (r *Repository) createIncidentUpdate(ctx context.Context, q querier, update *domain.IncidentUpdate) error {
	if _, err := uuid.Parse(update.IncidentID); err != nil {
		return incidents.ErrIncidentNotFound
	}

	query := `
		INSERT INTO incident_updates (incident_id, user_id, kind, message, old_status, new_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := q.QueryRow(ctx, query,
		update.IncidentID,
		update.UserID,
		update.Kind,
		update.Message,
		update.OldStatus,
		update.NewStatus,
		update.CreatedAt,
	).Scan(&update.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation && pgErr.ConstraintName == "incident_updates_incident_id_fkey" {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("create incident update: %w", err)
	}
	return nil
}

// MutateIncident locks the incident row for the duration of fn and writes the
// resulting state and audit updates in the same transaction.
func (r *Repository) MutateIncident(ctx context.Context, id string, fn incidents.MutateFunc) (*domain.Incident, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	current, err := r.getIncident(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	mutation, err := fn(current)
	if err != nil {
		return nil, err
	}
	if mutation == nil {
		return current, nil
	}

	next := mutation.Incident
	updateQuery := `
		UPDATE incidents
		SET title = $2, description = $3, status = $4, severity = $5, assignee_id = $6, updated_at = $7
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateQuery,
		id,
		next.Title,
		next.Description,
		next.Status,
		next.Severity,
		next.AssigneeID,
		next.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	for _, update := range mutation.Updates {
		if err := r.createIncidentUpdate(ctx, tx, update); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	stored := *next
	stored.ID = current.ID
	stored.ReporterID = current.ReporterID
	stored.ServiceID = current.ServiceID
	stored.CreatedAt = current.CreatedAt
	return &stored, nil
}
