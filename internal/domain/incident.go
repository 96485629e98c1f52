package domain

import (
	"fmt"
	"time"
)

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusOpen          IncidentStatus = "OPEN"
	IncidentStatusInvestigating IncidentStatus = "INVESTIGATING"
	IncidentStatusResolved      IncidentStatus = "RESOLVED"
)

// IsValid checks if the status is one of the three known statuses.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInvestigating, IncidentStatusResolved:
		return true
	}
	return false
}

// IncidentSeverity represents how badly a service is affected.
type IncidentSeverity string

// Severity levels.
const (
	IncidentSeverityLow      IncidentSeverity = "LOW"
	IncidentSeverityMedium   IncidentSeverity = "MEDIUM"
	IncidentSeverityHigh     IncidentSeverity = "HIGH"
	IncidentSeverityCritical IncidentSeverity = "CRITICAL"
)

// DefaultIncidentSeverity is applied when a reporter omits the severity.
const DefaultIncidentSeverity = IncidentSeverityMedium

// IsValid checks if the severity is valid.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case IncidentSeverityLow, IncidentSeverityMedium, IncidentSeverityHigh, IncidentSeverityCritical:
		return true
	}
	return false
}

// Incident is an operational problem reported against a service.
type Incident struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      IncidentStatus   `json:"status"`
	Severity    IncidentSeverity `json:"severity"`
	ServiceID   string           `json:"service_id"`
	ReporterID  string           `json:"reporter_id"`
	AssigneeID  *string          `json:"assignee_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// UpdateKind distinguishes free-form comments from synthetic audit entries.
type UpdateKind string

// Update kinds.
const (
	UpdateKindComment      UpdateKind = "comment"
	UpdateKindStatusChange UpdateKind = "status_change"
)

// IncidentUpdate is an immutable entry of an incident's audit trail.
type IncidentUpdate struct {
	ID         string          `json:"id"`
	IncidentID string          `json:"incident_id"`
	UserID     string          `json:"user_id"`
	Kind       UpdateKind      `json:"kind"`
	Message    string          `json:"message"`
	OldStatus  *IncidentStatus `json:"old_status,omitempty"`
	NewStatus  *IncidentStatus `json:"new_status,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewStatusChangeUpdate builds the audit entry recorded for a transition.
func NewStatusChangeUpdate(incidentID, actorID string, from, to IncidentStatus) *IncidentUpdate {
	oldStatus, newStatus := from, to
	return &IncidentUpdate{
		IncidentID: incidentID,
		UserID:     actorID,
		Kind:       UpdateKindStatusChange,
		Message:    fmt.Sprintf("status changed from %s to %s by %s", from, to, actorID),
		OldStatus:  &oldStatus,
		NewStatus:  &newStatus,
	}
}

// IncidentUpdateDetails is an update joined with its author.
type IncidentUpdateDetails struct {
	IncidentUpdate
	User *UserSummary `json:"user"`
}

// IncidentDetails is the denormalized read model returned by list and get.
type IncidentDetails struct {
	Incident
	Service  *Service                 `json:"service"`
	Reporter *UserSummary             `json:"reporter"`
	Assignee *UserSummary             `json:"assignee"`
	Updates  []*IncidentUpdateDetails `json:"updates"`
}
