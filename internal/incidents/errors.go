package incidents

import "errors"

// Lifecycle errors.
var (
	ErrIncidentNotFound   = errors.New("incident not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrInvalidTitle       = errors.New("title must be at least 3 characters")
	ErrInvalidDescription = errors.New("description must be at least 5 characters")
	ErrInvalidSeverity    = errors.New("severity must be one of LOW, MEDIUM, HIGH, CRITICAL")
	ErrInvalidStatus      = errors.New("status must be one of OPEN, INVESTIGATING, RESOLVED")
	ErrInvalidMessage     = errors.New("message must be at least 2 characters")
)
