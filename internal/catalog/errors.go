package catalog

import "errors"

// Catalog errors.
var (
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceNameExists  = errors.New("service with this name already exists")
	ErrInvalidServiceName = errors.New("name must be at least 2 characters")
	ErrInvalidDescription = errors.New("description must be at least 3 characters")
)
