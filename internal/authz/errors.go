package authz

import (
	"errors"

	"github.com/bissquit/incidenthub/internal/domain"
)

// ErrForbidden is returned when the policy denies an action to the actor's role.
var ErrForbidden = errors.New("forbidden")

// Authorizer decides whether a role may perform an action.
type Authorizer interface {
	CanPerform(role domain.Role, action Action) bool
}
