// Package authz decides which roles may perform which actions.
package authz

import (
	"fmt"
	"strings"

	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

// Action is an operation subject to the role policy.
type Action string

// Actions.
const (
	ActionServiceCreate      Action = "service:create"
	ActionServiceRead        Action = "service:read"
	ActionIncidentRead       Action = "incident:read"
	ActionIncidentCreate     Action = "incident:create"
	ActionIncidentTransition Action = "incident:transition"
	ActionIncidentComment    Action = "incident:comment"
	ActionUserCreate         Action = "user:create"
)

// Actions lists every action known to the policy.
var Actions = []Action{
	ActionServiceCreate,
	ActionServiceRead,
	ActionIncidentRead,
	ActionIncidentCreate,
	ActionIncidentTransition,
	ActionIncidentComment,
	ActionUserCreate,
}

// Roles lists every role known to the policy.
var Roles = []domain.Role{domain.RoleReporter, domain.RoleSupport, domain.RoleAdmin}

const policyModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

const policyRules = `
p, REPORTER, service:read
p, REPORTER, incident:read
p, REPORTER, incident:create
p, REPORTER, incident:comment
p, SUPPORT, service:read
p, SUPPORT, incident:read
p, SUPPORT, incident:create
p, SUPPORT, incident:transition
p, SUPPORT, incident:comment
p, ADMIN, service:create
p, ADMIN, service:read
p, ADMIN, incident:read
p, ADMIN, incident:create
p, ADMIN, incident:transition
p, ADMIN, incident:comment
p, ADMIN, user:create
`

// Policy is the fixed role/action table.
// The casbin enforcer is evaluated once for every role and action at
// construction, so lookups afterwards are plain map reads.
type Policy struct {
	allowed map[domain.Role]map[Action]bool
}

// NewPolicy compiles the built-in policy.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("parse policy model: %w", err)
	}

	adapter := stringadapter.NewAdapter(strings.TrimSpace(policyRules))

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	allowed := make(map[domain.Role]map[Action]bool, len(Roles))
	for _, role := range Roles {
		allowed[role] = make(map[Action]bool, len(Actions))
		for _, action := range Actions {
			ok, err := enforcer.Enforce(string(role), string(action))
			if err != nil {
				return nil, fmt.Errorf("evaluate %s/%s: %w", role, action, err)
			}
			allowed[role][action] = ok
		}
	}

	return &Policy{allowed: allowed}, nil
}

// MustNewPolicy is like NewPolicy but panics on error.
func MustNewPolicy() *Policy {
	p, err := NewPolicy()
	if err != nil {
		panic(err)
	}
	return p
}

// CanPerform reports whether role may perform action.
// Unknown roles and actions are denied.
func (p *Policy) CanPerform(role domain.Role, action Action) bool {
	return p.allowed[role][action]
}
