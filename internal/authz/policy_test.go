package authz

import (
	"testing"

	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Table(t *testing.T) {
	policy, err := NewPolicy()
	require.NoError(t, err)

	tests := []struct {
		action   Action
		reporter bool
		support  bool
		admin    bool
	}{
		{ActionServiceCreate, false, false, true},
		{ActionServiceRead, true, true, true},
		{ActionIncidentRead, true, true, true},
		{ActionIncidentCreate, true, true, true},
		{ActionIncidentTransition, false, true, true},
		{ActionIncidentComment, true, true, true},
		{ActionUserCreate, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.reporter, policy.CanPerform(domain.RoleReporter, tt.action), "REPORTER")
			assert.Equal(t, tt.support, policy.CanPerform(domain.RoleSupport, tt.action), "SUPPORT")
			assert.Equal(t, tt.admin, policy.CanPerform(domain.RoleAdmin, tt.action), "ADMIN")
		})
	}
}

func TestPolicy_TransitionOnlyForStaff(t *testing.T) {
	policy := MustNewPolicy()

	for _, role := range Roles {
		want := role == domain.RoleSupport || role == domain.RoleAdmin
		assert.Equal(t, want, policy.CanPerform(role, ActionIncidentTransition), string(role))
	}
}

func TestPolicy_UnknownInputsDenied(t *testing.T) {
	policy := MustNewPolicy()

	assert.False(t, policy.CanPerform(domain.Role("GUEST"), ActionIncidentRead))
	assert.False(t, policy.CanPerform(domain.Role(""), ActionIncidentCreate))
	assert.False(t, policy.CanPerform(domain.RoleAdmin, Action("incident:delete")))
}

func TestPolicy_EveryPairDefined(t *testing.T) {
	policy := MustNewPolicy()

	for _, role := range Roles {
		require.Len(t, policy.allowed[role], len(Actions), string(role))
	}
}
