//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testPassword = "password123"

// randomEmail returns an address that no other test uses.
func randomEmail() string {
	return "user-" + uuid.NewString()[:8] + "@example.com"
}

// adminClient returns a client logged in as the bootstrap admin.
func adminClient(t *testing.T) *testutil.Client {
	t.Helper()
	client := newTestClient(t)
	client.LoginAs(t, adminEmail, adminPassword)
	return client
}

// createUser creates an account with role through the admin endpoint
// and returns a client logged in as it together with the user id.
func createUser(t *testing.T, role domain.Role) (*testutil.Client, string) {
	t.Helper()

	email := randomEmail()
	resp, err := adminClient(t).POST("/api/v1/users", map[string]string{
		"email":    email,
		"name":     "Test " + string(role),
		"password": testPassword,
		"role":     string(role),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := testutil.DecodeData[domain.User](t, resp)

	client := newTestClient(t)
	client.LoginAs(t, email, testPassword)
	return client, user.ID
}

// serviceID looks a seeded service up by its exact name.
func serviceID(t *testing.T, client *testutil.Client, name string) string {
	t.Helper()

	resp, err := client.GET("/api/v1/services")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, s := range testutil.DecodeData[[]domain.Service](t, resp) {
		if s.Name == name {
			return s.ID
		}
	}
	t.Fatalf("service %q not found", name)
	return ""
}

// createIncident files an incident as client and returns it.
func createIncident(t *testing.T, client *testutil.Client, serviceID, title string) domain.Incident {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents", map[string]string{
		"title":       title,
		"description": "Checkout page returns 502 for every request",
		"service_id":  serviceID,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return testutil.DecodeData[domain.Incident](t, resp)
}

// getIncident fetches the denormalized incident.
func getIncident(t *testing.T, client *testutil.Client, id string) domain.IncidentDetails {
	t.Helper()

	resp, err := client.GET("/api/v1/incidents/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return testutil.DecodeData[domain.IncidentDetails](t, resp)
}

func setStatus(t *testing.T, client *testutil.Client, id string, status domain.IncidentStatus) *http.Response {
	t.Helper()

	resp, err := client.PUT("/api/v1/incidents/"+id+"/status", map[string]string{"status": string(status)})
	require.NoError(t, err)
	return resp
}
