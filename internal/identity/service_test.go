package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bissquit/incidenthub/internal/authz"
	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users          map[string]*domain.User
	createUserErr  error
	getUserByIDErr error
	getUserByEmail func(email string) (*domain.User, error)
	nextID         int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	m.nextID++
	user.ID = "user-" + string(rune('0'+m.nextID))
	m.users[user.Email] = user
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if m.getUserByIDErr != nil {
		return nil, m.getUserByIDErr
	}
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.getUserByEmail != nil {
		return m.getUserByEmail(email)
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

// mockAuthenticator implements Authenticator for testing.
// Tokens are "token:<user id>"; anything else is rejected.
type mockAuthenticator struct{}

func (m *mockAuthenticator) IssueToken(_ context.Context, user *domain.User) (*Token, error) {
	return &Token{AccessToken: "token:" + user.ID, TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthenticator) VerifyToken(_ context.Context, token string) (string, error) {
	subject, ok := strings.CutPrefix(token, "token:")
	if !ok {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, &mockAuthenticator{}, authz.MustNewPolicy()), repo
}

func TestRegister_CreatesReporter(t *testing.T) {
	service, repo := newTestService()

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "  Alice@Example.com ",
		Name:     "Alice",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.RoleReporter, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
	assert.Contains(t, repo.users, "alice@example.com")
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		input     RegisterInput
		wantErr   error
		wantField string
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Name: "Alice", Password: "password"}, ErrInvalidEmail, "email"},
		{"short name", RegisterInput{Email: "a@example.com", Name: " A ", Password: "password"}, ErrInvalidName, "name"},
		{"short password", RegisterInput{Email: "a@example.com", Name: "Alice", Password: "12345"}, ErrInvalidPassword, "password"},
		{"long password", RegisterInput{Email: "a@example.com", Name: "Alice", Password: strings.Repeat("x", 73)}, ErrInvalidPassword, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo := newTestService()

			_, err := service.Register(context.Background(), tt.input)

			require.ErrorIs(t, err, tt.wantErr)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Empty(t, repo.users)
		})
	}
}

func TestRegister_EmailAlreadyExists(t *testing.T) {
	service, repo := newTestService()
	repo.users["existing@example.com"] = &domain.User{Email: "existing@example.com"}

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "existing@example.com",
		Name:     "Alice",
		Password: "password123",
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_CreateUserFails(t *testing.T) {
	service, repo := newTestService()
	repo.createUserErr = errors.New("database error")

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		Name:     "Alice",
		Password: "password123",
	})

	assert.Nil(t, user)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	service, _ := newTestService()
	registered, err := service.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "password123",
	})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		user, token, err := service.Login(context.Background(), LoginInput{Email: "ALICE@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.Equal(t, "token:"+registered.ID, token.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := service.Login(context.Background(), LoginInput{Email: "bob@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("repository failure", func(t *testing.T) {
		service, repo := newTestService()
		repo.getUserByEmail = func(string) (*domain.User, error) { return nil, errors.New("db down") }

		_, _, err := service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "password123"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthenticate(t *testing.T) {
	service, repo := newTestService()
	repo.users["s@example.com"] = &domain.User{ID: "support-1", Email: "s@example.com", Role: domain.RoleSupport}

	actor, err := service.Authenticate(context.Background(), "support-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "support-1", Role: domain.RoleSupport}, actor)

	_, err = service.Authenticate(context.Background(), "deleted-user")
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestValidateToken_RoleComesFromStoredUser(t *testing.T) {
	service, repo := newTestService()
	user := &domain.User{ID: "user-9", Email: "u@example.com", Role: domain.RoleReporter}
	repo.users[user.Email] = user

	_, role, err := service.ValidateToken(context.Background(), "token:user-9")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReporter, role)

	user.Role = domain.RoleSupport
	userID, role, err := service.ValidateToken(context.Background(), "token:user-9")
	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)
	assert.Equal(t, domain.RoleSupport, role)
}

func TestValidateToken_Errors(t *testing.T) {
	service, _ := newTestService()

	_, _, err := service.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, _, err = service.ValidateToken(context.Background(), "token:missing")
	assert.ErrorIs(t, err, ErrUnknownSubject)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestValidateToken_StoreFailureIsNotUnauthenticated(t *testing.T) {
	service, repo := newTestService()
	repo.getUserByIDErr = errors.New("connection refused")

	_, _, err := service.ValidateToken(context.Background(), "token:user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	input := CreateUserInput{Email: "s@example.com", Name: "Sam", Password: "password123", Role: domain.RoleSupport}

	for _, role := range []domain.Role{domain.RoleReporter, domain.RoleSupport} {
		t.Run(string(role), func(t *testing.T) {
			service, repo := newTestService()
			_, err := service.CreateUser(context.Background(), domain.Actor{UserID: "x", Role: role}, input)
			assert.ErrorIs(t, err, authz.ErrForbidden)
			assert.Empty(t, repo.users)
		})
	}

	service, _ := newTestService()
	user, err := service.CreateUser(context.Background(), domain.Actor{UserID: "admin", Role: domain.RoleAdmin}, input)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupport, user.Role)

	_, err = service.CreateUser(context.Background(), domain.Actor{UserID: "admin", Role: domain.RoleAdmin},
		CreateUserInput{Email: "x@example.com", Name: "Xavier", Password: "password123", Role: "ROOT"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestEnsureAdmin(t *testing.T) {
	service, repo := newTestService()

	created, err := service.EnsureAdmin(context.Background(), "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, repo.users["admin@example.com"].Role)

	created, err = service.EnsureAdmin(context.Background(), "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.users, 1)
}

func newTestRouter(service *Service, actor *domain.Actor) http.Handler {
	h := NewHandler(service)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if actor != nil {
					req = req.WithContext(httputil.WithActor(req.Context(), *actor))
				}
				next.ServeHTTP(w, req)
			})
		})
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	service, _ := newTestService()
	h := newTestRouter(service, nil)

	rec := postJSON(h, "/auth/register", `{"email":"alice@example.com","name":"Alice","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = postJSON(h, "/auth/register", `{"email":"alice@example.com","name":"Alice","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(h, "/auth/register", `{"email":"bob@example.com","name":"Bob","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(h, "/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Token)
	assert.Equal(t, "Bearer", body.Data.Token.TokenType)
	assert.Equal(t, "alice@example.com", body.Data.User.Email)

	rec = postJSON(h, "/auth/login", `{"email":"alice@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Me(t *testing.T) {
	service, repo := newTestService()
	repo.users["a@example.com"] = &domain.User{ID: "user-1", Email: "a@example.com", Name: "Alice", Role: domain.RoleReporter}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	newTestRouter(service, &domain.Actor{UserID: "user-1", Role: domain.RoleReporter}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@example.com"`)

	rec = httptest.NewRecorder()
	newTestRouter(service, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_CreateUser(t *testing.T) {
	body := `{"email":"s@example.com","name":"Sam","password":"password123","role":"SUPPORT"}`

	service, _ := newTestService()
	rec := postJSON(newTestRouter(service, &domain.Actor{UserID: "r", Role: domain.RoleReporter}), "/users", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postJSON(newTestRouter(service, &domain.Actor{UserID: "a", Role: domain.RoleAdmin}), "/users", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"SUPPORT"`)
}
