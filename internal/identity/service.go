// Package identity manages users and maps verified credentials to actors.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bissquit/incidenthub/internal/authz"
	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Credential limits.
const (
	MinNameLength     = 2
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

// Service implements identity business logic.
type Service struct {
	repo       Repository
	auth       Authenticator
	authorizer authz.Authorizer
	validate   *validator.Validate
	now        func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator, authorizer authz.Authorizer) *Service {
	return &Service{
		repo:       repo,
		auth:       auth,
		authorizer: authorizer,
		validate:   validator.New(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput holds data for self-registration.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// CreateUserInput holds data for an admin-provisioned account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// Register creates a REPORTER account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, CreateUserInput{
		Email:    input.Email,
		Name:     input.Name,
		Password: input.Password,
		Role:     domain.RoleReporter,
	})
}

// CreateUser provisions an account with an explicit role. ADMIN only.
func (s *Service) CreateUser(ctx context.Context, actor domain.Actor, input CreateUserInput) (*domain.User, error) {
	if !s.authorizer.CanPerform(actor.Role, authz.ActionUserCreate) {
		return nil, authz.ErrForbidden
	}
	return s.createUser(ctx, input)
}

func (s *Service) createUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, domain.NewValidationError("email", ErrInvalidEmail)
	}

	name := strings.TrimSpace(input.Name)
	if utf8.RuneCountInString(name) < MinNameLength {
		return nil, domain.NewValidationError("name", ErrInvalidName)
	}

	if len(input.Password) < MinPasswordLength || len(input.Password) > MaxPasswordLength {
		return nil, domain.NewValidationError("password", ErrInvalidPassword)
	}

	if !input.Role.IsValid() {
		return nil, domain.NewValidationError("role", ErrInvalidRole)
	}

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login checks credentials and issues a bearer token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, *Token, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.auth.IssueToken(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

// Authenticate maps a verified subject to the current actor.
// The role is read from the stored user on every call.
func (s *Service) Authenticate(ctx context.Context, subject string) (domain.Actor, error) {
	user, err := s.repo.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.Actor{}, ErrUnknownSubject
		}
		return domain.Actor{}, fmt.Errorf("authenticate: %w", err)
	}

	return domain.Actor{UserID: user.ID, Role: user.Role}, nil
}

// ValidateToken verifies a bearer token and resolves it to a user id and role.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, domain.Role, error) {
	subject, err := s.auth.VerifyToken(ctx, token)
	if err != nil {
		return "", "", err
	}

	actor, err := s.Authenticate(ctx, subject)
	if err != nil {
		return "", "", err
	}

	return actor.UserID, actor.Role, nil
}

// GetUserByID returns a user by id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// EnsureAdmin creates an ADMIN account with the given credentials unless the
// email is already registered. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, fmt.Errorf("check admin: %w", err)
	}

	_, err = s.createUser(ctx, CreateUserInput{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
