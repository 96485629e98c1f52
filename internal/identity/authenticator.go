package identity

import (
	"context"
	"time"

	"github.com/bissquit/incidenthub/internal/domain"
)

// Token is a signed bearer credential issued at login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticator issues and verifies bearer credentials.
// VerifyToken checks signature and expiry only and returns the subject (user id).
type Authenticator interface {
	IssueToken(ctx context.Context, user *domain.User) (*Token, error)
	VerifyToken(ctx context.Context, token string) (subject string, err error)
}
