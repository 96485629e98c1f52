// Package jwt implements identity.Authenticator with HS256-signed JWTs.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/identity"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "incidenthub"

// Config contains JWT settings.
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
}

// Claims carried by an access token. Role is informational only; the
// authoritative role is looked up from the user on every request.
type Claims struct {
	Role domain.Role `json:"role"`
	gojwt.RegisteredClaims
}

// Authenticator issues and verifies access tokens.
type Authenticator struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt secret key is required")
	}
	if cfg.AccessTokenDuration <= 0 {
		return nil, errors.New("jwt access token duration must be positive")
	}

	return &Authenticator{
		secret:   []byte(cfg.SecretKey),
		duration: cfg.AccessTokenDuration,
		now:      time.Now,
	}, nil
}

// IssueToken signs an access token whose subject is the user id.
func (a *Authenticator) IssueToken(_ context.Context, user *domain.User) (*identity.Token, error) {
	now := a.now().UTC()
	expiresAt := now.Add(a.duration)

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, err
	}

	return &identity.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// VerifyToken checks signature, issuer and expiry and returns the subject.
func (a *Authenticator) VerifyToken(_ context.Context, token string) (string, error) {
	parsed, err := gojwt.ParseWithClaims(token, &Claims{}, func(*gojwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", identity.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", identity.ErrInvalidToken
	}

	return claims.Subject, nil
}
