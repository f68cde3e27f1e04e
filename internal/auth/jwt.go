// Package auth issues and verifies session tokens, hashes passwords and
// talks to external OAuth providers.
//
// AUTHENTICATION FLOWS:
//
// Credentials:
//  1. POST /api/auth/signup or /api/auth/signin with email and password
//  2. The password is checked against its bcrypt hash (PasswordService)
//  3. The server issues a JWT and sets it in the HttpOnly "token" cookie
//
// OAuth (Google, GitHub):
//  1. GET /auth/{provider}/login redirects to the provider with a state value
//  2. The provider calls back /auth/{provider}/callback with a code
//  3. Provider.Exchange turns the code into a Profile; the account is looked
//     up by (provider, account id), or created on first sign-in
//  4. The server issues a JWT in the same cookie as above
//
// Every later request goes through OptionalAuth or RequireAuth, which read
// the cookie, validate the JWT and put the Principal in the request context.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"42","name":"Ann","email":"ann@example.com","picture":"...","iss":"coursehub","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// The payload carries the whole principal, so ownership checks need no
// database lookup. A profile change reissues the cookie.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sakif/coursehub/internal/model"
)

const (
	issuer = "coursehub"

	// DefaultTokenTTL is used when NewTokenService gets a non-positive ttl.
	DefaultTokenTTL = 24 * time.Hour
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used both to sign and to verify tokens, so every
// server replica must be configured with the same COURSEHUB_AUTH_JWTSECRET.
// Changing the secret signs every user out.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid. Handlers use it as the cookie
// Max-Age so the cookie and the token expire together.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. The subject holds the user id in decimal.
type claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a token for p that expires after the service TTL.
func (s *TokenService) Generate(p model.Principal) (string, error) {
	return s.GenerateWithDuration(p, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(p model.Principal, d time.Duration) (string, error) {
	if p.ID <= 0 {
		return "", fmt.Errorf("auth: principal has no id")
	}
	now := time.Now()

	c := claims{
		Name:    p.Name,
		Email:   p.Email,
		Picture: p.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the principal it carries.
//
// The signing method is pinned to HS256 so a token with "alg":"none" or an
// asymmetric algorithm is rejected before the key is ever used.
func (s *TokenService) Validate(tokenStr string) (model.Principal, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, fmt.Errorf("auth: token expired")
		}
		return model.Principal{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Principal{}, fmt.Errorf("auth: invalid token claims")
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return model.Principal{}, fmt.Errorf("auth: token subject %q is not a user id", c.Subject)
	}

	return model.Principal{ID: id, Name: c.Name, Email: c.Email, Image: c.Picture}, nil
}
