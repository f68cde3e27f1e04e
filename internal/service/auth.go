package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/repository"
)

const MaxNameLength = 100

// AuthService signs users up and in, with credentials or through an OAuth
// provider, and issues the session token.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	providers map[string]auth.Provider
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	providers []auth.Provider,
	logger *slog.Logger,
) *AuthService {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		providers: byName,
		logger:    logger,
	}
}

// AuthResult is the signed-in user plus the token for the session cookie.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUp creates a credentials account. A taken email is a Conflict.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if apperror.IsDomain(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, gatewayErr(s.logger, "create user", err)
	}

	s.logger.Info("user signed up", slog.Int64("userID", user.ID))
	return s.session(user)
}

// SignIn checks an email and password. Every failure, including an unknown
// email or an OAuth-only account, is the same Unauthorized error so callers
// cannot probe which emails are registered.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return nil, invalid
		}
		return nil, gatewayErr(s.logger, "get user by email", err)
	}
	if !user.HasPassword() {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("verifying password", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		}
		return nil, invalid
	}

	s.logger.Info("user signed in", slog.Int64("userID", user.ID))
	return s.session(user)
}

// Provider looks up a configured OAuth provider by name.
func (s *AuthService) Provider(name string) (auth.Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// ProviderNames lists the configured OAuth providers, sorted.
func (s *AuthService) ProviderNames() []string {
	names := make([]string, 0, len(s.providers))
	for n := range s.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoginOAuth signs in the user linked to profile, or creates and links a new
// user on first sign-in. An email that already belongs to another account
// is a Conflict: accounts are never merged automatically.
func (s *AuthService) LoginOAuth(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil || profile.ID == "" {
		return nil, apperror.ValidationFailed("profile", "provider returned no account id")
	}

	user, err := s.users.GetUserByAccount(ctx, profile.Provider, profile.ID)
	if err == nil {
		s.logger.Info("user signed in via oauth",
			slog.String("provider", profile.Provider),
			slog.Int64("userID", user.ID),
		)
		return s.session(user)
	}
	if !isNotFound(err) {
		return nil, gatewayErr(s.logger, "get user by account", err)
	}

	email := strings.TrimSpace(profile.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "the provider did not share an email address")
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("an account with this email already exists; sign in with your password")
	} else if !isNotFound(err) {
		return nil, gatewayErr(s.logger, "get user by email", err)
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &model.User{Name: name, Email: email, Image: profile.Image}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, gatewayErr(s.logger, "create user", err)
	}
	err = s.users.LinkAccount(ctx, model.OAuthAccount{
		Provider:          profile.Provider,
		ProviderAccountID: profile.ID,
		UserID:            user.ID,
	})
	if err != nil {
		return nil, gatewayErr(s.logger, "link account", err)
	}

	s.logger.Info("user signed up via oauth",
		slog.String("provider", profile.Provider),
		slog.Int64("userID", user.ID),
	)
	return s.session(user)
}

// Token issues a fresh session token for user, e.g. after a profile change.
func (s *AuthService) Token(user *model.User) (string, error) {
	token, err := s.tokens.Generate(model.PrincipalOf(user))
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	return token, nil
}

func (s *AuthService) session(user *model.User) (*AuthResult, error) {
	token, err := s.Token(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return apperror.ValidationFailed("name", "name must be 100 characters or less")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "a valid email address is required")
	}
	return nil
}
