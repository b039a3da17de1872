// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses, sets cookies
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept primitives and return domain models and apperror values —
// they have zero knowledge of HTTP. Handlers translate in both directions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/contact-manager/internal/apperror"
	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/model"
	"github.com/sakif/contact-manager/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 100
)

// AuthService handles registration, login, and token issuance.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RealtimeToken is a freshly minted realtime credential. Each issuance gets
// a new nonce — presenting this token at the handshake supersedes any
// registration made under a previously issued nonce.
type RealtimeToken struct {
	Token     string
	Nonce     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// Register creates a new account and logs it in.
//
// The email is stored exactly as given (case-sensitive); uniqueness is
// enforced by the repository, which reports a duplicate as ErrConflict.
// The plaintext password never leaves this method — only the bcrypt hash is
// handed to the repository.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a session token.
//
// An unknown email and a wrong password produce the SAME error, so a caller
// can't probe which addresses are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid credentials")
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthenticated("invalid credentials")
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/auth/me handler after the middleware validates the session token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// IssueRealtimeToken mints a realtime credential for the authenticated
// caller. The nonce is a fresh xid per call, identifying one logical
// realtime session.
func (s *AuthService) IssueRealtimeToken(ctx context.Context, identity auth.Identity) (*RealtimeToken, error) {
	// Confirm the account still exists — a deleted user keeps a valid
	// session token until it expires, but must not open new channels.
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	nonce := xid.New().String()
	token, err := s.tokens.IssueRealtime(user, nonce)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing realtime token for user %s: %w", user.ID, err)
	}

	s.logger.Info("realtime token issued",
		slog.String("userID", user.ID),
		slog.String("nonce", nonce),
	)

	ttl := s.tokens.RealtimeTTL()
	return &RealtimeToken{
		Token:     token,
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(ttl),
		TTL:       ttl,
	}, nil
}
