// Package auth provides JWT token issuance/validation, password hashing, and
// the authentication middleware for the contact manager API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers or logs in with email + password
// 2. Server verifies the bcrypt hash, issues a session JWT, stores it in an
//    HttpOnly cookie
// 3. On subsequent API calls, middleware reads the cookie, validates the JWT,
//    and sets the caller's identity in the request context
// 4. To open the realtime channel, the client first calls the token-issuance
//    endpoint (behind the same middleware), which sets a SECOND, short-lived
//    JWT cookie, then dials the websocket endpoint
//
// WHY TWO TOKEN FAMILIES?
// The session token and the realtime token are signed with DIFFERENT secrets
// and carry a "kind" claim. A token minted for ordinary API calls can never
// authorize a websocket handshake, and a realtime token can never be replayed
// against the REST API. The realtime token is also very short-lived: it only
// needs to survive the connection-setup window, not a browsing session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/contact-manager/internal/model"
)

// Sentinel errors returned by token validation. Callers distinguish them with
// errors.Is so the realtime handshake can report WHY it rejected a token
// (missing vs invalid/expired vs wrong kind) and the client can pick the
// right recovery path.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrWrongKind    = errors.New("auth: wrong token kind")
)

// Token kinds stored in the "kind" claim.
const (
	KindSession  = "session"
	KindRealtime = "realtime"
)

const issuer = "contact-manager"

// Identity is the authenticated caller extracted from a session token.
type Identity struct {
	UserID string
	Email  string
}

// RealtimeIdentity is the result of validating a realtime token. The nonce
// identifies one logical realtime session — reissuing a token mints a fresh
// nonce, which supersedes any registration made under the previous one.
type RealtimeIdentity struct {
	UserID string
	Email  string
	Nonce  string
}

// TokenService issues and validates both token families.
//
// The two HMAC secrets MUST differ in any real deployment; the kind claim is
// checked as well, so the families stay non-interchangeable even if an
// operator misconfigures identical secrets.
type TokenService struct {
	sessionSecret  []byte
	realtimeSecret []byte
	sessionTTL     time.Duration
	realtimeTTL    time.Duration
}

// NewTokenService creates a TokenService. Each secret should be at least
// 32 bytes of random data in production, e.g. $(openssl rand -hex 32).
func NewTokenService(sessionSecret, realtimeSecret string, sessionTTL, realtimeTTL time.Duration) (*TokenService, error) {
	if len(sessionSecret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if len(realtimeSecret) < 16 {
		return nil, errors.New("auth: realtime secret must be at least 16 characters")
	}
	if sessionTTL <= 0 || realtimeTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}
	return &TokenService{
		sessionSecret:  []byte(sessionSecret),
		realtimeSecret: []byte(realtimeSecret),
		sessionTTL:     sessionTTL,
		realtimeTTL:    realtimeTTL,
	}, nil
}

// SessionTTL returns the configured session token lifetime. The handler
// uses it for the cookie MaxAge so cookie and token expire together.
func (s *TokenService) SessionTTL() time.Duration { return s.sessionTTL }

// RealtimeTTL returns the configured realtime token lifetime.
func (s *TokenService) RealtimeTTL() time.Duration { return s.realtimeTTL }

// claims is the JWT payload for both token families.
//
// We use "sub" (Subject) for the internal user ID — the standard JWT claim
// for identifying who the token belongs to. Email rides along so handlers
// don't need a DB lookup just to know who is calling. Kind discriminates the
// two families; Nonce is only set on realtime tokens.
type claims struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
	Nonce string `json:"nonce,omitempty"`
	jwt.RegisteredClaims
}

// IssueSession creates and signs a session token for the given user.
// Pure computation — no side effects, no storage.
func (s *TokenService) IssueSession(user *model.User) (string, error) {
	return s.issue(user, KindSession, "", s.sessionTTL, s.sessionSecret)
}

// IssueRealtime creates and signs a realtime token bound to the given nonce.
// The token's only purpose is to authorize one websocket handshake, so its
// lifetime is on the order of the connection-setup window.
func (s *TokenService) IssueRealtime(user *model.User, nonce string) (string, error) {
	if nonce == "" {
		return "", errors.New("auth: realtime token requires a nonce")
	}
	return s.issue(user, KindRealtime, nonce, s.realtimeTTL, s.realtimeSecret)
}

func (s *TokenService) issue(user *model.User, kind, nonce string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()

	c := claims{
		Email: user.Email,
		Kind:  kind,
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", kind, err)
	}

	return signed, nil
}

// ValidateSession parses and verifies a session token, returning the identity
// it encodes. Fails with ErrTokenExpired / ErrTokenInvalid; a realtime token
// presented here fails (different secret, and the kind claim is checked too).
func (s *TokenService) ValidateSession(tokenStr string) (Identity, error) {
	c, err := s.validate(tokenStr, s.sessionSecret)
	if err != nil {
		return Identity{}, err
	}
	if c.Kind != KindSession {
		return Identity{}, fmt.Errorf("%w: got %q, want %q", ErrWrongKind, c.Kind, KindSession)
	}
	return Identity{UserID: c.Subject, Email: c.Email}, nil
}

// ValidateRealtime parses and verifies a realtime token. It fails with
// ErrWrongKind if the decoded kind isn't "realtime" — this guards against a
// session token being replayed as a handshake credential even if the two
// secrets were (mis)configured identically.
func (s *TokenService) ValidateRealtime(tokenStr string) (RealtimeIdentity, error) {
	c, err := s.validate(tokenStr, s.realtimeSecret)
	if err != nil {
		return RealtimeIdentity{}, err
	}
	if c.Kind != KindRealtime {
		return RealtimeIdentity{}, fmt.Errorf("%w: got %q, want %q", ErrWrongKind, c.Kind, KindRealtime)
	}
	if c.Nonce == "" {
		return RealtimeIdentity{}, fmt.Errorf("%w: realtime token has no nonce", ErrTokenInvalid)
	}
	return RealtimeIdentity{UserID: c.Subject, Email: c.Email, Nonce: c.Nonce}, nil
}

// validate runs signature + registered-claim checks shared by both families.
//
// Passing jwt.WithValidMethods pins the algorithm to HS256, which prevents
// algorithm-confusion attacks (e.g. a token claiming alg "none").
func (s *TokenService) validate(tokenStr string, secret []byte) (*claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: malformed claims", ErrTokenInvalid)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrTokenInvalid)
	}

	return c, nil
}
