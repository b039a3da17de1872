// Package handler contains the HTTP layer: request parsing, response
// writing, and cookie management. Business rules live in internal/service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/model"
	"github.com/sakif/contact-manager/internal/service"
)

// AuthHandler manages registration, login/logout, profile lookup, and
// realtime-token issuance.
//
// COOKIE STRATEGY:
// Both tokens travel in HttpOnly cookies — JavaScript can never read them,
// which takes XSS token theft off the table. The response body carries the
// user record but NEVER the token itself.
type AuthHandler struct {
	authService *service.AuthService
	sessionTTL  time.Duration
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. sessionTTL controls the session
// cookie's MaxAge and should match the token TTL so both expire together.
func NewAuthHandler(authService *service.AuthService, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// userResponse wraps a user record for auth endpoints.
type userResponse struct {
	User *model.User `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// HandleRegister creates a new account and logs it in.
//
// HTTP: POST /api/auth/register
// Body: {"email": "...", "password": "...", "name": "..."}
// 201 on success with the session cookie set; 409 if the email is taken.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, userResponse{User: result.User})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and sets the session cookie.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, userResponse{User: result.User})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Since sessions are stateless JWTs, "logout" means deleting the client-side
// cookie. The token stays technically valid until it expires, but without
// the cookie the browser can't send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated caller's profile.
//
// HTTP: GET /api/auth/me
// Auth: required (RequireAuth sets the identity in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Should never happen behind RequireAuth, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "no credential presented",
		})
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleRealtimeToken mints a realtime credential and sets it as a
// short-lived cookie for the websocket handshake to pick up.
//
// HTTP: POST /api/auth/realtime-token
// Auth: required — this is the only way to obtain a realtime credential, so
// the realtime channel inherits the Auth Gate's guarantees.
//
// A client whose handshake was rejected for an expired token calls this
// again and retries; each call mints a fresh nonce.
func (h *AuthHandler) HandleRealtimeToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "no credential presented",
		})
		return
	}

	rt, err := h.authService.IssueRealtimeToken(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.RealtimeCookie,
		Value:    rt.Token,
		Path:     "/",
		MaxAge:   int(rt.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"expiresAt": rt.ExpiresAt.UTC(),
	})
}

// setSessionCookie stores the session JWT in the HttpOnly session cookie.
// Secure should be enabled in production (HTTPS only); left off for local
// development.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable in production (requires HTTPS)
	})
}
