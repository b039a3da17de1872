package auth

import (
	"context"
	"errors"
	"net/http"
)

// Cookie names for the two token families. They are deliberately distinct:
// the realtime cookie is never read by the API middleware and the session
// cookie is never read by the websocket handshake.
const (
	SessionCookie  = "session_token"
	RealtimeCookie = "realtime_token"
)

// contextKey is an unexported type used for context keys in this package.
// Using a package-private type means only this package can read or write
// identity values in the context — a plain string key could be shadowed by
// any other package.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is the middleware that enforces authentication on protected
// routes. It is the ONLY path by which identity enters the handler layer.
//
// It reads the session JWT from the HttpOnly cookie, validates it, and
// stores the caller's Identity in the request context.
//
// STATUS CODE SPLIT:
//   - no cookie at all        → 401 Unauthorized (nothing was presented)
//   - cookie present, invalid → 403 Forbidden (bad/expired credential)
//
// The split lets clients distinguish "log in" from "re-login" without
// parsing error messages.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", "no credential presented")
				return
			}

			identity, err := tokens.ValidateSession(cookie.Value)
			if err != nil {
				msg := "invalid or expired credential"
				if errors.Is(err, ErrTokenExpired) {
					msg = "credential expired"
				}
				writeAuthError(w, http.StatusForbidden, "forbidden", msg)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated caller from the request
// context. Returns (Identity{}, false) if the request did not pass through
// RequireAuth.
//
// Usage in handlers:
//
//	identity, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // not authenticated — should not happen behind RequireAuth
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// writeAuthError emits the same JSON error shape the handler package uses.
// Duplicated here (rather than importing handler) to keep the dependency
// direction handler → auth, never the reverse.
func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + errType + `","message":"` + message + `"}`))
}
