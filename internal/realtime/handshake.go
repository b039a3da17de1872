package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sakif/contact-manager/internal/auth"
)

// Handshake rejection reasons, reported to the client as machine-readable
// error codes BEFORE the websocket upgrade. The client's recovery path
// depends on which one it gets:
//
//	token_missing    → request a fresh realtime token, then retry
//	token_invalid    → token expired or tampered; request a fresh one, retry
//	wrong_token_kind → client bug (sent a session token); re-fetch properly
//
// The server never retries on the client's behalf.
const (
	reasonTokenMissing = "token_missing"
	reasonTokenInvalid = "token_invalid"
	reasonWrongKind    = "wrong_token_kind"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cookie-authenticated upgrade; origin is not part of the trust model
	// here (the realtime token is).
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS is the websocket endpoint (GET /ws).
//
// CONNECTION LIFECYCLE: Connecting → Authenticating → Open → Closed.
// Authentication happens BEFORE the upgrade: a rejected handshake gets a
// plain HTTP error with a distinguishable reason, never a silent drop. Only
// an authenticated request is upgraded, registered, and given its pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticate(r)
	if err != nil {
		status, reason := rejectionFor(err)
		h.logger.Info("realtime: handshake rejected",
			slog.String("reason", reason),
			slog.String("remote", r.RemoteAddr),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   reason,
			"message": "realtime handshake rejected",
		})
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		h.logger.Warn("realtime: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newConn(identity, ws)
	h.register(c)

	h.logger.Info("realtime: connection open",
		slog.String("userID", identity.UserID),
		slog.String("nonce", identity.Nonce),
	)

	go c.writeLoop(h.logger)
	go c.readLoop(h)
}

// authenticate extracts and validates the realtime credential from the
// handshake request's cookie.
func (h *Hub) authenticate(r *http.Request) (auth.RealtimeIdentity, error) {
	cookie, err := r.Cookie(auth.RealtimeCookie)
	if err != nil || cookie.Value == "" {
		return auth.RealtimeIdentity{}, errTokenMissing
	}
	return h.tokens.ValidateRealtime(cookie.Value)
}

var errTokenMissing = errors.New("realtime: no token presented")

// rejectionFor maps an authentication failure to an HTTP status and a
// machine-readable reason. Missing is 401 (nothing presented); everything
// else is 403 (presented but unacceptable).
func rejectionFor(err error) (int, string) {
	switch {
	case errors.Is(err, errTokenMissing):
		return http.StatusUnauthorized, reasonTokenMissing
	case errors.Is(err, auth.ErrWrongKind):
		return http.StatusForbidden, reasonWrongKind
	default:
		return http.StatusForbidden, reasonTokenInvalid
	}
}
