// Package realtime implements the per-user live notification channel.
//
// ARCHITECTURE:
// Each browser session that wants live updates opens one websocket. The Hub
// authenticates the handshake with a short-lived realtime token (distinct
// from the session token), then registers the connection under two keys:
//
//	userID → set of live connections (a user may have several devices/tabs)
//	nonce  → the single connection for that logical realtime session
//
// When a contact mutation commits, the service layer calls Emit with the
// change event; the Hub pushes it to every connection registered for the
// owning user — and to nobody else. Fan-out scope is always one user; this
// is not a broadcast bus.
//
// DELIVERY CONTRACT:
// At-most-once, best-effort. Events are never queued for offline users,
// never retried, and never replayed on reconnect. Zero registered
// connections is a no-op, not an error. A client that reconnects re-fetches
// the contact list to resynchronize.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/model"
)

// Hub maintains the registration maps and fans events out to live
// connections.
//
// CONCURRENCY:
// byUser/byNonce are the only cross-request shared state in the process.
// Handshakes, teardowns, and emits race across arbitrary connections, so
// every access goes through mu. Emit also sends to the per-connection
// buffered channels while holding the lock — the sends are non-blocking, and
// doing them under the lock means a channel can never be closed (by teardown
// or supersession) between the membership check and the send.
type Hub struct {
	tokens *auth.TokenService
	logger *slog.Logger

	mu      sync.Mutex
	byUser  map[string]map[*Conn]struct{}
	byNonce map[string]*Conn
}

// NewHub creates a Hub that authenticates handshakes with the given
// TokenService.
func NewHub(tokens *auth.TokenService, logger *slog.Logger) *Hub {
	return &Hub{
		tokens:  tokens,
		logger:  logger,
		byUser:  make(map[string]map[*Conn]struct{}),
		byNonce: make(map[string]*Conn),
	}
}

// register adds a connection to both maps.
//
// NONCE SUPERSESSION:
// One nonce represents one logical realtime session. If a connection is
// already registered under the same nonce (e.g. the client retried the
// handshake before the server noticed the old socket die), the old
// registration is removed and the old connection force-closed. The maps
// always reflect the newest registration.
func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.byNonce[c.nonce]; ok && prev != c {
		h.logger.Info("realtime: superseding stale registration",
			slog.String("userID", c.userID),
			slog.String("nonce", c.nonce),
		)
		h.removeLocked(prev)
	}

	set, ok := h.byUser[c.userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.byUser[c.userID] = set
	}
	set[c] = struct{}{}
	h.byNonce[c.nonce] = c
}

// Teardown removes the connection's registrations and closes its send
// channel. Idempotent — safe to call from both the read loop (on disconnect)
// and supersession.
func (h *Hub) Teardown(c *Conn) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// removeLocked does the actual unregistration. Caller holds h.mu.
// Closing c.send here (under the lock, guarded by c.closed) is what makes
// the Emit send race-free: a channel is only ever closed while no Emit can
// be mid-send.
func (h *Hub) removeLocked(c *Conn) {
	if c.closed {
		return
	}
	c.closed = true

	if set, ok := h.byUser[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	if h.byNonce[c.nonce] == c {
		delete(h.byNonce, c.nonce)
	}

	close(c.send)
}

// Emit pushes the event to every live connection registered for its owner.
//
// If no connections are registered this is a no-op — the mutating user may
// simply have no live realtime session. A connection whose send buffer is
// full has the event dropped (logged, never blocked on): a stuck consumer
// must not stall the mutation path or other listeners.
//
// Emissions happen synchronously after each storage commit, so per-owner
// event order matches commit order.
func (h *Hub) Emit(event model.ContactEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.byUser[event.OwnerID] {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("realtime: dropping event for slow connection",
				slog.String("userID", c.userID),
				slog.String("kind", event.Kind),
			)
		}
	}
}

// ConnectionCount returns the number of live connections registered for the
// given user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byUser[userID])
}
