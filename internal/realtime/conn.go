package realtime

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/model"
)

const (
	// writeWait is the deadline for a single outbound frame.
	writeWait = 10 * time.Second
	// pongWait is how long we keep a connection without hearing a pong.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so the ping is in flight
	// before the pong deadline passes.
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is the per-connection event queue. Events beyond it are
	// dropped (best-effort delivery).
	sendBuffer = 16
)

// Conn is one live, authenticated websocket connection.
//
// The websocket is only ever written to by writeLoop and read from by
// readLoop (gorilla/websocket allows at most one concurrent reader and one
// concurrent writer). Everything else communicates with the connection
// through the send channel, which the Hub owns and closes.
type Conn struct {
	userID string
	nonce  string
	ws     *websocket.Conn
	send   chan model.ContactEvent

	// closed guards against double-close of send; owned by Hub.mu.
	closed bool
}

func newConn(identity auth.RealtimeIdentity, ws *websocket.Conn) *Conn {
	return &Conn{
		userID: identity.UserID,
		nonce:  identity.Nonce,
		ws:     ws,
		send:   make(chan model.ContactEvent, sendBuffer),
	}
}

// writeLoop serializes queued events to the socket and keeps the connection
// alive with periodic pings. It exits when the Hub closes the send channel
// (teardown or supersession) or a write fails; either way it closes the
// underlying socket, which in turn unblocks readLoop.
func (c *Conn) writeLoop(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				// Hub closed the channel — say goodbye properly so the
				// client sees a clean close, not an aborted TCP stream.
				c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}

			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(event); err != nil {
				logger.Debug("realtime: write failed",
					slog.String("userID", c.userID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound frames until the connection dies.
//
// Clients never send application data on this channel — the read loop exists
// to process control frames (pong, close) and, crucially, to detect
// disconnects promptly so the Hub can tear the registration down before any
// further Emit could target a dead socket.
func (c *Conn) readLoop(h *Hub) {
	defer h.Teardown(c)

	c.ws.SetReadLimit(512)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
