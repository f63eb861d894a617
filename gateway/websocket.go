package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"group-chat/observability"
	"group-chat/protocol"

	"github.com/gorilla/websocket"
)

// Options tunes the websocket transport.
type Options struct {
	SendBuffer   int
	ReadLimit    int64
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	PingInterval time.Duration
}

// Handler upgrades HTTP requests to websocket sessions and runs their
// read/write pumps. One goroutine reads, one writes; everything else
// happens on the hub loop.
type Handler struct {
	log      *slog.Logger
	hub      *Hub
	stats    *observability.Stats
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, hub *Hub, stats *observability.Stats, opts Options) *Handler {
	return &Handler{
		log:   log,
		hub:   hub,
		stats: stats,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The chat protocol authenticates by username only; any
			// origin may connect, exactly like the legacy server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := newSession(conn, h.log, h.stats.Counts(), h.opts.SendBuffer)
	h.hub.Register(sess)

	go h.writePump(sess)
	h.readPump(sess)
}

// readPump feeds inbound frames to the hub until the connection dies,
// then reports the disconnect. Runs on the handler goroutine.
func (h *Handler) readPump(s *Session) {
	defer h.hub.Unregister(s)

	s.conn.SetReadLimit(h.opts.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	})

	for {
		var env protocol.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("connection dropped", "session", s.id, "error", err)
			}
			return
		}
		h.hub.Dispatch(s, env)
	}
}

// writePump drains the session's send channel onto the wire and keeps
// the connection alive with pings. Exits when the hub closes the
// channel or a write fails.
func (h *Handler) writePump(s *Session) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				h.log.Warn("write failed", "session", s.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
