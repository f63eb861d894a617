// Package gateway maps transport-level connection lifecycle and inbound
// frames onto the membership engine and the message router. It owns
// presence bookkeeping: which connection belongs to which username and
// which group a session is currently looking at.
package gateway

import (
	"log/slog"
	"sync/atomic"

	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/observability"
	"group-chat/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is one connected client: the connection handle, the username
// once registered, and the group whose message view the client is in.
// username and currentGroup are touched only by the hub loop.
type Session struct {
	id     string
	conn   *websocket.Conn
	log    *slog.Logger
	counts *observability.Counts

	send   chan protocol.Envelope
	closed atomic.Bool

	username     string
	currentGroup string
}

func newSession(conn *websocket.Conn, log *slog.Logger, counts *observability.Counts, sendBuffer int) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		log:    log.With("session", id),
		counts: counts,
		send:   make(chan protocol.Envelope, sendBuffer),
	}
}

// ID returns the opaque connection handle.
func (s *Session) ID() string { return s.id }

// Username returns the registered name, empty until registration.
func (s *Session) Username() string { return s.username }

// CurrentGroup returns the group the session is viewing, if any.
func (s *Session) CurrentGroup() string { return s.currentGroup }

// Consume implements contract.EventSink. It frames the event and hands
// it to the write pump without ever blocking: a full buffer drops the
// event rather than stalling the hub loop.
func (s *Session) Consume(e event.Outbound) error {
	env, err := protocol.NewPush(e.EventName(), e)
	if err != nil {
		return err
	}
	return s.push(env)
}

func (s *Session) reply(id string, payload any) {
	env, err := protocol.NewAck(id, payload)
	if err != nil {
		s.log.Error("encoding ack failed", "error", err)
		return
	}
	if err := s.push(env); err != nil {
		s.log.Warn("ack dropped", "error", err)
	}
}

func (s *Session) push(env protocol.Envelope) error {
	if s.closed.Load() {
		return errors.ErrSessionClosed
	}
	select {
	case s.send <- env:
		s.counts.IncrEventsPushed()
		return nil
	default:
		s.counts.IncrEventsDropped()
		return errors.ErrSendBufferFull
	}
}

// close marks the session dead and releases the write pump. Called from
// the hub loop only, after the session left the fan-out table, so no
// further push can race the channel close.
func (s *Session) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.send)
	}
}
