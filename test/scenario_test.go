package test

import (
	"log/slog"
	"testing"
	"time"

	"group-chat/domain"
	"group-chat/domain/event"
	"group-chat/fanout"
	"group-chat/membership"
	"group-chat/registry"
	"group-chat/router"

	"github.com/stretchr/testify/require"
)

// chanSink exposes a user's notification stream as a channel so the test
// can wait on deliveries the way a connected client would.
type chanSink struct {
	ch chan event.Outbound
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan event.Outbound, 32)}
}

func (s *chanSink) Consume(e event.Outbound) error {
	s.ch <- e
	return nil
}

// await blocks until an event of type E arrives or the timeout fires.
func await[E event.Outbound](req *require.Assertions, s *chanSink) E {
	for {
		select {
		case e := <-s.ch:
			if typed, ok := e.(E); ok {
				return typed
			}
		case <-time.After(2 * time.Second):
			var zero E
			req.Failf("timeout", "event %q never delivered", zero.EventName())
			return zero
		}
	}
}

func Test_Scenario(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	reg := registry.NewRegistry()
	notify := fanout.NewFanout(log)
	engine := membership.NewEngine(log, reg, notify)
	rt := router.NewRouter(log, reg, notify)

	// 1. Two users come online
	alice := newChanSink()
	bob := newChanSink()
	req.NoError(reg.RegisterUser("alice"))
	req.NoError(reg.RegisterUser("bob"))
	notify.Attach("alice", alice)
	notify.Attach("bob", bob)

	// 2. Alice creates a group and everyone sees the refreshed list
	req.NoError(engine.CreateGroup("games", "alice"))
	list := await[event.GroupList](req, bob)
	req.Len(list.Groups, 1)
	req.Equal("games", list.Groups[0].Name)

	// 3. Bob asks to join and ends up pending
	res, err := engine.RequestJoin("bob", "games")
	req.NoError(err)
	req.Equal(domain.StatePending, res.State)
	await[event.AskPermission](req, bob)

	// 4. Alice is notified of the request
	asked := await[event.PermissionAsked](req, alice)
	req.Equal("bob", asked.User)
	req.Equal("games", asked.Group)

	// 5. Alice approves; bob receives the roster listing both of them
	req.NoError(engine.Approve("alice", "bob", "games"))
	roster := await[event.RosterUpdate](req, bob)
	req.Equal([]string{"alice", "bob"}, roster.Users)
	await[event.PermissionAccepted](req, bob)
	joined := await[event.UserJoined](req, alice)
	req.Equal("bob", joined.User)

	// 6. Bob posts a message and it reaches alice
	req.NoError(rt.BroadcastToGroup("bob", "games", "good game"))
	msg := await[event.NewMessage](req, alice)
	req.Equal("bob", msg.User)
	req.Equal("good game", msg.Msg)
}

func Test_Scenario_BanThenRejoinDenied(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	reg := registry.NewRegistry()
	notify := fanout.NewFanout(log)
	engine := membership.NewEngine(log, reg, notify)

	alice := newChanSink()
	mallory := newChanSink()
	req.NoError(reg.RegisterUser("alice"))
	req.NoError(reg.RegisterUser("mallory"))
	notify.Attach("alice", alice)
	notify.Attach("mallory", mallory)

	req.NoError(engine.CreateGroup("games", "alice"))
	_, err := engine.RequestJoin("mallory", "games")
	req.NoError(err)
	req.NoError(engine.Approve("alice", "mallory", "games"))

	// When the admin bans the member
	req.NoError(engine.Ban("alice", "mallory", "games"))
	banned := await[event.Banned](req, mallory)
	req.Equal("games", banned.Group)

	// Then a fresh join request is denied outright
	res, err := engine.RequestJoin("mallory", "games")
	req.Error(err)
	req.Equal(domain.StateBanned, res.State)
	denied := await[event.JoinDenied](req, mallory)
	req.Equal("games", denied.Group)
}
