package gateway

import (
	"log/slog"
	"testing"

	"group-chat/fanout"
	"group-chat/membership"
	"group-chat/observability"
	"group-chat/protocol"
	"group-chat/registry"
	"group-chat/router"

	"github.com/stretchr/testify/require"
)

// newTestHub wires a hub with real components; frames are fed straight
// into handleFrame so no loop goroutine is needed.
func newTestHub(t *testing.T) (*Hub, *observability.Stats) {
	t.Helper()
	log := slog.Default()
	stats := observability.NewStats()
	reg := registry.NewRegistry()
	notify := fanout.NewFanout(log)
	engine := membership.NewEngine(log, reg, notify)
	rt := router.NewRouter(log, reg, notify)
	return NewHub(log, reg, engine, rt, notify, stats, 64), stats
}

func newTestSession(stats *observability.Stats, buffer int) *Session {
	return newSession(nil, slog.Default(), stats.Counts(), buffer)
}

func mustRequest(t *testing.T, id, event string, payload any) protocol.Envelope {
	t.Helper()
	env, err := protocol.NewRequest(id, event, payload)
	require.NoError(t, err)
	return env
}

// drain empties the session send channel without blocking.
func drain(s *Session) []protocol.Envelope {
	var out []protocol.Envelope
	for {
		select {
		case env, ok := <-s.send:
			if !ok {
				return out
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func ackFor(t *testing.T, envs []protocol.Envelope, id string, out any) {
	t.Helper()
	for _, env := range envs {
		if env.Event == protocol.EventAck && env.ID == id {
			require.NoError(t, env.Decode(out))
			return
		}
	}
	t.Fatalf("no ack for request %q among %d envelopes", id, len(envs))
}

func pushesFor(envs []protocol.Envelope, event string) []protocol.Envelope {
	var out []protocol.Envelope
	for _, env := range envs {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

// register runs the "new user" exchange and asserts it succeeded.
func register(t *testing.T, h *Hub, s *Session, name string) {
	t.Helper()
	h.handleFrame(s, mustRequest(t, "r-"+name, protocol.EventNewUser, protocol.RegisterRequest{Name: name}))
	var ack protocol.Ack
	ackFor(t, drain(s), "r-"+name, &ack)
	require.True(t, ack.OK, "registration of %q failed: %s", name, ack.Error)
}

func TestHub_Handshake_ReportsDateCommandsAndStats(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	s := newTestSession(stats, 8)

	h.handleFrame(s, mustRequest(t, "1", protocol.EventMessageOfTheDay, nil))

	var hs protocol.Handshake
	ackFor(t, drain(s), "1", &hs)
	req.NotEmpty(hs.Date)
	req.Equal(protocol.Commands, hs.Commands)
	req.Contains(hs.Stats, "uptime_s")
}

func TestHub_NewUser_ClaimsAndDefendsName(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 8)
	register(t, h, alice, "alice")
	req.Equal("alice", alice.Username())
	req.True(h.notify.Online("alice"))

	// A second session cannot take the same name
	intruder := newTestSession(stats, 8)
	h.handleFrame(intruder, mustRequest(t, "2", protocol.EventNewUser, protocol.RegisterRequest{Name: "alice"}))
	var ack protocol.Ack
	ackFor(t, drain(intruder), "2", &ack)
	req.False(ack.OK)
	req.NotEmpty(ack.Error)

	// A registered session cannot register twice
	h.handleFrame(alice, mustRequest(t, "3", protocol.EventNewUser, protocol.RegisterRequest{Name: "alice2"}))
	ackFor(t, drain(alice), "3", &ack)
	req.False(ack.OK)
	req.Equal("alice", alice.Username())
}

func TestHub_NewUser_RejectsInvalidName(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	s := newTestSession(stats, 8)

	h.handleFrame(s, mustRequest(t, "1", protocol.EventNewUser, protocol.RegisterRequest{Name: "has space"}))

	var ack protocol.Ack
	ackFor(t, drain(s), "1", &ack)
	req.False(ack.OK)
	req.Empty(s.Username())
}

func TestHub_RequireUser_AnswersUnregisteredSessions(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	s := newTestSession(stats, 8)

	// A request gets the failure on its ack
	h.handleFrame(s, mustRequest(t, "1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	var ack protocol.Ack
	ackFor(t, drain(s), "1", &ack)
	req.False(ack.OK)

	// A fire-and-forget event gets a rejection push instead
	env, err := protocol.NewPush(protocol.EventSendMessage, protocol.SendMessageRequest{Group: "games", Text: "hi"})
	req.NoError(err)
	h.handleFrame(s, env)
	req.Len(pushesFor(drain(s), protocol.EventCommandRejected), 1)
}

func TestHub_JoinFlow_PendingThenApproved(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	bob := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	register(t, h, bob, "bob")

	// Given a group administered by alice
	h.handleFrame(alice, mustRequest(t, "g1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	var ack protocol.Ack
	ackFor(t, drain(alice), "g1", &ack)
	req.True(ack.OK)

	// When bob asks to join
	h.handleFrame(bob, mustRequest(t, "j1", protocol.EventJoinGroup, protocol.GroupRequest{Group: "games"}))
	var join protocol.JoinAck
	bobEnvs := drain(bob)
	ackFor(t, bobEnvs, "j1", &join)

	// Then bob is pending and alice is asked for permission
	req.True(join.Pending)
	req.Len(pushesFor(bobEnvs, protocol.EventAskPermission), 1)
	req.Len(pushesFor(drain(alice), protocol.EventPermissionAsked), 1)
	req.Empty(bob.CurrentGroup())

	// When alice approves
	env, err := protocol.NewPush(protocol.EventApproveJoin, protocol.AdmissionRequest{User: "bob", Group: "games"})
	req.NoError(err)
	h.handleFrame(alice, env)

	// Then bob lands in the group and hears about it
	req.Equal("games", bob.CurrentGroup())
	bobEnvs = drain(bob)
	req.Len(pushesFor(bobEnvs, protocol.EventPermissionAccepted), 1)
	req.Len(pushesFor(bobEnvs, protocol.EventRosterUpdate), 1)
	req.Len(pushesFor(bobEnvs, protocol.EventGotoMessages), 1)
	req.Len(pushesFor(drain(alice), protocol.EventUserJoined), 1)
}

func TestHub_SendMessage_ReachesGroupMembers(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	bob := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	register(t, h, bob, "bob")
	h.handleFrame(alice, mustRequest(t, "g1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	h.handleFrame(bob, mustRequest(t, "j1", protocol.EventJoinGroup, protocol.GroupRequest{Group: "games"}))
	env, err := protocol.NewPush(protocol.EventApproveJoin, protocol.AdmissionRequest{User: "bob", Group: "games"})
	req.NoError(err)
	h.handleFrame(alice, env)
	drain(alice)
	drain(bob)

	// When bob talks in the group
	env, err = protocol.NewPush(protocol.EventSendMessage, protocol.SendMessageRequest{Group: "games", Text: "gg"})
	req.NoError(err)
	h.handleFrame(bob, env)

	// Then both members receive the message
	req.Len(pushesFor(drain(alice), protocol.EventNewMessage), 1)
	req.Len(pushesFor(drain(bob), protocol.EventNewMessage), 1)
	req.Equal(uint64(1), stats.Counts().MessagesRouted)
}

func TestHub_Rename_MovesPresenceBinding(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	register(t, h, alice, "alice")

	h.handleFrame(alice, mustRequest(t, "n1", protocol.EventRename, protocol.RenameRequest{Name: "alicia"}))

	var ack protocol.RenameAck
	ackFor(t, drain(alice), "n1", &ack)
	req.True(ack.OK)
	req.Equal("alicia", ack.Name)
	req.Equal("alicia", alice.Username())
	req.False(h.notify.Online("alice"))
	req.True(h.notify.Online("alicia"))
	req.Contains(h.sessions, "alicia")
	req.NotContains(h.sessions, "alice")
}

func TestHub_Rename_KeepsOldNameOnConflict(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	bob := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	register(t, h, bob, "bob")

	h.handleFrame(alice, mustRequest(t, "n1", protocol.EventRename, protocol.RenameRequest{Name: "bob"}))

	var ack protocol.RenameAck
	ackFor(t, drain(alice), "n1", &ack)
	req.False(ack.OK)
	req.Equal("alice", ack.Name)
	req.Equal("alice", alice.Username())
}

func TestHub_Disconnect_FreesNameButKeepsMembership(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	h.handleFrame(alice, mustRequest(t, "g1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	drain(alice)

	h.handleDisconnect(alice)

	// The name is free for a new session, the roster is untouched
	req.False(h.notify.Online("alice"))
	req.False(h.reg.HasUser("alice"))
	g, err := h.reg.FindGroup("games")
	req.NoError(err)
	req.True(g.HasMember("alice"))

	// Pushing into the closed session fails cleanly
	req.Error(alice.push(protocol.Envelope{Event: protocol.EventNewMessage}))
}

func TestHub_DeleteGroup_ClearsViewers(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	h.handleFrame(alice, mustRequest(t, "g1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	h.handleFrame(alice, mustRequest(t, "j1", protocol.EventJoinGroup, protocol.GroupRequest{Group: "games"}))
	drain(alice)
	req.Equal("games", alice.CurrentGroup())

	h.handleFrame(alice, mustRequest(t, "d1", protocol.EventDeleteGroup, protocol.GroupRequest{Group: "games"}))

	var ack protocol.Ack
	ackFor(t, drain(alice), "d1", &ack)
	req.True(ack.OK)
	req.Empty(alice.CurrentGroup())
}

func TestHub_GroupWithName_AnswersSnapshot(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	h.handleFrame(alice, mustRequest(t, "g1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	drain(alice)

	h.handleFrame(alice, mustRequest(t, "q1", protocol.EventGroupWithName, protocol.GroupRequest{Group: "games"}))

	var ack protocol.GroupAck
	ackFor(t, drain(alice), "q1", &ack)
	req.NotNil(ack.Group)
	req.Equal("games", ack.Group.Name)
	req.Equal("alice", ack.Group.Admin)

	h.handleFrame(alice, mustRequest(t, "q2", protocol.EventGroupWithName, protocol.GroupRequest{Group: "nowhere"}))
	ackFor(t, drain(alice), "q2", &ack)
	req.NotEmpty(ack.Error)
}

func TestHub_Moderation_KickClearsTargetView(t *testing.T) {
	req := require.New(t)
	h, stats := newTestHub(t)
	alice := newTestSession(stats, 16)
	bob := newTestSession(stats, 16)
	register(t, h, alice, "alice")
	register(t, h, bob, "bob")
	h.handleFrame(alice, mustRequest(t, "g1", protocol.EventNewGroup, protocol.CreateGroupRequest{Name: "games"}))
	h.handleFrame(bob, mustRequest(t, "j1", protocol.EventJoinGroup, protocol.GroupRequest{Group: "games"}))
	env, err := protocol.NewPush(protocol.EventApproveJoin, protocol.AdmissionRequest{User: "bob", Group: "games"})
	req.NoError(err)
	h.handleFrame(alice, env)
	drain(alice)
	drain(bob)
	req.Equal("games", bob.CurrentGroup())

	env, err = protocol.NewPush(protocol.EventKick, protocol.ModerationRequest{Target: "bob", Group: "games"})
	req.NoError(err)
	h.handleFrame(alice, env)

	req.Empty(bob.CurrentGroup())
	req.Len(pushesFor(drain(bob), protocol.EventKicked), 1)
}

func TestSession_Push_DropsOnFullBuffer(t *testing.T) {
	req := require.New(t)
	stats := observability.NewStats()
	s := newTestSession(stats, 1)

	req.NoError(s.push(protocol.Envelope{Event: protocol.EventNewMessage}))
	req.Error(s.push(protocol.Envelope{Event: protocol.EventNewMessage}))
	req.Equal(uint64(1), stats.Counts().EventsPushed)
	req.Equal(uint64(1), stats.Counts().EventsDropped)
}
