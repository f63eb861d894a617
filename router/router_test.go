package router

import (
	"log/slog"
	"testing"

	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/registry"

	"github.com/stretchr/testify/require"
)

type delivery struct {
	users []string
	evt   event.Outbound
}

type captureNotifier struct {
	sends      []delivery
	broadcasts []event.Outbound
}

func (n *captureNotifier) Send(users []string, e event.Outbound) {
	n.sends = append(n.sends, delivery{users: users, evt: e})
}

func (n *captureNotifier) BroadcastAll(e event.Outbound) {
	n.broadcasts = append(n.broadcasts, e)
}

func newRouter(t *testing.T) (*Router, *registry.Registry, *captureNotifier) {
	t.Helper()
	reg := registry.NewRegistry()
	notify := &captureNotifier{}
	return NewRouter(slog.Default(), reg, notify), reg, notify
}

func TestRouter_BroadcastToGroup_DeliversToMembers(t *testing.T) {
	req := require.New(t)
	rt, reg, notify := newRouter(t)
	g, err := reg.CreateGroup("games", "alice")
	req.NoError(err)
	g.AddMember("bob")

	req.NoError(rt.BroadcastToGroup("bob", "games", "hello"))

	req.Len(notify.sends, 1)
	req.Equal([]string{"alice", "bob"}, notify.sends[0].users)
	req.Equal(event.NewMessage{User: "bob", Msg: "hello"}, notify.sends[0].evt)
}

func TestRouter_BroadcastToGroup_ClearsAwayBeforeMessage(t *testing.T) {
	req := require.New(t)
	rt, reg, notify := newRouter(t)
	_, err := reg.CreateGroup("games", "alice")
	req.NoError(err)
	reg.MarkAway("alice", "games")
	reg.MarkAway("alice", "movies")

	// When the away user sends a group message
	req.NoError(rt.BroadcastToGroup("alice", "games", "back"))

	// Then the no-longer-away notice precedes the message
	req.Len(notify.sends, 2)
	req.Equal(event.UserBack{User: "alice"}, notify.sends[0].evt)
	req.Equal(event.NewMessage{User: "alice", Msg: "back"}, notify.sends[1].evt)

	// And every marker is gone, across all groups
	req.False(reg.IsAway("alice"))
}

func TestRouter_BroadcastToGroup_MissingGroup(t *testing.T) {
	req := require.New(t)
	rt, _, notify := newRouter(t)

	err := rt.BroadcastToGroup("alice", "nowhere", "hello")

	req.ErrorIs(err, errors.ErrGroupNotFound)
	req.Empty(notify.sends)
}

func TestRouter_SendPrivate_GatedByAwayStatus(t *testing.T) {
	req := require.New(t)
	rt, reg, notify := newRouter(t)
	reg.MarkAway("bob", "games")

	// An away target bounces the message back to the sender
	err := rt.SendPrivate("alice", "bob", "psst")
	req.ErrorIs(err, errors.ErrTargetAway)
	req.Len(notify.sends, 1)
	req.Equal([]string{"alice"}, notify.sends[0].users)
	req.Equal(event.TargetAway{User: "bob"}, notify.sends[0].evt)

	// Once the marker clears, delivery resumes
	reg.ClearAway("bob")
	req.NoError(rt.SendPrivate("alice", "bob", "psst"))
	req.Equal([]string{"bob"}, notify.sends[1].users)
	req.Equal(event.NewMessage{User: "alice", Msg: "psst"}, notify.sends[1].evt)
}

func TestRouter_MarkAway_NotifiesGroupThenMarks(t *testing.T) {
	req := require.New(t)
	rt, reg, notify := newRouter(t)
	g, err := reg.CreateGroup("games", "alice")
	req.NoError(err)
	g.AddMember("bob")

	req.NoError(rt.MarkAway("bob", "games"))

	req.Len(notify.sends, 1)
	req.Equal(event.UserAway{User: "bob"}, notify.sends[0].evt)
	req.True(reg.IsAway("bob"))

	req.ErrorIs(rt.MarkAway("bob", "nowhere"), errors.ErrGroupNotFound)
}

func TestRouter_BroadcastFile_ReachesEveryone(t *testing.T) {
	req := require.New(t)
	rt, _, notify := newRouter(t)

	rt.BroadcastFile("payload")

	req.Len(notify.broadcasts, 1)
	req.Equal(event.NewFile{File: "payload"}, notify.broadcasts[0])
}
