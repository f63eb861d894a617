package fanout

import (
	"log/slog"
	"testing"

	"group-chat/domain/event"

	"github.com/stretchr/testify/require"
)

// recordingSink collects consumed events.
type recordingSink struct {
	events []event.Outbound
}

func (s *recordingSink) Consume(e event.Outbound) error {
	s.events = append(s.events, e)
	return nil
}

func TestFanout_Send_SkipsOfflineNames(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default())
	alice := &recordingSink{}
	f.Attach("alice", alice)

	// When sending to one online and one offline user
	f.Send([]string{"alice", "ghost"}, event.NewMessage{User: "bob", Msg: "hi"})

	// Then only the online user received the event
	req.Len(alice.events, 1)
	req.Equal(event.NewMessage{User: "bob", Msg: "hi"}, alice.events[0])
}

func TestFanout_Resolve_FiltersToLiveSinks(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default())
	f.Attach("alice", &recordingSink{})
	f.Attach("bob", &recordingSink{})

	req.Len(f.Resolve([]string{"alice", "bob", "carol"}), 2)
	req.Empty(f.Resolve([]string{"carol"}))
}

func TestFanout_BroadcastAll_ReachesEveryConnection(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default())
	alice := &recordingSink{}
	bob := &recordingSink{}
	f.Attach("alice", alice)
	f.Attach("bob", bob)

	f.BroadcastAll(event.NewFile{File: "payload"})

	req.Len(alice.events, 1)
	req.Len(bob.events, 1)
}

func TestFanout_DetachAndRename(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default())
	alice := &recordingSink{}
	f.Attach("alice", alice)

	// Renaming moves the binding
	f.Rename("alice", "alicia")
	req.False(f.Online("alice"))
	req.True(f.Online("alicia"))

	f.Send([]string{"alicia"}, event.UserAway{User: "x"})
	req.Len(alice.events, 1)

	// Detaching silences the user entirely
	f.Detach("alicia")
	req.False(f.Online("alicia"))
	req.Equal(0, f.ConnectionCount())
	f.Send([]string{"alicia"}, event.UserAway{User: "x"})
	req.Len(alice.events, 1)
}
