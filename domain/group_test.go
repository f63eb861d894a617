package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroup_NewGroup_AdminIsSoleMember(t *testing.T) {
	req := require.New(t)

	g := NewGroup("games", "alice")

	req.Equal("games", g.Name)
	req.Equal("alice", g.Admin)
	req.Equal([]string{"alice"}, g.Members())
	req.Empty(g.Bans())
	req.Equal(1, g.Size())
	req.Equal(StateMember, g.State("alice"))
	req.Equal(StateOutside, g.State("bob"))
}

func TestGroup_AddMember_ConsumesPendingRequest(t *testing.T) {
	req := require.New(t)
	g := NewGroup("games", "alice")

	// Given a pending join request
	g.MarkPending("bob")
	req.Equal(StatePending, g.State("bob"))

	// When the user is admitted
	req.True(g.AddMember("bob"))

	// Then they are a member and no longer pending
	req.Equal(StateMember, g.State("bob"))
	req.False(g.IsPending("bob"))
	req.Equal([]string{"alice", "bob"}, g.Members())
}

func TestGroup_AddMember_RefusesBannedUser(t *testing.T) {
	req := require.New(t)
	g := NewGroup("games", "alice")

	g.Ban("mallory")

	req.False(g.AddMember("mallory"))
	req.False(g.HasMember("mallory"))
}

func TestGroup_Ban_IsExclusiveWithMembership(t *testing.T) {
	req := require.New(t)
	g := NewGroup("games", "alice")
	g.AddMember("bob")

	// When a member is banned
	g.Ban("bob")

	// Then they leave the members and land on the ban list
	req.False(g.HasMember("bob"))
	req.True(g.IsBanned("bob"))
	req.Equal(StateBanned, g.State("bob"))
	req.Equal([]string{"bob"}, g.Bans())
}

func TestGroup_Rename_PropagatesThroughEverySet(t *testing.T) {
	req := require.New(t)
	g := NewGroup("games", "alice")
	g.AddMember("bob")
	g.Ban("mallory")
	g.MarkPending("carol")

	g.Rename("alice", "alicia")
	g.Rename("mallory", "mal")
	g.Rename("carol", "caro")

	// The admin keeps their membership under the new name
	req.Equal("alicia", g.Admin)
	req.True(g.HasMember("alicia"))
	req.False(g.HasMember("alice"))
	req.True(g.IsBanned("mal"))
	req.True(g.IsPending("caro"))
}

func TestGroup_Info_SnapshotsWireShape(t *testing.T) {
	req := require.New(t)
	g := NewGroup("games", "alice")
	g.AddMember("bob")
	g.Ban("mallory")

	info := g.Info()

	req.Equal("games", info.Name)
	req.Equal("alice", info.Admin)
	req.Equal([]string{"alice", "bob"}, info.Users)
	req.Equal([]string{"mallory"}, info.Bans)
}
