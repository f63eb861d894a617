// Package domain contains core concepts of the group chat system.
// This file defines Group entities and their membership invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "sort"

// JoinState is the position of a user relative to one group.
type JoinState int

const (
	StateOutside JoinState = iota
	StatePending
	StateMember
	StateBanned
)

func (s JoinState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateMember:
		return "member"
	case StateBanned:
		return "banned"
	default:
		return "outside"
	}
}

// Group is a named chat group. The admin is always a member while the
// group exists, and a banned name can never appear among the members.
// Groups are not safe for concurrent use; the registry serializes access.
type Group struct {
	Name    string
	Admin   string
	members map[string]struct{}
	bans    map[string]struct{}
	pending map[string]struct{}
}

// NewGroup creates a group whose only member is its admin.
func NewGroup(name, admin string) *Group {
	return &Group{
		Name:    name,
		Admin:   admin,
		members: map[string]struct{}{admin: {}},
		bans:    make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

// State reports where user stands relative to the group.
func (g *Group) State(user string) JoinState {
	switch {
	case g.IsBanned(user):
		return StateBanned
	case g.HasMember(user):
		return StateMember
	case g.IsPending(user):
		return StatePending
	default:
		return StateOutside
	}
}

func (g *Group) HasMember(user string) bool {
	_, ok := g.members[user]
	return ok
}

func (g *Group) IsBanned(user string) bool {
	_, ok := g.bans[user]
	return ok
}

func (g *Group) IsPending(user string) bool {
	_, ok := g.pending[user]
	return ok
}

// AddMember admits user, consuming any pending request. It refuses
// banned names so the members/bans disjunction can never break.
func (g *Group) AddMember(user string) bool {
	if g.IsBanned(user) {
		return false
	}
	delete(g.pending, user)
	g.members[user] = struct{}{}
	return true
}

func (g *Group) RemoveMember(user string) {
	delete(g.members, user)
}

// Ban removes user from the members and records the ban.
func (g *Group) Ban(user string) {
	delete(g.members, user)
	delete(g.pending, user)
	g.bans[user] = struct{}{}
}

// MarkPending records an admission request awaiting the admin's decision.
func (g *Group) MarkPending(user string) {
	g.pending[user] = struct{}{}
}

func (g *Group) ClearPending(user string) {
	delete(g.pending, user)
}

// Size is the current number of members.
func (g *Group) Size() int {
	return len(g.members)
}

// Members returns the member names in stable order.
func (g *Group) Members() []string {
	return sortedKeys(g.members)
}

// Bans returns the banned names in stable order.
func (g *Group) Bans() []string {
	return sortedKeys(g.bans)
}

// Rename substitutes a username everywhere it appears in the group:
// admin field, members, bans and pending requests. Keeping every set in
// sync is what preserves the admin-is-a-member invariant across renames.
func (g *Group) Rename(old, new string) {
	if g.Admin == old {
		g.Admin = new
	}
	renameKey(g.members, old, new)
	renameKey(g.bans, old, new)
	renameKey(g.pending, old, new)
}

// Info snapshots the group for the wire. Field names follow the client
// protocol.
func (g *Group) Info() GroupInfo {
	return GroupInfo{
		Name:  g.Name,
		Admin: g.Admin,
		Users: g.Members(),
		Bans:  g.Bans(),
	}
}

// GroupInfo is the serializable view of a group.
type GroupInfo struct {
	Name  string   `json:"name"`
	Admin string   `json:"admin"`
	Users []string `json:"users"`
	Bans  []string `json:"bans"`
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func renameKey(set map[string]struct{}, old, new string) {
	if _, ok := set[old]; ok {
		delete(set, old)
		set[new] = struct{}{}
	}
}
