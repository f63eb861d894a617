// Package membership implements the group membership state machine:
// join requests, admission approval and rejection, bans, kicks,
// departures, group lifecycle and renames. Each (user, group) pair is
// in one of four states: outside, pending approval, member, banned.
//
// Admin authority is bound to the identity of the calling session, not
// to a client-supplied name: callers of admin-only transitions are the
// usernames the gateway resolved from its own session table.
package membership

import (
	"log/slog"

	"group-chat/contract"
	"group-chat/domain"
	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/registry"

	"github.com/samber/lo"
)

type Engine struct {
	log    *slog.Logger
	reg    *registry.Registry
	notify contract.Notifier
}

func NewEngine(log *slog.Logger, reg *registry.Registry, notify contract.Notifier) *Engine {
	return &Engine{log: log, reg: reg, notify: notify}
}

// JoinResult reports the outcome of a join request. Members holds the
// roster when the requester already belongs to the group.
type JoinResult struct {
	State   domain.JoinState
	Members []string
}

// RequestJoin moves user towards membership of group. A member re-enters
// immediately and idempotently; a banned user is turned away; anyone
// else becomes pending and the group's admin is asked for permission.
// If the admin is offline the notification is lost, but the pending
// record survives until the admin acts or the process exits.
func (e *Engine) RequestJoin(user, group string) (JoinResult, error) {
	g, err := e.reg.FindGroup(group)
	if err != nil {
		return JoinResult{}, err
	}

	switch g.State(user) {
	case domain.StateMember:
		e.notify.Send([]string{user}, event.GotoMessages{Group: group})
		return JoinResult{State: domain.StateMember, Members: g.Members()}, nil

	case domain.StateBanned:
		e.notify.Send([]string{user}, event.JoinDenied{Group: group})
		return JoinResult{State: domain.StateBanned}, errors.ErrBanned

	default:
		g.MarkPending(user)
		e.notify.Send([]string{g.Admin}, event.PermissionAsked{User: user, Group: group})
		e.notify.Send([]string{user}, event.AskPermission{Group: group})
		e.log.Info("join requested", "user", user, "group", group, "admin", g.Admin)
		return JoinResult{State: domain.StatePending}, nil
	}
}

// Approve admits a pending user. Only the group's admin may approve,
// and only a request that is actually pending.
func (e *Engine) Approve(caller, user, group string) error {
	g, err := e.reg.FindGroup(group)
	if err != nil {
		return err
	}
	if g.Admin != caller {
		return errors.ErrUnauthorized
	}
	if !g.IsPending(user) {
		return errors.ErrNoPendingRequest
	}
	if !g.AddMember(user) {
		return errors.ErrBanned
	}

	members := g.Members()
	e.notify.Send([]string{user}, event.RosterUpdate{Group: group, Users: members})
	e.notify.Send([]string{user}, event.PermissionAccepted{Group: group})
	e.notify.Send([]string{user}, event.GotoMessages{Group: group})

	others := lo.Without(members, user)
	e.notify.Send(others, event.UserJoined{User: user})
	e.log.Info("join approved", "user", user, "group", group)
	return nil
}

// Reject refuses a pending user. With an empty group name the caller's
// administered groups are searched for the pending request, which keeps
// the legacy single-argument rejection event working.
func (e *Engine) Reject(caller, user, group string) error {
	if group == "" {
		found, ok := e.findPending(caller, user)
		if !ok {
			return errors.ErrNoPendingRequest
		}
		group = found
	}

	g, err := e.reg.FindGroup(group)
	if err != nil {
		return err
	}
	if g.Admin != caller {
		return errors.ErrUnauthorized
	}
	if !g.IsPending(user) {
		return errors.ErrNoPendingRequest
	}
	g.ClearPending(user)
	e.notify.Send([]string{user}, event.PermissionRejected{Group: group})
	e.log.Info("join rejected", "user", user, "group", group)
	return nil
}

// Ban removes a member and bars them from ever rejoining.
func (e *Engine) Ban(caller, target, group string) error {
	g, err := e.reg.FindGroup(group)
	if err != nil {
		return err
	}
	if g.Admin != caller {
		return errors.ErrUnauthorized
	}
	if !g.HasMember(target) {
		return errors.ErrNotMember
	}
	g.Ban(target)
	e.notify.Send([]string{target}, event.Banned{Group: group})
	e.log.Info("user banned", "user", target, "group", group, "admin", caller)
	return nil
}

// Kick removes a member without banning; they may request to join again.
func (e *Engine) Kick(caller, target, group string) error {
	g, err := e.reg.FindGroup(group)
	if err != nil {
		return err
	}
	if g.Admin != caller {
		return errors.ErrUnauthorized
	}
	if !g.HasMember(target) {
		return errors.ErrNotMember
	}
	g.RemoveMember(target)
	e.notify.Send([]string{target}, event.Kicked{Group: group})
	e.log.Info("user kicked", "user", target, "group", group, "admin", caller)
	return nil
}

// Leave takes user out of group's member list.
func (e *Engine) Leave(user, group string) error {
	g, err := e.reg.FindGroup(group)
	if err != nil {
		return err
	}
	g.RemoveMember(user)
	e.log.Info("user left", "user", user, "group", group)
	return nil
}

// CreateGroup creates group with admin as its sole member and pushes
// the refreshed group list to everyone.
func (e *Engine) CreateGroup(name, admin string) error {
	if _, err := e.reg.CreateGroup(name, admin); err != nil {
		return err
	}
	e.notify.BroadcastAll(event.GroupList{Groups: e.reg.AllGroups()})
	e.log.Info("group created", "group", name, "admin", admin)
	return nil
}

// DeleteGroup removes a group once only its admin remains, then pushes
// the refreshed group list to everyone.
func (e *Engine) DeleteGroup(caller, group string) error {
	g, err := e.reg.FindGroup(group)
	if err != nil {
		return err
	}
	if g.Admin != caller {
		return errors.ErrUnauthorized
	}
	if err := e.reg.DeleteGroup(group); err != nil {
		return err
	}
	e.notify.BroadcastAll(event.GroupList{Groups: e.reg.AllGroups()})
	e.log.Info("group deleted", "group", group)
	return nil
}

// RenameUser changes a live username and propagates it everywhere the
// old name appears.
func (e *Engine) RenameUser(old, new string) error {
	if err := e.reg.RenameUser(old, new); err != nil {
		return err
	}
	e.log.Info("user renamed", "old", old, "new", new)
	return nil
}

// findPending locates a group administered by caller where user has a
// pending request.
func (e *Engine) findPending(caller, user string) (string, bool) {
	for _, info := range e.reg.AllGroups() {
		if info.Admin != caller {
			continue
		}
		g, err := e.reg.FindGroup(info.Name)
		if err != nil {
			continue
		}
		if g.IsPending(user) {
			return g.Name, true
		}
	}
	return "", false
}
