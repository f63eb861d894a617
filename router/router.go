// Package router resolves message recipients (group broadcast, private
// message, file relay) and applies away-status gating. It mutates no
// membership state; it only reads rosters and away markers.
package router

import (
	"log/slog"

	"group-chat/contract"
	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/registry"
)

type Router struct {
	log    *slog.Logger
	reg    *registry.Registry
	notify contract.Notifier
}

func NewRouter(log *slog.Logger, reg *registry.Registry, notify contract.Notifier) *Router {
	return &Router{log: log, reg: reg, notify: notify}
}

// BroadcastToGroup delivers text to every member of group. Sending a
// message implicitly clears every away marker the sender holds; the
// "no longer away" notice is emitted before the message itself so
// recipients observe presence changes in causal order.
func (r *Router) BroadcastToGroup(sender, group, text string) error {
	g, err := r.reg.FindGroup(group)
	if err != nil {
		return err
	}

	members := g.Members()
	if r.reg.ClearAway(sender) {
		r.notify.Send(members, event.UserBack{User: sender})
	}
	r.notify.Send(members, event.NewMessage{User: sender, Msg: text})
	return nil
}

// SendPrivate delivers text to a single user. An away target bounces
// the message back to the sender with a "target is away" notice; an
// offline target silently swallows it. Nothing is queued or retried.
func (r *Router) SendPrivate(sender, target, text string) error {
	if r.reg.IsAway(target) {
		r.notify.Send([]string{sender}, event.TargetAway{User: target})
		return errors.ErrTargetAway
	}
	r.notify.Send([]string{target}, event.NewMessage{User: sender, Msg: text})
	return nil
}

// MarkAway flags user as non-responsive within group and tells every
// member. The notice goes out before the marker lands, mirroring the
// order the legacy server used.
func (r *Router) MarkAway(user, group string) error {
	g, err := r.reg.FindGroup(group)
	if err != nil {
		return err
	}
	r.notify.Send(g.Members(), event.UserAway{User: user})
	r.reg.MarkAway(user, group)
	return nil
}

// BroadcastFile relays an opaque attachment payload to every live
// connection on the server.
func (r *Router) BroadcastFile(payload string) {
	r.notify.BroadcastAll(event.NewFile{File: payload})
}
