// Package event defines the typed outbound push events of the chat
// protocol. Every type maps to one wire event name; payload fields use
// the JSON shape the client renders.
package event

import (
	"group-chat/domain"
	"group-chat/protocol"
)

// Outbound is a push event ready for fan-out to live connections.
type Outbound interface {
	EventName() string
}

// GroupList carries the full group catalogue.
type GroupList struct {
	Groups []domain.GroupInfo `json:"groups"`
}

func (GroupList) EventName() string { return protocol.EventGroupList }

// GotoMessages tells a client to navigate to a group's message view.
type GotoMessages struct {
	Group string `json:"group"`
}

func (GotoMessages) EventName() string { return protocol.EventGotoMessages }

// UserJoined announces a freshly admitted member to the rest of a group.
type UserJoined struct {
	User string `json:"user"`
}

func (UserJoined) EventName() string { return protocol.EventUserJoined }

// AskPermission acknowledges that a join request went to the admin.
type AskPermission struct {
	Group string `json:"group"`
}

func (AskPermission) EventName() string { return protocol.EventAskPermission }

// PermissionAsked lands on the admin's connection for a pending join.
type PermissionAsked struct {
	User  string `json:"user"`
	Group string `json:"group"`
}

func (PermissionAsked) EventName() string { return protocol.EventPermissionAsked }

// JoinDenied rejects a join request from a banned user.
type JoinDenied struct {
	Group string `json:"group"`
}

func (JoinDenied) EventName() string { return protocol.EventJoinDenied }

// RosterUpdate hands the admitted user the current member list.
type RosterUpdate struct {
	Group string   `json:"group"`
	Users []string `json:"users"`
}

func (RosterUpdate) EventName() string { return protocol.EventRosterUpdate }

// PermissionAccepted confirms admission to the requesting user.
type PermissionAccepted struct {
	Group string `json:"group"`
}

func (PermissionAccepted) EventName() string { return protocol.EventPermissionAccepted }

// PermissionRejected notifies the requesting user of a refusal.
type PermissionRejected struct {
	Group string `json:"group"`
}

func (PermissionRejected) EventName() string { return protocol.EventPermissionRejected }

// NewMessage delivers a chat message, broadcast or private.
type NewMessage struct {
	User string `json:"user"`
	Msg  string `json:"msg"`
}

func (NewMessage) EventName() string { return protocol.EventNewMessage }

// Kicked tells a user they were removed from a group.
type Kicked struct {
	Group string `json:"group"`
}

func (Kicked) EventName() string { return protocol.EventKicked }

// Banned tells a user they were banned from a group.
type Banned struct {
	Group string `json:"group"`
}

func (Banned) EventName() string { return protocol.EventBanned }

// NewFile relays an opaque attachment to every connection.
type NewFile struct {
	File string `json:"file"`
}

func (NewFile) EventName() string { return protocol.EventNewFile }

// UserAway marks a member as temporarily non-responsive.
type UserAway struct {
	User string `json:"user"`
}

func (UserAway) EventName() string { return protocol.EventUserAway }

// UserBack clears a member's away status.
type UserBack struct {
	User string `json:"user"`
}

func (UserBack) EventName() string { return protocol.EventUserBack }

// TargetAway bounces a private message off an away recipient.
type TargetAway struct {
	User string `json:"user"`
}

func (TargetAway) EventName() string { return protocol.EventTargetAway }

// CommandRejected reports a refused fire-and-forget action to its caller.
// The legacy server dropped these silently; callers are now told why.
type CommandRejected struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

func (CommandRejected) EventName() string { return protocol.EventCommandRejected }
