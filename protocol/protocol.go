// Package protocol defines the wire surface shared by server and client:
// event names, the JSON envelope, request payloads and their validation.
// The event vocabulary is kept verbatim from the legacy client, including
// its Portuguese admission events.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound request events. These carry a correlation id and expect an ack.
const (
	EventMessageOfTheDay = "message of the day"
	EventNewUser         = "new user"
	EventNewGroup        = "new group"
	EventJoinGroup       = "join group"
	EventDeleteGroup     = "delete group"
	EventGroupUsers      = "get users on this group"
	EventLeaveGroup      = "leave group"
	EventRename          = "novo nick"
	EventAllGroups       = "get all groups"
	EventGroupWithName   = "group with name"
)

// Inbound fire-and-forget events.
const (
	EventShowGroups     = "show groups"
	EventSendMessage    = "send message"
	EventPrivateMessage = "private message"
	EventBan            = "ban"
	EventKick           = "kick"
	EventAway           = "away"
	EventSendFile       = "send file"
	EventApproveJoin    = "aceito que entre"
	EventRejectJoin     = "rejeito que entre"
)

// Outbound push events.
const (
	EventGroupList          = "get groups"
	EventGotoMessages       = "goto messages"
	EventUserJoined         = "other user joined this group"
	EventAskPermission      = "ask for permission"
	EventPermissionAsked    = "asked for permission"
	EventJoinDenied         = "deny because of ban"
	EventRosterUpdate       = "me atualizo dos demais do grupo"
	EventPermissionAccepted = "permission accepted"
	EventPermissionRejected = "permission rejected"
	EventNewMessage         = "new message"
	EventKicked             = "you have been kicked"
	EventBanned             = "you have been banned"
	EventNewFile            = "new file"
	EventUserAway           = "user away"
	EventUserBack           = "user no longer away"
	EventTargetAway         = "target is away"
	EventCommandRejected    = "command rejected"
)

// EventAck is the response envelope event; the id ties it to its request.
const EventAck = "ack"

// Commands recognized by the terminal client, reported by the handshake.
var Commands = []string{
	"/help", "/nick", "/leave", "/list", "/join",
	"/create", "/delete", "/away", "/msg", "/ban", "/kick",
	"/clear", "/file", "/list_files", "/get_file",
}

// Envelope frames every message exchanged over a connection. Data holds
// the event payload; ID is set on requests and echoed on acks.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewPush builds a fire-and-forget envelope for an outbound event.
func NewPush(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %q payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// NewRequest builds a request envelope carrying a correlation id.
func NewRequest(id, event string, payload any) (Envelope, error) {
	env, err := NewPush(event, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.ID = id
	return env, nil
}

// NewAck builds the response to the request identified by id.
func NewAck(id string, payload any) (Envelope, error) {
	env, err := NewPush(EventAck, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.ID = id
	return env, nil
}

// Decode unmarshals the envelope payload into out.
func (e Envelope) Decode(out any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("decoding %q payload: %w", e.Event, err)
	}
	return nil
}
