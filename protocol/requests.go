package protocol

import (
	"group-chat/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest carries the desired display name of a fresh session.
type RegisterRequest struct {
	Name string `json:"name" validate:"required,min=1,max=32,excludesall= "`
}

func (r RegisterRequest) Validate() error {
	return validate.Struct(r)
}

// CreateGroupRequest asks for a new group. The admin is always the
// calling session; any client-supplied admin field is ignored.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=32,excludesall= "`
}

func (r CreateGroupRequest) Validate() error {
	return validate.Struct(r)
}

// GroupRequest names a group for join/delete/leave/roster/query operations.
type GroupRequest struct {
	Group string `json:"group" validate:"required"`
}

func (r GroupRequest) Validate() error {
	return validate.Struct(r)
}

// RenameRequest asks to change the calling session's username.
type RenameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=32,excludesall= "`
}

func (r RenameRequest) Validate() error {
	return validate.Struct(r)
}

// SendMessageRequest broadcasts text to every member of a group.
type SendMessageRequest struct {
	Group string `json:"group"`
	Text  string `json:"text"`
}

// PrivateMessageRequest sends text to a single online user.
type PrivateMessageRequest struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// ModerationRequest targets a member for ban or kick.
type ModerationRequest struct {
	Target string `json:"target"`
	Group  string `json:"group"`
}

// AdmissionRequest settles a pending join request. Group may be empty on
// rejection, in which case the caller's administered groups are searched.
type AdmissionRequest struct {
	User  string `json:"user"`
	Group string `json:"group"`
}

// AwayRequest flags the calling session as away within a group.
type AwayRequest struct {
	Group string `json:"group"`
}

// FileRequest relays an opaque attachment payload to everyone.
type FileRequest struct {
	File string `json:"file"`
}

// Ack is the generic boolean response.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// JoinAck answers a join request. Users is the roster for immediate
// re-entry; Pending marks a request forwarded to the admin.
type JoinAck struct {
	Users   []string `json:"users,omitempty"`
	Pending bool     `json:"pending,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// RosterAck lists the members of a group.
type RosterAck struct {
	Users []string `json:"users,omitempty"`
	Error string   `json:"error,omitempty"`
}

// RenameAck reports the rename outcome and the name now in effect.
type RenameAck struct {
	OK   bool   `json:"ok"`
	Name string `json:"name"`
}

// GroupListAck lists every group on the server.
type GroupListAck struct {
	Groups []domain.GroupInfo `json:"groups"`
}

// GroupAck answers a single-group query.
type GroupAck struct {
	Group *domain.GroupInfo `json:"group,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Handshake answers "message of the day": the server date in unix
// seconds (kept as a string, as the legacy protocol did), the command
// vocabulary, and a snapshot of server statistics.
type Handshake struct {
	Date     string         `json:"date"`
	Commands []string       `json:"commands"`
	Stats    map[string]any `json:"stats,omitempty"`
}
