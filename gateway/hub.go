package gateway

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"group-chat/domain"
	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/fanout"
	"group-chat/membership"
	"group-chat/observability"
	"group-chat/protocol"
	"group-chat/registry"
	"group-chat/router"
)

// Hub is the single processing loop of the server. Every inbound frame,
// registration and disconnect is handled to completion, one at a time,
// before the next is picked up; engine, router and registry are only
// ever touched from this loop. Outbound notifications leave through
// buffered per-session channels and never block it.
type Hub struct {
	log    *slog.Logger
	reg    *registry.Registry
	engine *membership.Engine
	router *router.Router
	notify *fanout.Fanout
	stats  *observability.Stats

	register   chan *Session
	unregister chan *Session
	inbound    chan frame

	// username -> session, maintained by the loop for presence and
	// current-group bookkeeping.
	sessions map[string]*Session
}

type frame struct {
	sess *Session
	env  protocol.Envelope
}

func NewHub(log *slog.Logger, reg *registry.Registry, engine *membership.Engine,
	rt *router.Router, notify *fanout.Fanout, stats *observability.Stats, inboundBuffer int) *Hub {
	return &Hub{
		log:        log,
		reg:        reg,
		engine:     engine,
		router:     rt,
		notify:     notify,
		stats:      stats,
		register:   make(chan *Session, 64),
		unregister: make(chan *Session, 64),
		inbound:    make(chan frame, inboundBuffer),
		sessions:   make(map[string]*Session),
	}
}

// Run implements contract.Worker.
func (h *Hub) Run(ctx context.Context) error {
	h.log.Info("hub loop started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub loop stopping")
			h.closeAll()
			return nil
		case s := <-h.register:
			h.stats.Counts().IncrConnections()
			h.log.Info("session connected", "session", s.id)
		case s := <-h.unregister:
			h.handleDisconnect(s)
		case f := <-h.inbound:
			h.handleFrame(f.sess, f.env)
		}
	}
}

// Register announces a freshly upgraded connection.
func (h *Hub) Register(s *Session) {
	h.register <- s
}

// Unregister queues a disconnect for the loop.
func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// Dispatch queues an inbound frame. A full queue drops the frame; the
// mutation path must never be stalled by one flooding connection.
func (h *Hub) Dispatch(s *Session, env protocol.Envelope) {
	select {
	case h.inbound <- frame{sess: s, env: env}:
	default:
		h.log.Warn("inbound queue full, frame dropped", "event", env.Event, "session", s.id)
	}
}

func (h *Hub) handleDisconnect(s *Session) {
	if s.username != "" {
		h.notify.Detach(s.username)
		h.reg.RemoveUser(s.username)
		delete(h.sessions, s.username)
		// Group memberships survive on purpose: a disconnected user
		// stays on the rosters of the groups they joined.
	}
	s.close()
	h.stats.Counts().IncrDisconnects()
	h.log.Info("session disconnected", "session", s.id, "user", s.username)
}

func (h *Hub) closeAll() {
	for _, s := range h.sessions {
		h.notify.Detach(s.username)
		s.close()
	}
	h.sessions = make(map[string]*Session)
}

func (h *Hub) handleFrame(s *Session, env protocol.Envelope) {
	switch env.Event {
	case protocol.EventMessageOfTheDay:
		h.handleHandshake(s, env)
	case protocol.EventNewUser:
		h.handleNewUser(s, env)
	case protocol.EventShowGroups:
		h.pushGroupList(s)
	case protocol.EventAllGroups:
		s.reply(env.ID, protocol.GroupListAck{Groups: h.reg.AllGroups()})
	case protocol.EventNewGroup:
		h.handleNewGroup(s, env)
	case protocol.EventJoinGroup:
		h.handleJoin(s, env)
	case protocol.EventApproveJoin:
		h.handleApprove(s, env)
	case protocol.EventRejectJoin:
		h.handleReject(s, env)
	case protocol.EventDeleteGroup:
		h.handleDeleteGroup(s, env)
	case protocol.EventGroupUsers:
		h.handleGroupUsers(s, env)
	case protocol.EventGroupWithName:
		h.handleGroupWithName(s, env)
	case protocol.EventLeaveGroup:
		h.handleLeave(s, env)
	case protocol.EventRename:
		h.handleRename(s, env)
	case protocol.EventSendMessage:
		h.handleSendMessage(s, env)
	case protocol.EventPrivateMessage:
		h.handlePrivateMessage(s, env)
	case protocol.EventBan:
		h.handleModeration(s, env, protocol.EventBan)
	case protocol.EventKick:
		h.handleModeration(s, env, protocol.EventKick)
	case protocol.EventAway:
		h.handleAway(s, env)
	case protocol.EventSendFile:
		h.handleSendFile(s, env)
	default:
		h.log.Warn("unknown event", "event", env.Event, "session", s.id)
	}
}

// handleHandshake answers "message of the day": server date in unix
// seconds, the command vocabulary and current server stats.
func (h *Hub) handleHandshake(s *Session, env protocol.Envelope) {
	s.reply(env.ID, protocol.Handshake{
		Date:     strconv.FormatInt(time.Now().Unix(), 10),
		Commands: protocol.Commands,
		Stats:    h.stats.Snapshot(),
	})
}

func (h *Hub) handleNewUser(s *Session, env protocol.Envelope) {
	var req protocol.RegisterRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if s.username != "" {
		s.reply(env.ID, protocol.Ack{Error: "session already registered as " + s.username})
		return
	}
	if err := h.reg.RegisterUser(req.Name); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	s.username = req.Name
	h.sessions[req.Name] = s
	h.notify.Attach(req.Name, s)
	h.log.Info("user registered", "user", req.Name, "session", s.id)
	s.reply(env.ID, protocol.Ack{OK: true})
}

func (h *Hub) pushGroupList(s *Session) {
	if err := s.Consume(event.GroupList{Groups: h.reg.AllGroups()}); err != nil {
		h.log.Warn("group list push failed", "session", s.id, "error", err)
	}
}

func (h *Hub) handleNewGroup(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventNewGroup)
	if !ok {
		return
	}
	var req protocol.CreateGroupRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if err := h.engine.CreateGroup(req.Name, user); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	s.reply(env.ID, protocol.Ack{OK: true})
}

func (h *Hub) handleJoin(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventJoinGroup)
	if !ok {
		return
	}
	var req protocol.GroupRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.JoinAck{Error: err.Error()})
		return
	}
	res, err := h.engine.RequestJoin(user, req.Group)
	if err != nil {
		s.reply(env.ID, protocol.JoinAck{Error: err.Error()})
		return
	}
	switch res.State {
	case domain.StateMember:
		s.currentGroup = req.Group
		s.reply(env.ID, protocol.JoinAck{Users: res.Members})
	default:
		s.reply(env.ID, protocol.JoinAck{Pending: true})
	}
}

func (h *Hub) handleApprove(s *Session, env protocol.Envelope) {
	caller, ok := h.requireUser(s, env, protocol.EventApproveJoin)
	if !ok {
		return
	}
	var req protocol.AdmissionRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, protocol.EventApproveJoin, err)
		return
	}
	if err := h.engine.Approve(caller, req.User, req.Group); err != nil {
		h.rejectCommand(s, protocol.EventApproveJoin, err)
		return
	}
	if joined, ok := h.sessions[req.User]; ok {
		joined.currentGroup = req.Group
	}
}

func (h *Hub) handleReject(s *Session, env protocol.Envelope) {
	caller, ok := h.requireUser(s, env, protocol.EventRejectJoin)
	if !ok {
		return
	}
	var req protocol.AdmissionRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, protocol.EventRejectJoin, err)
		return
	}
	if err := h.engine.Reject(caller, req.User, req.Group); err != nil {
		h.rejectCommand(s, protocol.EventRejectJoin, err)
	}
}

func (h *Hub) handleDeleteGroup(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventDeleteGroup)
	if !ok {
		return
	}
	var req protocol.GroupRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if err := h.engine.DeleteGroup(user, req.Group); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	h.clearCurrentGroup(req.Group)
	s.reply(env.ID, protocol.Ack{OK: true})
}

func (h *Hub) handleGroupUsers(s *Session, env protocol.Envelope) {
	var req protocol.GroupRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.RosterAck{Error: err.Error()})
		return
	}
	g, err := h.reg.FindGroup(req.Group)
	if err != nil {
		s.reply(env.ID, protocol.RosterAck{Error: err.Error()})
		return
	}
	s.reply(env.ID, protocol.RosterAck{Users: g.Members()})
}

// handleGroupWithName serves the single-group query. The legacy server
// registered this handler as a side effect of the first message sent;
// here it is a plain, always-available request.
func (h *Hub) handleGroupWithName(s *Session, env protocol.Envelope) {
	var req protocol.GroupRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.GroupAck{Error: err.Error()})
		return
	}
	g, err := h.reg.FindGroup(req.Group)
	if err != nil {
		s.reply(env.ID, protocol.GroupAck{Error: err.Error()})
		return
	}
	info := g.Info()
	s.reply(env.ID, protocol.GroupAck{Group: &info})
}

func (h *Hub) handleLeave(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventLeaveGroup)
	if !ok {
		return
	}
	var req protocol.GroupRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if err := h.engine.Leave(user, req.Group); err != nil {
		s.reply(env.ID, protocol.Ack{Error: err.Error()})
		return
	}
	if s.currentGroup == req.Group {
		s.currentGroup = ""
	}
	s.reply(env.ID, protocol.Ack{OK: true})
}

func (h *Hub) handleRename(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventRename)
	if !ok {
		return
	}
	var req protocol.RenameRequest
	if err := env.Decode(&req); err != nil {
		s.reply(env.ID, protocol.RenameAck{OK: false, Name: user})
		return
	}
	if err := req.Validate(); err != nil {
		s.reply(env.ID, protocol.RenameAck{OK: false, Name: user})
		return
	}
	if err := h.engine.RenameUser(user, req.Name); err != nil {
		s.reply(env.ID, protocol.RenameAck{OK: false, Name: user})
		return
	}
	s.username = req.Name
	delete(h.sessions, user)
	h.sessions[req.Name] = s
	h.notify.Rename(user, req.Name)
	s.reply(env.ID, protocol.RenameAck{OK: true, Name: req.Name})
}

func (h *Hub) handleSendMessage(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventSendMessage)
	if !ok {
		return
	}
	var req protocol.SendMessageRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, protocol.EventSendMessage, err)
		return
	}
	if err := h.router.BroadcastToGroup(user, req.Group, req.Text); err != nil {
		h.rejectCommand(s, protocol.EventSendMessage, err)
		return
	}
	h.stats.Counts().IncrMessagesRouted()
}

func (h *Hub) handlePrivateMessage(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventPrivateMessage)
	if !ok {
		return
	}
	var req protocol.PrivateMessageRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, protocol.EventPrivateMessage, err)
		return
	}
	// An away target is already answered by the router with a
	// "target is away" notice; nothing more to report here.
	if err := h.router.SendPrivate(user, req.Target, req.Text); err == nil {
		h.stats.Counts().IncrMessagesRouted()
	}
}

func (h *Hub) handleModeration(s *Session, env protocol.Envelope, command string) {
	caller, ok := h.requireUser(s, env, command)
	if !ok {
		return
	}
	var req protocol.ModerationRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, command, err)
		return
	}
	var err error
	if command == protocol.EventBan {
		err = h.engine.Ban(caller, req.Target, req.Group)
	} else {
		err = h.engine.Kick(caller, req.Target, req.Group)
	}
	if err != nil {
		h.rejectCommand(s, command, err)
		return
	}
	if target, ok := h.sessions[req.Target]; ok && target.currentGroup == req.Group {
		target.currentGroup = ""
	}
}

func (h *Hub) handleAway(s *Session, env protocol.Envelope) {
	user, ok := h.requireUser(s, env, protocol.EventAway)
	if !ok {
		return
	}
	var req protocol.AwayRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, protocol.EventAway, err)
		return
	}
	if err := h.router.MarkAway(user, req.Group); err != nil {
		h.rejectCommand(s, protocol.EventAway, err)
	}
}

func (h *Hub) handleSendFile(s *Session, env protocol.Envelope) {
	if _, ok := h.requireUser(s, env, protocol.EventSendFile); !ok {
		return
	}
	var req protocol.FileRequest
	if err := env.Decode(&req); err != nil {
		h.rejectCommand(s, protocol.EventSendFile, err)
		return
	}
	h.router.BroadcastFile(req.File)
}

// requireUser resolves the caller identity from the session itself.
// Unregistered sessions get the failure on their response channel for
// requests, or as a "command rejected" push for fire-and-forget events.
func (h *Hub) requireUser(s *Session, env protocol.Envelope, command string) (string, bool) {
	if s.username != "" {
		return s.username, true
	}
	if env.ID != "" {
		s.reply(env.ID, protocol.Ack{Error: errors.ErrNotRegistered.Error()})
	} else {
		h.rejectCommand(s, command, errors.ErrNotRegistered)
	}
	return "", false
}

func (h *Hub) rejectCommand(s *Session, command string, err error) {
	h.log.Info("command rejected", "command", command, "session", s.id, "reason", err)
	if pushErr := s.Consume(event.CommandRejected{Command: command, Reason: err.Error()}); pushErr != nil {
		h.log.Warn("rejection push failed", "session", s.id, "error", pushErr)
	}
}

func (h *Hub) clearCurrentGroup(group string) {
	for _, sess := range h.sessions {
		if sess.currentGroup == group {
			sess.currentGroup = ""
		}
	}
}
