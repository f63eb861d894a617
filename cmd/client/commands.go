package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"group-chat/protocol"
)

// handleLine interprets one terminal line: a slash command, or plain
// text broadcast to the current group.
func (c *client) handleLine(line string) error {
	if !strings.HasPrefix(line, "/") {
		if c.currentGroup == "" {
			return fmt.Errorf("join a group first (/list, /join <group>)")
		}
		c.send(protocol.EventSendMessage, protocol.SendMessageRequest{
			Group: c.currentGroup,
			Text:  line,
		})
		return nil
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		c.ui.help()
		return nil

	case "list":
		var ack protocol.GroupListAck
		if err := c.request(protocol.EventAllGroups, nil, &ack); err != nil {
			return err
		}
		c.ui.groupTable(ack.Groups)
		return nil

	case "create":
		if rest == "" {
			return fmt.Errorf("usage: /create <group>")
		}
		var ack protocol.Ack
		if err := c.request(protocol.EventNewGroup, protocol.CreateGroupRequest{Name: rest}, &ack); err != nil {
			return err
		}
		if !ack.OK {
			return fmt.Errorf("create failed: %s", ack.Error)
		}
		c.currentGroup = rest
		c.ui.infof("group %q created, you are its admin", rest)
		return nil

	case "join":
		if rest == "" {
			return fmt.Errorf("usage: /join <group>")
		}
		var ack protocol.JoinAck
		if err := c.request(protocol.EventJoinGroup, protocol.GroupRequest{Group: rest}, &ack); err != nil {
			return err
		}
		switch {
		case ack.Error != "":
			return fmt.Errorf("join failed: %s", ack.Error)
		case ack.Pending:
			c.ui.infof("waiting for the admin of %q to let you in", rest)
		default:
			c.currentGroup = rest
			c.ui.roster(rest, ack.Users)
		}
		return nil

	case "delete":
		if rest == "" {
			return fmt.Errorf("usage: /delete <group>")
		}
		var ack protocol.Ack
		if err := c.request(protocol.EventDeleteGroup, protocol.GroupRequest{Group: rest}, &ack); err != nil {
			return err
		}
		if !ack.OK {
			return fmt.Errorf("delete failed: %s", ack.Error)
		}
		if c.currentGroup == rest {
			c.currentGroup = ""
		}
		c.ui.infof("group %q deleted", rest)
		return nil

	case "leave":
		if c.currentGroup == "" {
			return fmt.Errorf("not in a group")
		}
		var ack protocol.Ack
		if err := c.request(protocol.EventLeaveGroup, protocol.GroupRequest{Group: c.currentGroup}, &ack); err != nil {
			return err
		}
		c.ui.infof("left %q", c.currentGroup)
		c.currentGroup = ""
		return nil

	case "nick":
		if rest == "" {
			return fmt.Errorf("usage: /nick <name>")
		}
		var ack protocol.RenameAck
		if err := c.request(protocol.EventRename, protocol.RenameRequest{Name: rest}, &ack); err != nil {
			return err
		}
		if !ack.OK {
			return fmt.Errorf("rename failed, still %q", ack.Name)
		}
		c.username = ack.Name
		c.ui.infof("you are now %q", ack.Name)
		return nil

	case "away":
		if c.currentGroup == "" {
			return fmt.Errorf("not in a group")
		}
		c.send(protocol.EventAway, protocol.AwayRequest{Group: c.currentGroup})
		c.ui.infof("you are now away in %q", c.currentGroup)
		return nil

	case "msg":
		target, text, ok := strings.Cut(rest, " ")
		if !ok || target == "" || text == "" {
			return fmt.Errorf("usage: /msg <user> <text>")
		}
		c.send(protocol.EventPrivateMessage, protocol.PrivateMessageRequest{Target: target, Text: text})
		return nil

	case "ban", "kick":
		if rest == "" || c.currentGroup == "" {
			return fmt.Errorf("usage (inside a group): /%s <user>", cmd)
		}
		eventName := protocol.EventBan
		if cmd == "kick" {
			eventName = protocol.EventKick
		}
		c.send(eventName, protocol.ModerationRequest{Target: rest, Group: c.currentGroup})
		return nil

	case "accept", "reject":
		if rest == "" {
			return fmt.Errorf("usage: /%s <user>", cmd)
		}
		eventName := protocol.EventApproveJoin
		if cmd == "reject" {
			eventName = protocol.EventRejectJoin
		}
		c.send(eventName, protocol.AdmissionRequest{User: rest, Group: c.currentGroup})
		return nil

	case "file":
		if rest == "" {
			return fmt.Errorf("usage: /file <path>")
		}
		data, err := os.ReadFile(rest)
		if err != nil {
			return err
		}
		c.send(protocol.EventSendFile, protocol.FileRequest{
			File: base64.StdEncoding.EncodeToString(data),
		})
		c.ui.infof("file %q sent to everyone", rest)
		return nil

	case "list_files", "get_file":
		// Files are relayed live to everyone connected; nothing is stored.
		return fmt.Errorf("no file store on this server, files arrive as they are sent")

	case "clear":
		c.ui.clear()
		return nil

	default:
		return fmt.Errorf("unknown command /%s, try /help", cmd)
	}
}
