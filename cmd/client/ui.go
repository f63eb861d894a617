package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"group-chat/domain"
	"group-chat/domain/event"
	"group-chat/protocol"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// ui renders server traffic on the terminal.
type ui struct{}

func newUI(colours bool) *ui {
	if !colours {
		color.Disable()
	}
	return &ui{}
}

func (u *ui) welcome(motd protocol.Handshake) {
	if secs, err := strconv.ParseInt(motd.Date, 10, 64); err == nil {
		color.Cyan.Printf("connected, server time %s\n", time.Unix(secs, 0).Format(time.RFC1123))
	}
	color.Gray.Printf("commands: %s\n", strings.Join(motd.Commands, " "))
}

func (u *ui) help() {
	color.Gray.Println(strings.Join(protocol.Commands, " "))
	color.Gray.Println("/accept <user> and /reject <user> settle join requests in your group")
}

func (u *ui) promptf(format string, args ...any) {
	color.Yellow.Printf(format, args...)
}

func (u *ui) infof(format string, args ...any) {
	color.Green.Printf(format+"\n", args...)
}

func (u *ui) errorf(format string, args ...any) {
	color.Red.Printf(format+"\n", args...)
}

func (u *ui) clear() {
	fmt.Print("\033[2J\033[H")
}

func (u *ui) roster(group string, users []string) {
	color.Cyan.Printf("users on %q: %s\n", group, strings.Join(users, ", "))
}

// groupTable lists every group in a compact borderless table.
func (u *ui) groupTable(groups []domain.GroupInfo) {
	if len(groups) == 0 {
		color.Gray.Println("no groups yet, /create one")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Group", "Admin", "Members", "Banned"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, g := range groups {
		table.Append([]string{
			g.Name,
			g.Admin,
			strings.Join(g.Users, ", "),
			strings.Join(g.Bans, ", "),
		})
	}
	table.Render()
}

// renderPush displays a fire-and-forget server event.
func (c *client) renderPush(env protocol.Envelope) {
	u := c.ui
	switch env.Event {
	case protocol.EventGroupList:
		var e event.GroupList
		if env.Decode(&e) == nil {
			u.groupTable(e.Groups)
		}

	case protocol.EventNewMessage:
		var e event.NewMessage
		if env.Decode(&e) == nil {
			if e.User == c.username {
				color.Gray.Printf("%s: %s\n", e.User, e.Msg)
			} else {
				color.White.Printf("%s: %s\n", e.User, e.Msg)
			}
		}

	case protocol.EventGotoMessages:
		var e event.GotoMessages
		if env.Decode(&e) == nil {
			c.currentGroup = e.Group
			u.infof("you are now chatting in %q", e.Group)
		}

	case protocol.EventRosterUpdate:
		var e event.RosterUpdate
		if env.Decode(&e) == nil {
			u.roster(e.Group, e.Users)
		}

	case protocol.EventUserJoined:
		var e event.UserJoined
		if env.Decode(&e) == nil {
			u.infof("%s joined the group", e.User)
		}

	case protocol.EventAskPermission:
		u.infof("join request sent, waiting for the admin")

	case protocol.EventPermissionAsked:
		var e event.PermissionAsked
		if env.Decode(&e) == nil {
			u.promptf("%s wants to join %q: /accept %s or /reject %s\n",
				e.User, e.Group, e.User, e.User)
		}

	case protocol.EventPermissionAccepted:
		u.infof("the admin let you in")

	case protocol.EventPermissionRejected:
		u.errorf("the admin turned you down")

	case protocol.EventJoinDenied:
		u.errorf("you are banned from that group")

	case protocol.EventKicked:
		c.currentGroup = ""
		u.errorf("you have been kicked")

	case protocol.EventBanned:
		c.currentGroup = ""
		u.errorf("you have been banned")

	case protocol.EventUserAway:
		var e event.UserAway
		if env.Decode(&e) == nil {
			color.Gray.Printf("%s is away\n", e.User)
		}

	case protocol.EventUserBack:
		var e event.UserBack
		if env.Decode(&e) == nil {
			color.Gray.Printf("%s is no longer away\n", e.User)
		}

	case protocol.EventTargetAway:
		var e event.TargetAway
		if env.Decode(&e) == nil {
			u.errorf("%s is away, message not delivered", e.User)
		}

	case protocol.EventNewFile:
		u.infof("a file was shared with everyone")

	case protocol.EventCommandRejected:
		var e event.CommandRejected
		if env.Decode(&e) == nil {
			u.errorf("%q rejected: %s", e.Command, e.Reason)
		}
	}
}
