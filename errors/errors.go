package errors

import "fmt"

var (
	ErrNameTaken        = fmt.Errorf("name already taken")
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrGroupNotFound    = fmt.Errorf("group not found")
	ErrGroupNotEmpty    = fmt.Errorf("group still has other members")
	ErrBanned           = fmt.Errorf("user is banned from this group")
	ErrNotMember        = fmt.Errorf("user is not a member of this group")
	ErrNoPendingRequest = fmt.Errorf("no pending join request")
	ErrUnauthorized     = fmt.Errorf("only the group admin may do this")
	ErrTargetAway       = fmt.Errorf("target user is away")
	ErrNotRegistered    = fmt.Errorf("session has no username yet")
	ErrSessionClosed    = fmt.Errorf("session is closed")
	ErrSendBufferFull   = fmt.Errorf("session send buffer full")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)
