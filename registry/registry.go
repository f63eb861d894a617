// Package registry holds the canonical in-memory state of the chat
// server: live usernames, groups with their ban lists, and away markers.
// Every mutator is atomic and keeps the cross-references consistent, so
// the rest of the system can treat the registry as always-valid.
package registry

import (
	"sort"
	"sync"

	"group-chat/domain"
	"group-chat/errors"

	"github.com/samber/lo"
)

type Registry struct {
	mu     sync.RWMutex
	users  map[string]struct{}
	groups map[string]*domain.Group
	away   map[string]map[string]struct{} // username -> group names
}

func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]struct{}),
		groups: make(map[string]*domain.Group),
		away:   make(map[string]map[string]struct{}),
	}
}

// RegisterUser claims a username. Duplicate names are rejected so that
// at most one live session ever owns a given identity.
func (r *Registry) RegisterUser(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.users[name]; taken {
		return errors.ErrNameTaken
	}
	r.users[name] = struct{}{}
	return nil
}

// RemoveUser releases a username on disconnect. Group memberships are
// deliberately left untouched: a disconnected user remains a member of
// the groups they joined and may pick up where they left off.
func (r *Registry) RemoveUser(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, name)
}

// HasUser reports whether name belongs to a live session.
func (r *Registry) HasUser(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[name]
	return ok
}

// RenameUser swaps old for new in the username set and propagates the
// new name into every group where old appears: admin field, member,
// ban and pending sets. Away markers follow as well.
func (r *Registry) RenameUser(old, new string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.users[new]; taken {
		return errors.ErrNameTaken
	}
	if _, ok := r.users[old]; !ok {
		return errors.ErrUserNotFound
	}
	delete(r.users, old)
	r.users[new] = struct{}{}

	for _, g := range r.groups {
		g.Rename(old, new)
	}
	if marks, ok := r.away[old]; ok {
		delete(r.away, old)
		r.away[new] = marks
	}
	return nil
}

// Users returns the live usernames in stable order.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortStrings(lo.Keys(r.users))
}

// CreateGroup creates a group whose sole member is its admin.
func (r *Registry) CreateGroup(name, admin string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.groups[name]; taken {
		return nil, errors.ErrNameTaken
	}
	g := domain.NewGroup(name, admin)
	r.groups[name] = g
	return g, nil
}

// DeleteGroup removes a group, but only once its sole remaining member
// is the admin. Anything else answers ErrGroupNotEmpty and leaves the
// group untouched.
func (r *Registry) DeleteGroup(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		return errors.ErrGroupNotFound
	}
	if g.Size() != 1 || !g.HasMember(g.Admin) {
		return errors.ErrGroupNotEmpty
	}
	delete(r.groups, name)
	return nil
}

// FindGroup looks a group up by exact name. Lookup misses surface as
// ErrGroupNotFound instead of a nil dereference further down.
func (r *Registry) FindGroup(name string) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[name]
	if !ok {
		return nil, errors.ErrGroupNotFound
	}
	return g, nil
}

// AllGroups snapshots every group in stable order.
func (r *Registry) AllGroups() []domain.GroupInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := sortStrings(lo.Keys(r.groups))
	return lo.Map(names, func(name string, _ int) domain.GroupInfo {
		return r.groups[name].Info()
	})
}

// GroupCount is used by the stats reporter.
func (r *Registry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// MarkAway records that user is non-responsive within group.
func (r *Registry) MarkAway(user, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.away[user]; !ok {
		r.away[user] = make(map[string]struct{})
	}
	r.away[user][group] = struct{}{}
}

// IsAway reports whether user holds any away marker.
func (r *Registry) IsAway(user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.away[user]) > 0
}

// ClearAway drops every away marker of user, across all groups, and
// reports whether there was any to drop.
func (r *Registry) ClearAway(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, wasAway := r.away[user]
	delete(r.away, user)
	return wasAway
}

func sortStrings(names []string) []string {
	sort.Strings(names)
	return names
}
