// Package fanout resolves abstract recipient sets (usernames) to the
// live connections behind them and pushes protocol events. It isolates
// "who is online right now" from the membership and routing logic:
// callers name users, never connections.
package fanout

import (
	"log/slog"
	"sync"

	"group-chat/contract"
	"group-chat/domain/event"
)

type Fanout struct {
	mu    sync.RWMutex
	log   *slog.Logger
	sinks map[string]contract.EventSink
}

func NewFanout(log *slog.Logger) *Fanout {
	return &Fanout{
		log:   log,
		sinks: make(map[string]contract.EventSink),
	}
}

// Attach binds a username to its live connection's sink.
func (f *Fanout) Attach(user string, sink contract.EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[user] = sink
}

// Detach drops the binding on disconnect.
func (f *Fanout) Detach(user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sinks, user)
}

// Rename moves a live binding to a new username.
func (f *Fanout) Rename(old, new string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sink, ok := f.sinks[old]; ok {
		delete(f.sinks, old)
		f.sinks[new] = sink
	}
}

// Online reports whether user currently has a live connection.
func (f *Fanout) Online(user string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.sinks[user]
	return ok
}

// ConnectionCount is used by the stats reporter.
func (f *Fanout) ConnectionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// Resolve filters users down to the sinks of those online. Offline
// names are silently skipped.
func (f *Fanout) Resolve(users []string) []contract.EventSink {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var live []contract.EventSink
	for _, user := range users {
		if sink, ok := f.sinks[user]; ok {
			live = append(live, sink)
		}
	}
	return live
}

// Send pushes an event to every online user in the set. Delivery is
// best effort; a failed sink is logged and never retried.
func (f *Fanout) Send(users []string, e event.Outbound) {
	for _, sink := range f.Resolve(users) {
		if err := sink.Consume(e); err != nil {
			f.log.Warn("event dropped", "event", e.EventName(), "error", err)
		}
	}
}

// BroadcastAll pushes an event to every live connection, used for
// global group-list updates and file relays.
func (f *Fanout) BroadcastAll(e event.Outbound) {
	f.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(f.sinks))
	for _, sink := range f.sinks {
		sinks = append(sinks, sink)
	}
	f.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(e); err != nil {
			f.log.Warn("event dropped", "event", e.EventName(), "error", err)
		}
	}
}
