// Package observability aggregates runtime statistics of the chat
// server: connection and message counters plus self-reported process
// metrics (RSS, CPU). The snapshot feeds the handshake response and the
// periodic stats reporter.
package observability

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Counts tracks hub activity with atomic counters so the hot path never
// takes a lock.
type Counts struct {
	MessagesRouted uint64
	EventsPushed   uint64
	EventsDropped  uint64
	Connections    uint64
	Disconnects    uint64
}

func (c *Counts) IncrMessagesRouted() { atomic.AddUint64(&c.MessagesRouted, 1) }
func (c *Counts) IncrEventsPushed()   { atomic.AddUint64(&c.EventsPushed, 1) }
func (c *Counts) IncrEventsDropped()  { atomic.AddUint64(&c.EventsDropped, 1) }
func (c *Counts) IncrConnections()    { atomic.AddUint64(&c.Connections, 1) }
func (c *Counts) IncrDisconnects()    { atomic.AddUint64(&c.Disconnects, 1) }

// Stats combines activity counters with process-level metrics.
type Stats struct {
	counts  Counts
	proc    *process.Process
	started time.Time
}

func NewStats() *Stats {
	// A lookup failure leaves proc nil; snapshots then skip the
	// process metrics instead of failing the handshake.
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		p = nil
	}
	return &Stats{proc: p, started: time.Now()}
}

func (s *Stats) Counts() *Counts {
	return &s.counts
}

// Snapshot renders the current statistics as a JSON-friendly map.
func (s *Stats) Snapshot() map[string]any {
	snap := map[string]any{
		"uptime_s":        int64(time.Since(s.started).Seconds()),
		"messages_routed": atomic.LoadUint64(&s.counts.MessagesRouted),
		"events_pushed":   atomic.LoadUint64(&s.counts.EventsPushed),
		"events_dropped":  atomic.LoadUint64(&s.counts.EventsDropped),
		"connections":     atomic.LoadUint64(&s.counts.Connections),
		"disconnects":     atomic.LoadUint64(&s.counts.Disconnects),
	}
	if s.proc != nil {
		if mem, err := s.proc.MemoryInfo(); err == nil {
			snap["rss_bytes"] = mem.RSS
		}
		if cpu, err := s.proc.CPUPercent(); err == nil {
			snap["cpu_percent"] = cpu
		}
	}
	return snap
}
