package workers

import (
	"context"
	"log/slog"
	"time"

	"group-chat/fanout"
	"group-chat/observability"
	"group-chat/registry"
)

// ReporterWorker periodically logs a snapshot of server statistics:
// activity counters, process metrics, live connections and group count.
type ReporterWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    *observability.Stats
	reg      *registry.Registry
	notify   *fanout.Fanout
}

func NewReporterWorker(log *slog.Logger, interval time.Duration,
	stats *observability.Stats, reg *registry.Registry, notify *fanout.Fanout) *ReporterWorker {
	return &ReporterWorker{
		log:      log,
		interval: interval,
		stats:    stats,
		reg:      reg,
		notify:   notify,
	}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := w.stats.Snapshot()
			snap["online"] = w.notify.ConnectionCount()
			snap["groups"] = w.reg.GroupCount()
			w.log.Info("server stats", "stats", snap)
		}
	}
}
