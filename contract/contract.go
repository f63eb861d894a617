package contract

import (
	"context"
	"reflect"

	"group-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound push events for one live connection.
// Consume must never block the caller; slow or dead connections drop.
type EventSink interface {
	Consume(e event.Outbound) error
}

// Notifier resolves username sets to live sinks and pushes events to
// them. Offline names are silently skipped.
type Notifier interface {
	Send(users []string, e event.Outbound)
	BroadcastAll(e event.Outbound)
}
