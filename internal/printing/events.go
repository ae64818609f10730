package printing

import (
	"log/slog"
	"sync"
	"time"
)

// Event names a subscriber can attach to.
const (
	EventJobStarted   = "jobStarted"
	EventJobStatus    = "jobStatus"
	EventJobCompleted = "jobCompleted"
	EventJobFailed    = "jobFailed"
)

// Event describes one job-lifecycle notification.
type Event struct {
	Name       string    `json:"event"`
	JobID      string    `json:"jobId"`
	Status     Status    `json:"status"`
	Adapter    string    `json:"adapter,omitempty"`
	Error      string    `json:"error,omitempty"`
	Attempt    int       `json:"attempt,omitempty"`
	SatsAmount int64     `json:"satsAmount,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handler receives events. Handlers run synchronously on the emitting
// goroutine; a panicking handler is logged and never stops dispatch.
type Handler func(Event)

// Unsubscribe detaches a handler. Calling it twice is harmless.
type Unsubscribe func()

type emitter struct {
	logger *slog.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
}

func newEmitter(logger *slog.Logger) *emitter {
	return &emitter{
		logger:   logger,
		handlers: make(map[string]map[int]Handler),
	}
}

func (e *emitter) subscribe(name string, h Handler) Unsubscribe {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.handlers[name]
	if !ok {
		set = make(map[int]Handler)
		e.handlers[name] = set
	}
	id := e.nextID
	e.nextID++
	set[id] = h
	return func() {
		e.mu.Lock()
		delete(e.handlers[name], id)
		e.mu.Unlock()
	}
}

// emit dispatches over a snapshot of the handler set, so handlers can
// unsubscribe themselves mid-dispatch.
func (e *emitter) emit(ev Event) {
	ev.Timestamp = time.Now()

	e.mu.RLock()
	snapshot := make([]Handler, 0, len(e.handlers[ev.Name]))
	for _, h := range e.handlers[ev.Name] {
		snapshot = append(snapshot, h)
	}
	e.mu.RUnlock()

	for _, h := range snapshot {
		e.dispatch(ev, h)
	}
}

func (e *emitter) dispatch(ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked", "event", ev.Name, "jobId", ev.JobID, "panic", r)
		}
	}()
	h(ev)
}
