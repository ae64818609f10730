package printing

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitterDelivers(t *testing.T) {
	e := newEmitter(testLogger())

	var got []Event
	e.subscribe(EventJobStarted, func(ev Event) { got = append(got, ev) })
	e.emit(Event{Name: EventJobStarted, JobID: "job-1"})

	assert.Len(t, got, 1)
	assert.Equal(t, "job-1", got[0].JobID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestEmitterUnsubscribe(t *testing.T) {
	e := newEmitter(testLogger())

	calls := 0
	unsub := e.subscribe(EventJobStatus, func(Event) { calls++ })
	e.emit(Event{Name: EventJobStatus})
	unsub()
	unsub() // second call is a no-op
	e.emit(Event{Name: EventJobStatus})

	assert.Equal(t, 1, calls)
}

func TestEmitterUnsubscribeDuringDispatch(t *testing.T) {
	e := newEmitter(testLogger())

	calls := 0
	var unsub Unsubscribe
	unsub = e.subscribe(EventJobCompleted, func(Event) {
		calls++
		unsub()
	})
	e.emit(Event{Name: EventJobCompleted})
	e.emit(Event{Name: EventJobCompleted})

	assert.Equal(t, 1, calls)
}

func TestEmitterSurvivesPanickingHandler(t *testing.T) {
	e := newEmitter(testLogger())

	e.subscribe(EventJobFailed, func(Event) { panic("listener bug") })
	calls := 0
	e.subscribe(EventJobFailed, func(Event) { calls++ })

	assert.NotPanics(t, func() { e.emit(Event{Name: EventJobFailed}) })
	assert.Equal(t, 1, calls)
}

func TestEmitterIgnoresOtherEvents(t *testing.T) {
	e := newEmitter(testLogger())

	calls := 0
	e.subscribe(EventJobFailed, func(Event) { calls++ })
	e.emit(Event{Name: EventJobCompleted})

	assert.Zero(t, calls)
}
