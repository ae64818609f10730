package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pretyflaco/voucherprint/internal/printing"
)

// Recorder subscribes to orchestrator events and writes the audit
// trail. It keeps the start time of in-flight jobs in memory; the rows
// themselves are written once, at terminal status.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	started map[string]time.Time
}

func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		logger:  logger,
		started: make(map[string]time.Time),
	}
}

// Attach subscribes the recorder to a service. The returned function
// detaches it again.
func (r *Recorder) Attach(s *printing.Service) func() {
	unsubs := []printing.Unsubscribe{
		s.Subscribe(printing.EventJobStarted, r.handleStarted),
		s.Subscribe(printing.EventJobCompleted, r.handleFinished),
		s.Subscribe(printing.EventJobFailed, r.handleFinished),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (r *Recorder) handleStarted(ev printing.Event) {
	r.mu.Lock()
	r.started[ev.JobID] = ev.Timestamp
	r.mu.Unlock()
}

func (r *Recorder) handleFinished(ev printing.Event) {
	r.mu.Lock()
	startedAt, ok := r.started[ev.JobID]
	delete(r.started, ev.JobID)
	r.mu.Unlock()

	entry := &Entry{
		JobID:      ev.JobID,
		SatsAmount: ev.SatsAmount,
		Adapter:    ev.Adapter,
		Status:     string(ev.Status),
		Attempts:   ev.Attempt,
	}
	if ev.Name == printing.EventJobFailed {
		entry.ErrorMessage = ev.Error
	}
	if ok {
		entry.StartedAt = &startedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.InsertEntry(ctx, entry); err != nil {
		r.logger.Error("record history entry", "jobId", ev.JobID, "error", err)
		return
	}
	if ev.Status == printing.StatusCompleted && ev.Adapter != "" {
		if err := r.store.IncrementCounter(ctx, ev.Adapter, ev.Timestamp); err != nil {
			r.logger.Error("increment print counter", "adapter", ev.Adapter, "error", err)
		}
	}
}
