package history

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruner deletes history rows past their retention period on a timer.
type Pruner struct {
	store         *Store
	logger        *slog.Logger
	retentionDays int
	interval      time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

func NewPruner(store *Store, retentionDays int, interval time.Duration, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Pruner{
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
		interval:      interval,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the prune loop. Retention of zero days disables it.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.retentionDays <= 0 {
		return
	}
	p.running = true
	go p.loop()
}

func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stopCh)
}

func (p *Pruner) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.runOnce()
		}
	}
}

func (p *Pruner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -p.retentionDays)
	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("history pruned", "deleted", deleted, "cutoff", cutoff.Format("2006-01-02"))
	}
}
