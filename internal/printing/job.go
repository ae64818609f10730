// Package printing orchestrates print jobs: validation, receipt
// building, adapter selection, retries, events and batching. Its
// public entry points never return errors; every failure becomes a
// Result and an emitted event.
package printing

import (
	"time"

	"github.com/pretyflaco/voucherprint/internal/receipt"
	"github.com/pretyflaco/voucherprint/internal/voucher"
)

// Status is a job's position in its lifecycle. Transitions only move
// forward: PENDING, PREPARING, SENDING, then one terminal state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusSending   Status = "SENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusSending:   2,
	StatusCompleted: 3,
	StatusFailed:    3,
	StatusCancelled: 3,
}

// Terminal reports whether a status ends the job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job tracks one voucher print while it is in flight. Jobs live in
// memory only and are dropped once their terminal status has been
// emitted.
type Job struct {
	ID        string
	Status    Status
	Voucher   voucher.Voucher
	Options   receipt.Options
	Attempts  int
	CreatedAt time.Time
}

// Result is the outcome contract of a single print.
type Result struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Adapter string `json:"adapter,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchResult aggregates a sequential batch, preserving input order.
type BatchResult struct {
	Results      []Result `json:"results"`
	SuccessCount int      `json:"successCount"`
	FailCount    int      `json:"failCount"`
	Total        int      `json:"total"`
}
