// Package webhook fans orchestrator events out to registered HTTP
// receivers. Deliveries are queued and sent by worker goroutines with
// exponential backoff; payloads are HMAC-SHA256 signed when the
// webhook has a secret.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pretyflaco/voucherprint/internal/history"
	"github.com/pretyflaco/voucherprint/internal/printing"
)

// Wire event names. These are the external contract and stay stable
// even if the orchestrator's internal event names move.
const (
	EventJobStarted   = "job_started"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
)

// Payload is the envelope POSTed to receivers.
type Payload struct {
	DeliveryID string       `json:"delivery_id"`
	Event      string       `json:"event"`
	Timestamp  time.Time    `json:"timestamp"`
	Data       JobEventData `json:"data"`
	Signature  string       `json:"signature,omitempty"`
}

// JobEventData describes the job the event is about.
type JobEventData struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Adapter    string `json:"adapter,omitempty"`
	SatsAmount int64  `json:"sats_amount,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Config tunes delivery behavior. Zero values pick the defaults.
type Config struct {
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

type task struct {
	webhook *history.Webhook
	payload *Payload
	attempt int
}

type Sender struct {
	store      *history.Store
	logger     *slog.Logger
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
	workers    int
}

func NewSender(store *history.Store, cfg Config, logger *slog.Logger) *Sender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sender{
		store:      store,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		queue:      make(chan *task, cfg.QueueSize),
		stopCh:     make(chan struct{}),
		workers:    cfg.WorkerCount,
	}
}

func (s *Sender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Attach subscribes the sender to a service's job events. The
// returned function detaches it again.
func (s *Sender) Attach(svc *printing.Service) func() {
	unsubs := []printing.Unsubscribe{
		svc.Subscribe(printing.EventJobStarted, func(ev printing.Event) {
			s.Enqueue(EventJobStarted, dataFromEvent(ev))
		}),
		svc.Subscribe(printing.EventJobCompleted, func(ev printing.Event) {
			s.Enqueue(EventJobCompleted, dataFromEvent(ev))
		}),
		svc.Subscribe(printing.EventJobFailed, func(ev printing.Event) {
			s.Enqueue(EventJobFailed, dataFromEvent(ev))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func dataFromEvent(ev printing.Event) JobEventData {
	return JobEventData{
		JobID:      ev.JobID,
		Status:     string(ev.Status),
		Adapter:    ev.Adapter,
		SatsAmount: ev.SatsAmount,
		Attempts:   ev.Attempt,
		Error:      ev.Error,
	}
}

// Enqueue queues one delivery per registered webhook subscribed to the
// event. A full queue drops the delivery rather than blocking the
// print path.
func (s *Sender) Enqueue(event string, data JobEventData) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	webhooks, err := s.store.ListActiveWebhooksForEvent(ctx, event)
	if err != nil {
		s.logger.Error("webhook lookup failed", "event", event, "error", err)
		return
	}

	for _, w := range webhooks {
		t := &task{
			webhook: w,
			payload: &Payload{
				DeliveryID: uuid.NewString(),
				Event:      event,
				Timestamp:  time.Now(),
				Data:       data,
			},
		}
		select {
		case s.queue <- t:
		default:
			s.logger.Warn("webhook queue full, dropping delivery",
				"webhookId", w.ID, "event", event)
		}
	}
}

// Deliver sends one payload to one webhook synchronously, bypassing
// the queue. The test-fire API uses it.
func (s *Sender) Deliver(w *history.Webhook, event string, data JobEventData) error {
	return s.send(w, &Payload{
		DeliveryID: uuid.NewString(),
		Event:      event,
		Timestamp:  time.Now(),
		Data:       data,
	})
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				s.logger.Error("webhook delivery failed",
					"worker", id, "webhookId", t.webhook.ID,
					"event", t.payload.Event, "attempts", t.attempt, "error", err)
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	var lastErr error
	for t.attempt < s.retryCount {
		t.attempt++

		err := s.send(t.webhook, t.payload)
		if err == nil {
			return nil
		}
		lastErr = err

		var httpErr *httpError
		if errors.As(err, &httpErr) && httpErr.clientError() {
			// The receiver rejected the payload; retrying will not
			// change its mind.
			return err
		}

		if t.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(t.attempt-1))
			s.logger.Warn("webhook retry scheduled",
				"webhookId", t.webhook.ID, "attempt", t.attempt, "backoff", backoff, "error", err)
			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) send(w *history.Webhook, payload *Payload) error {
	dataBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	if w.Secret != "" {
		payload.Signature = Sign(dataBytes, w.Secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", payload.Event)
	req.Header.Set("X-Webhook-Delivery", payload.DeliveryID)
	if payload.Signature != "" {
		req.Header.Set("X-Webhook-Signature", payload.Signature)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &httpError{status: resp.StatusCode}
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of the data payload, the value
// receivers verify against X-Webhook-Signature.
func Sign(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

type httpError struct {
	status int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http error: %d", e.status)
}

func (e *httpError) clientError() bool {
	return e.status >= 400 && e.status < 500
}
