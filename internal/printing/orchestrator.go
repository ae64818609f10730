package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pretyflaco/voucherprint/internal/receipt"
	"github.com/pretyflaco/voucherprint/internal/transport"
	"github.com/pretyflaco/voucherprint/internal/voucher"
)

// Config tunes the orchestrator's pacing. Zero values pick the
// defaults below.
type Config struct {
	// RetryDelay is the fixed wait between attempts of one job.
	RetryDelay time.Duration
	// InterJobDelay is the pause between jobs of a batch, giving the
	// printer time to drain its buffer.
	InterJobDelay time.Duration
	// MaxRetries caps extra attempts when the job enables retrying
	// but names no limit of its own.
	MaxRetries int
}

const (
	defaultRetryDelay    = 2 * time.Second
	defaultInterJobDelay = 500 * time.Millisecond
	defaultMaxRetries    = 2
)

// Service is the print orchestrator. One instance per process is the
// usual arrangement; construct it explicitly and inject it into the
// API layer. All entry points convert failures into Results and
// events, never returned errors.
type Service struct {
	logger   *slog.Logger
	composer *receipt.Composer
	manager  *transport.Manager
	cfg      Config
	events   *emitter
	jobSeq   atomic.Int64
}

func NewService(composer *receipt.Composer, manager *transport.Manager, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.InterJobDelay <= 0 {
		cfg.InterJobDelay = defaultInterJobDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Service{
		logger:   logger,
		composer: composer,
		manager:  manager,
		cfg:      cfg,
		events:   newEmitter(logger),
	}
}

// Subscribe attaches a handler to one named event. The returned
// function detaches it again.
func (s *Service) Subscribe(event string, h Handler) Unsubscribe {
	return s.events.subscribe(event, h)
}

// Manager exposes the connection manager for the discovery API.
func (s *Service) Manager() *transport.Manager { return s.manager }

// Composer exposes the receipt composer for preview endpoints.
func (s *Service) Composer() *receipt.Composer { return s.composer }

func (s *Service) newJob(v voucher.Voucher, opts receipt.Options) *Job {
	return &Job{
		ID:        fmt.Sprintf("job-%d", s.jobSeq.Add(1)),
		Status:    StatusPending,
		Voucher:   v,
		Options:   opts,
		CreatedAt: time.Now(),
	}
}

// setStatus advances the job and emits jobStatus. Backward transitions
// are dropped; the lifecycle only moves forward.
func (s *Service) setStatus(job *Job, status Status, errMsg string) {
	if statusRank[status] < statusRank[job.Status] {
		return
	}
	job.Status = status
	s.events.emit(Event{
		Name:       EventJobStatus,
		JobID:      job.ID,
		Status:     status,
		Error:      errMsg,
		Attempt:    job.Attempts,
		SatsAmount: job.Voucher.SatsAmount,
	})
}

// PrintVoucher runs one job through the full lifecycle and reports the
// outcome. It never returns an error; every failure comes back inside
// the Result and as a jobFailed event.
func (s *Service) PrintVoucher(ctx context.Context, v voucher.Voucher, opts receipt.Options) Result {
	job := s.newJob(v, opts)
	s.events.emit(Event{Name: EventJobStarted, JobID: job.ID, Status: job.Status, SatsAmount: v.SatsAmount})
	return s.run(ctx, job, nil)
}

// PrintWithAdapter prints one job over an explicit adapter type,
// leaving the manager's memoized selection untouched.
func (s *Service) PrintWithAdapter(ctx context.Context, v voucher.Voucher, opts receipt.Options, t transport.Type) Result {
	job := s.newJob(v, opts)
	s.events.emit(Event{Name: EventJobStarted, JobID: job.ID, Status: job.Status, SatsAmount: v.SatsAmount})

	adapter, ok := s.manager.Adapter(t)
	if !ok {
		return s.fail(job, fmt.Errorf("%w: unknown adapter type %q", transport.ErrAdapterUnavailable, t))
	}
	return s.run(ctx, job, adapter)
}

// run is the single normalization point for the error taxonomy: every
// failure below it surfaces here and becomes a Result plus events.
func (s *Service) run(ctx context.Context, job *Job, adapter transport.Adapter) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("print job panicked", "jobId", job.ID, "panic", r)
			res = s.fail(job, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := job.Voucher.Validate(); err != nil {
		return s.fail(job, err)
	}

	s.setStatus(job, StatusPreparing, "")
	data, err := s.composer.Bytes(job.Voucher, job.Options)
	if err != nil {
		return s.fail(job, fmt.Errorf("build receipt: %w", err))
	}

	s.setStatus(job, StatusSending, "")
	if adapter == nil {
		adapter, err = s.manager.ActiveAdapter(ctx)
		if err != nil {
			return s.fail(job, err)
		}
	}

	pc := transport.PrintContext{
		Voucher:    job.Voucher,
		PaperWidth: job.Options.PaperWidth,
		QRMode:     qrMode(job.Options),
	}
	if err := s.send(ctx, job, adapter, data, pc); err != nil {
		return s.fail(job, err)
	}

	s.setStatus(job, StatusCompleted, "")
	s.events.emit(Event{
		Name:       EventJobCompleted,
		JobID:      job.ID,
		Status:     StatusCompleted,
		Adapter:    adapter.Name(),
		Attempt:    job.Attempts,
		SatsAmount: job.Voucher.SatsAmount,
	})
	s.logger.Info("print job completed", "jobId", job.ID, "adapter", adapter.Name(), "attempts", job.Attempts)
	return Result{Success: true, JobID: job.ID, Adapter: adapter.Name()}
}

// send attempts the transport call, retrying transport failures with a
// fixed delay when the job allows it. Validation and availability
// failures never reach this point.
func (s *Service) send(ctx context.Context, job *Job, adapter transport.Adapter, data []byte, pc transport.PrintContext) error {
	attempts := 1
	if job.Options.RetryOnFail {
		extra := job.Options.MaxRetries
		if extra <= 0 {
			extra = s.cfg.MaxRetries
		}
		attempts += extra
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			s.logger.Warn("print attempt failed, retrying",
				"jobId", job.ID, "attempt", i, "delay", s.cfg.RetryDelay, "error", lastErr)
			if err := sleep(ctx, s.cfg.RetryDelay); err != nil {
				return err
			}
		}
		job.Attempts++
		lastErr = adapter.Print(ctx, data, pc)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, transport.ErrSend) {
			return lastErr
		}
	}
	return lastErr
}

// fail terminates the job, emitting jobStatus and jobFailed.
func (s *Service) fail(job *Job, err error) Result {
	msg := err.Error()
	s.setStatus(job, StatusFailed, msg)
	s.events.emit(Event{
		Name:       EventJobFailed,
		JobID:      job.ID,
		Status:     StatusFailed,
		Error:      msg,
		Attempt:    job.Attempts,
		SatsAmount: job.Voucher.SatsAmount,
	})
	s.logger.Warn("print job failed", "jobId", job.ID, "attempts", job.Attempts, "error", msg)
	return Result{Success: false, JobID: job.ID, Error: msg}
}

// PrintVouchers prints a batch sequentially, one job fully finishing
// before the next starts, with a short pause between jobs. Results
// preserve input order.
func (s *Service) PrintVouchers(ctx context.Context, vouchers []voucher.Voucher, opts receipt.Options) BatchResult {
	batch := BatchResult{
		Results: make([]Result, 0, len(vouchers)),
		Total:   len(vouchers),
	}
	for i, v := range vouchers {
		if i > 0 {
			if err := sleep(ctx, s.cfg.InterJobDelay); err != nil {
				// Caller gave up; remaining vouchers fail without
				// touching an adapter.
				for _, rest := range vouchers[i:] {
					job := s.newJob(rest, opts)
					batch.Results = append(batch.Results, s.fail(job, err))
					batch.FailCount++
				}
				return batch
			}
		}
		res := s.PrintVoucher(ctx, v, opts)
		batch.Results = append(batch.Results, res)
		if res.Success {
			batch.SuccessCount++
		} else {
			batch.FailCount++
		}
	}
	return batch
}

// ReceiptBytes builds a receipt without printing it.
func (s *Service) ReceiptBytes(v voucher.Voucher, opts receipt.Options) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return s.composer.Bytes(v, opts)
}

// ReceiptBase64 builds a receipt and base64-encodes it for transfer.
func (s *Service) ReceiptBase64(v voucher.Voucher, opts receipt.Options) (string, error) {
	if err := v.Validate(); err != nil {
		return "", err
	}
	return s.composer.Base64(v, opts)
}

// DeepLink builds the companion-app handoff URI for a voucher without
// launching anything.
func (s *Service) DeepLink(v voucher.Voucher, opts receipt.Options) (string, error) {
	if err := v.Validate(); err != nil {
		return "", err
	}
	a, ok := s.manager.Adapter(transport.TypeDeepLink)
	if !ok {
		return "", fmt.Errorf("%w: deep link adapter not registered", transport.ErrAdapterUnavailable)
	}
	dl, ok := a.(*transport.DeepLinkAdapter)
	if !ok {
		return "", fmt.Errorf("%w: deep link adapter not registered", transport.ErrAdapterUnavailable)
	}
	data, err := s.composer.Bytes(v, opts)
	if err != nil {
		return "", err
	}
	pc := transport.PrintContext{Voucher: v, PaperWidth: opts.PaperWidth, QRMode: qrMode(opts)}
	return dl.BuildURI(data, pc), nil
}

func qrMode(opts receipt.Options) string {
	if opts.UseNativeQR {
		return "native"
	}
	return "raster"
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
