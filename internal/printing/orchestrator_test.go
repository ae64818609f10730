package printing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pretyflaco/voucherprint/internal/receipt"
	"github.com/pretyflaco/voucherprint/internal/transport"
	"github.com/pretyflaco/voucherprint/internal/voucher"
)

// scriptedAdapter implements transport.Adapter and fails its first
// failBefore Print calls with a retryable transport error.
type scriptedAdapter struct {
	typ        transport.Type
	available  bool
	failBefore int
	hardErr    error

	mu     sync.Mutex
	prints int
}

func (a *scriptedAdapter) Type() transport.Type { return a.typ }
func (a *scriptedAdapter) Name() string         { return "scripted " + string(a.typ) }
func (a *scriptedAdapter) Capabilities() transport.Capabilities {
	return transport.Capabilities{Cut: true, Raster: true}
}
func (a *scriptedAdapter) Available(ctx context.Context) bool { return a.available }
func (a *scriptedAdapter) Connect(ctx context.Context) error  { return nil }
func (a *scriptedAdapter) Disconnect() error                  { return nil }
func (a *scriptedAdapter) Status() transport.Status           { return transport.Status{Connected: true} }

func (a *scriptedAdapter) Print(ctx context.Context, data []byte, pc transport.PrintContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prints++
	if a.hardErr != nil {
		return a.hardErr
	}
	if a.prints <= a.failBefore {
		return fmt.Errorf("%w: scripted failure %d", transport.ErrSend, a.prints)
	}
	return nil
}

func (a *scriptedAdapter) printCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prints
}

func newTestService(adapters ...transport.Adapter) *Service {
	m := transport.NewManagerForPlatform(transport.Platform{OS: "linux"}, nil, adapters...)
	cfg := Config{
		RetryDelay:    time.Millisecond,
		InterJobDelay: time.Millisecond,
	}
	return NewService(receipt.NewComposer(nil), m, cfg, nil)
}

func testVoucher() voucher.Voucher {
	return voucher.Voucher{
		LNURL:         "LNURL1DP68GURN8GHJ7MRWW4EXCTNDW46XJMNEW4HKJTT5V4EHGMN9WNNS6S3JVP",
		SatsAmount:    5000,
		VoucherSecret: "q6pvY79EftnZ",
	}
}

func TestPrintVoucherSuccess(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	s := newTestService(adapter)

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, adapter.Name(), res.Adapter)
	assert.Equal(t, 1, adapter.printCount())
}

func TestJobIDsAreMonotonic(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	s := newTestService(adapter)

	first := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{})
	second := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{})
	assert.Equal(t, "job-1", first.JobID)
	assert.Equal(t, "job-2", second.JobID)
}

func TestPrintVoucherMissingLNURL(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	s := newTestService(adapter)

	var failed []Event
	s.Subscribe(EventJobFailed, func(ev Event) { failed = append(failed, ev) })

	res := s.PrintVoucher(context.Background(), voucher.Voucher{}, receipt.Options{})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "LNURL")
	assert.Equal(t, 0, adapter.printCount(), "validation failure must not touch the adapter")
	require.Len(t, failed, 1)
	assert.Equal(t, StatusFailed, failed[0].Status)
}

func TestPrintVoucherStatusOrder(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	s := newTestService(adapter)

	var statuses []Status
	s.Subscribe(EventJobStatus, func(ev Event) { statuses = append(statuses, ev.Status) })

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{})
	require.True(t, res.Success)
	assert.Equal(t, []Status{StatusPreparing, StatusSending, StatusCompleted}, statuses)
}

func TestRetryOnTransportError(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true, failBefore: 2}
	s := newTestService(adapter)

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{
		RetryOnFail: true,
		MaxRetries:  3,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, adapter.printCount())
}

func TestRetryExhausted(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true, failBefore: 10}
	s := newTestService(adapter)

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{
		RetryOnFail: true,
		MaxRetries:  1,
	})
	require.False(t, res.Success)
	assert.Equal(t, 2, adapter.printCount(), "one attempt plus one retry")
	assert.Contains(t, res.Error, "scripted failure")
}

func TestNoRetryWithoutOptIn(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true, failBefore: 10}
	s := newTestService(adapter)

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{})
	require.False(t, res.Success)
	assert.Equal(t, 1, adapter.printCount())
}

func TestNonTransportErrorNotRetried(t *testing.T) {
	adapter := &scriptedAdapter{
		typ:       transport.TypeNetwork,
		available: true,
		hardErr:   errors.New("device on fire"),
	}
	s := newTestService(adapter)

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{
		RetryOnFail: true,
		MaxRetries:  5,
	})
	require.False(t, res.Success)
	assert.Equal(t, 1, adapter.printCount())
}

func TestNoAdapterAvailable(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: false}
	s := newTestService(adapter)

	res := s.PrintVoucher(context.Background(), testVoucher(), receipt.Options{RetryOnFail: true})
	require.False(t, res.Success)
	assert.Equal(t, 0, adapter.printCount())
	assert.Contains(t, res.Error, "no adapter available")
}

func TestPrintWithAdapterOverride(t *testing.T) {
	network := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	document := &scriptedAdapter{typ: transport.TypeDocument, available: true}
	s := newTestService(network, document)

	res := s.PrintWithAdapter(context.Background(), testVoucher(), receipt.Options{}, transport.TypeDocument)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, document.printCount())
	assert.Equal(t, 0, network.printCount())
	assert.Empty(t, s.Manager().ActiveType(), "override must not memoize a selection")
}

func TestPrintWithAdapterUnknownType(t *testing.T) {
	s := newTestService(&scriptedAdapter{typ: transport.TypeNetwork, available: true})

	res := s.PrintWithAdapter(context.Background(), testVoucher(), receipt.Options{}, transport.TypeBluetooth)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "unavailable")
}

func TestPrintVouchersPreservesOrder(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	s := newTestService(adapter)

	good := testVoucher()
	bad := voucher.Voucher{SatsAmount: 100}
	batch := s.PrintVouchers(context.Background(), []voucher.Voucher{good, bad, good}, receipt.Options{})

	require.Len(t, batch.Results, 3)
	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.SuccessCount)
	assert.Equal(t, 1, batch.FailCount)
	assert.True(t, batch.Results[0].Success)
	assert.False(t, batch.Results[1].Success)
	assert.True(t, batch.Results[2].Success)
	assert.Equal(t, 2, adapter.printCount())
}

func TestPrintVouchersCancelledBetweenJobs(t *testing.T) {
	adapter := &scriptedAdapter{typ: transport.TypeNetwork, available: true}
	s := newTestService(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	unsub := s.Subscribe(EventJobCompleted, func(Event) { cancel() })
	defer unsub()

	batch := s.PrintVouchers(ctx, []voucher.Voucher{testVoucher(), testVoucher(), testVoucher()}, receipt.Options{})
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 1, batch.SuccessCount)
	assert.Equal(t, 2, batch.FailCount)
	assert.Equal(t, 1, adapter.printCount(), "cancellation only takes effect between jobs")
}

func TestReceiptBase64RoundTrip(t *testing.T) {
	s := newTestService(&scriptedAdapter{typ: transport.TypeNetwork, available: true})

	raw, err := s.ReceiptBytes(testVoucher(), receipt.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	b64, err := s.ReceiptBase64(testVoucher(), receipt.Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, b64)
}

func TestDeepLinkWithoutPrinting(t *testing.T) {
	platform := transport.Platform{OS: "android", Mobile: true}
	dl := transport.NewDeepLinkAdapter(transport.DeepLinkConfig{}, platform, nil)
	m := transport.NewManagerForPlatform(platform, nil, dl)
	s := NewService(receipt.NewComposer(nil), m, Config{RetryDelay: time.Millisecond}, nil)

	uri, err := s.DeepLink(testVoucher(), receipt.Options{PaperWidth: 58})
	require.NoError(t, err)
	assert.Contains(t, uri, "voucherprint://print?")
	assert.Contains(t, uri, "width=58")
}

func TestDeepLinkValidatesVoucher(t *testing.T) {
	s := newTestService(&scriptedAdapter{typ: transport.TypeNetwork, available: true})
	_, err := s.DeepLink(voucher.Voucher{}, receipt.Options{})
	assert.ErrorIs(t, err, voucher.ErrMissingLNURL)
}
