package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pretyflaco/voucherprint/internal/config"
	"github.com/pretyflaco/voucherprint/internal/history"
	"github.com/pretyflaco/voucherprint/internal/printing"
	"github.com/pretyflaco/voucherprint/internal/receipt"
	"github.com/pretyflaco/voucherprint/internal/transport"
	"github.com/pretyflaco/voucherprint/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAdapter is an always-available in-memory transport.
type stubAdapter struct {
	prints [][]byte
	err    error
}

func (a *stubAdapter) Type() transport.Type { return transport.TypeNetwork }
func (a *stubAdapter) Name() string         { return "stub network" }
func (a *stubAdapter) Capabilities() transport.Capabilities {
	return transport.Capabilities{Cut: true, Raster: true}
}
func (a *stubAdapter) Available(ctx context.Context) bool { return true }
func (a *stubAdapter) Connect(ctx context.Context) error  { return nil }
func (a *stubAdapter) Disconnect() error                  { return nil }
func (a *stubAdapter) Status() transport.Status           { return transport.Status{Connected: true} }

func (a *stubAdapter) Print(ctx context.Context, data []byte, pc transport.PrintContext) error {
	if a.err != nil {
		return a.err
	}
	a.prints = append(a.prints, data)
	return nil
}

type testEnv struct {
	router  *gin.Engine
	store   *history.Store
	adapter *stubAdapter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	store, err := history.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	adapter := &stubAdapter{}
	deeplink := transport.NewDeepLinkAdapter(transport.DeepLinkConfig{}, transport.Platform{OS: "linux", Headless: true}, logger)
	manager := transport.NewManager(logger, adapter, deeplink)
	composer := receipt.NewComposer(logger)
	svc := printing.NewService(composer, manager, printing.Config{}, logger)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	sender := webhook.NewSender(store, webhook.Config{RetryCount: 1}, logger)

	router := gin.New()
	api := router.Group("/api")
	defaults := PrintDefaults{PaperWidth: 58, FooterText: "Keep this receipt"}
	NewPrintHandler(svc, defaults).RegisterRoutes(api)
	NewMethodsHandler(manager).RegisterRoutes(api)
	NewHistoryHandler(store).RegisterRoutes(api)
	NewSettingsHandler(store, cfg).RegisterRoutes(api)
	NewWebhookHandler(store, sender).RegisterRoutes(api)

	return &testEnv{router: router, store: store, adapter: adapter}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestPrintVoucherEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/print", gin.H{
		"voucher": gin.H{"lnurl": "LNURL1TESTVOUCHER", "satsAmount": 2100},
	})

	require.Equal(t, http.StatusOK, w.Code)
	res := decode[printing.Result](t, w)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, "stub network", res.Adapter)
	assert.Len(t, env.adapter.prints, 1)
}

func TestPrintVoucherEndpointMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/print", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.adapter.prints)
}

func TestPrintVoucherEndpointInvalidVoucher(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/print", gin.H{
		"voucher": gin.H{"satsAmount": 2100},
	})

	// Domain validation failures still ride in the result body.
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[printing.Result](t, w)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "LNURL")
	assert.Empty(t, env.adapter.prints)
}

func TestPrintBatchEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/print/batch", gin.H{
		"vouchers": []gin.H{
			{"lnurl": "LNURL1AAA", "satsAmount": 100},
			{"lnurl": "LNURL1BBB", "satsAmount": 200},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	res := decode[printing.BatchResult](t, w)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 0, res.FailCount)
	assert.Len(t, env.adapter.prints, 2)
}

func TestPrintBatchEndpointEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/print/batch", gin.H{"vouchers": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipt/preview", gin.H{
		"voucher": gin.H{"lnurl": "LNURL1TESTVOUCHER", "satsAmount": 2100},
	})

	require.Equal(t, http.StatusOK, w.Code)
	res := decode[PreviewResponse](t, w)
	assert.NotEmpty(t, res.Data)
	assert.Greater(t, res.Bytes, 0)
	assert.Equal(t, 58, res.PaperWidth)
	// Preview never touches the transport.
	assert.Empty(t, env.adapter.prints)
}

func TestDeepLinkEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/deeplink", gin.H{
		"voucher": gin.H{"lnurl": "LNURL1TESTVOUCHER", "satsAmount": 2100},
	})

	require.Equal(t, http.StatusOK, w.Code)
	res := decode[DeepLinkResponse](t, w)
	assert.Contains(t, res.URI, "voucherprint://print?")
}

func TestMethodsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/methods", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[MethodsResponse](t, w)
	require.Len(t, res.Methods, 2)
	var network *transport.Info
	for i := range res.Methods {
		if res.Methods[i].Type == transport.TypeNetwork {
			network = &res.Methods[i]
		}
	}
	require.NotNil(t, network)
	assert.True(t, network.Available)

	w = env.do(t, http.MethodPut, "/api/methods/active", gin.H{"type": "network"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/api/methods/active", gin.H{"type": "carrier-pigeon"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodDelete, "/api/methods/active", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	// The recorder is not attached in this harness, so seed the trail
	// by hand.
	require.NoError(t, env.store.InsertEntry(context.Background(), &history.Entry{
		JobID:      "job-1",
		SatsAmount: 2100,
		Adapter:    "network",
		Status:     "COMPLETED",
		Attempts:   1,
	}))

	w := env.do(t, http.MethodGet, "/api/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := decode[history.Entry](t, w)
	assert.Equal(t, int64(2100), entry.SatsAmount)

	w = env.do(t, http.MethodGet, "/api/jobs/job-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/history?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/history/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[history.Stats](t, w)
	assert.Equal(t, int64(1), stats.Total)
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := decode[SettingsResponse](t, w)
	assert.Equal(t, 80, before.PaperWidth)

	width := 58
	w = env.do(t, http.MethodPut, "/api/settings", UpdateSettingsRequest{PaperWidth: &width})
	require.Equal(t, http.StatusOK, w.Code)
	after := decode[SettingsResponse](t, w)
	assert.Equal(t, 58, after.PaperWidth)

	bad := 72
	w = env.do(t, http.MethodPut, "/api/settings", UpdateSettingsRequest{PaperWidth: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRegistryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/webhooks", CreateWebhookRequest{
		Name:   "ops",
		URL:    "https://example.com/hook",
		Events: []string{"job_completed", "job_failed"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[WebhookResponse](t, w)
	assert.True(t, created.Enabled)
	assert.ElementsMatch(t, []string{"job_completed", "job_failed"}, created.Events)

	w = env.do(t, http.MethodPost, "/api/webhooks", CreateWebhookRequest{
		Name:   "bad",
		URL:    "https://example.com/hook",
		Events: []string{"job_exploded"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/webhooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]WebhookResponse](t, w)
	require.Len(t, list, 1)

	enabled := false
	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/webhooks/%d", created.ID), UpdateWebhookRequest{Enabled: &enabled})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[WebhookResponse](t, w)
	assert.False(t, updated.Enabled)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/webhooks/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/webhooks/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookTestFire(t *testing.T) {
	env := newTestEnv(t)

	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Webhook-Event")
	}))
	defer srv.Close()

	w := env.do(t, http.MethodPost, "/api/webhooks", CreateWebhookRequest{
		Name:   "ops",
		URL:    srv.URL,
		Events: []string{"job_completed"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[WebhookResponse](t, w)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/webhooks/%d/test", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[TestWebhookResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "job_completed", <-received)
}
