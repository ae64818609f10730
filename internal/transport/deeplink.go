package transport

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// DeepLinkConfig configures the companion-app handoff.
type DeepLinkConfig struct {
	// Scheme is the URI scheme the companion app is registered for.
	Scheme string
	// AppStoreURL points users at the companion app when the scheme
	// has no handler.
	AppStoreURL string
	// AlwaysAvailable treats the handoff as usable on desktop hosts
	// too, where the presence of a handler cannot be probed.
	AlwaysAvailable bool
	// Launch opens the URI. Nil picks an OS launcher (xdg-open, open,
	// rundll32).
	Launch func(ctx context.Context, uri string) error
}

const (
	defaultScheme      = "voucherprint"
	defaultAppStoreURL = "https://apps.voucherprint.org/companion"
)

// DeepLinkAdapter encodes the command buffer as base64 inside a scheme
// URI and hands it to a companion application with direct hardware
// access. The usual channel on phones and tablets.
type DeepLinkAdapter struct {
	cfg      DeepLinkConfig
	platform Platform
	logger   *slog.Logger

	mu       sync.Mutex
	launches int
	lastURI  string
}

func NewDeepLinkAdapter(cfg DeepLinkConfig, platform Platform, logger *slog.Logger) *DeepLinkAdapter {
	if cfg.Scheme == "" {
		cfg.Scheme = defaultScheme
	}
	if cfg.AppStoreURL == "" {
		cfg.AppStoreURL = defaultAppStoreURL
	}
	if cfg.Launch == nil {
		cfg.Launch = osLaunch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepLinkAdapter{cfg: cfg, platform: platform, logger: logger}
}

func (a *DeepLinkAdapter) Type() Type   { return TypeDeepLink }
func (a *DeepLinkAdapter) Name() string { return "Companion app" }

func (a *DeepLinkAdapter) Capabilities() Capabilities {
	return Capabilities{Cut: true, Drawer: true, Raster: true, NativeQR: true}
}

func (a *DeepLinkAdapter) Available(ctx context.Context) bool {
	return a.platform.Mobile || a.cfg.AlwaysAvailable
}

// Connect is a no-op; each print opens a fresh URI.
func (a *DeepLinkAdapter) Connect(ctx context.Context) error { return nil }

func (a *DeepLinkAdapter) Disconnect() error { return nil }

func (a *DeepLinkAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{Connected: true, Detail: fmt.Sprintf("%d handoffs", a.launches)}
}

// BuildURI encodes the command buffer into the handoff URI. Decoding
// the data parameter must give back the exact input bytes.
func (a *DeepLinkAdapter) BuildURI(data []byte, pc PrintContext) string {
	q := url.Values{}
	q.Set("data", base64.StdEncoding.EncodeToString(data))
	if pc.PaperWidth != 0 {
		q.Set("width", strconv.Itoa(pc.PaperWidth))
	}
	if pc.QRMode != "" {
		q.Set("qr", pc.QRMode)
	}
	return a.cfg.Scheme + "://print?" + q.Encode()
}

// AppStoreURL returns the install link for the companion app.
func (a *DeepLinkAdapter) AppStoreURL() string { return a.cfg.AppStoreURL }

func (a *DeepLinkAdapter) Print(ctx context.Context, data []byte, pc PrintContext) error {
	uri := a.BuildURI(data, pc)
	if err := a.cfg.Launch(ctx, uri); err != nil {
		return fmt.Errorf("%w: launch deep link: %v", ErrSend, err)
	}
	a.mu.Lock()
	a.launches++
	a.lastURI = uri
	a.mu.Unlock()
	a.logger.Debug("deep link handed off", "bytes", len(data), "uriLength", len(uri))
	return nil
}

// LastURI returns the most recently launched URI, for diagnostics.
func (a *DeepLinkAdapter) LastURI() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastURI
}

func osLaunch(ctx context.Context, uri string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", uri)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", uri)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", uri)
	}
	return cmd.Run()
}
