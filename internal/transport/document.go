package transport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pretyflaco/voucherprint/internal/escpos"
)

// DocumentConfig configures the last-resort document fallback.
type DocumentConfig struct {
	// Command and its arguments hand the rendered text file to the
	// system print spooler, e.g. {"lp", "-o", "raw"}. The file path
	// is appended. Empty disables spooler handoff.
	Command []string
	// SpoolDir receives the rendered text when no command is set or
	// the command fails. Empty means a directory under os.TempDir.
	SpoolDir string
}

// DocumentAdapter renders the receipt as plain text and pushes it
// through the host's print spooler, or drops it in a spool directory
// when none is reachable. Always available, but it can neither cut
// nor kick a drawer.
type DocumentAdapter struct {
	cfg    DocumentConfig
	logger *slog.Logger

	mu      sync.Mutex
	printed int
	lastOut string
}

func NewDocumentAdapter(cfg DocumentConfig, logger *slog.Logger) *DocumentAdapter {
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filepath.Join(os.TempDir(), "voucherprint-spool")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentAdapter{cfg: cfg, logger: logger}
}

func (a *DocumentAdapter) Type() Type   { return TypeDocument }
func (a *DocumentAdapter) Name() string { return "Document fallback" }

func (a *DocumentAdapter) Capabilities() Capabilities {
	return Capabilities{Cut: false, Drawer: false, Raster: false, NativeQR: false}
}

// Available always reports true; this adapter is the floor every
// ranking ends on.
func (a *DocumentAdapter) Available(ctx context.Context) bool { return true }

func (a *DocumentAdapter) Connect(ctx context.Context) error { return nil }
func (a *DocumentAdapter) Disconnect() error                 { return nil }

func (a *DocumentAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{Connected: true, Detail: a.lastOut}
}

func (a *DocumentAdapter) Print(ctx context.Context, data []byte, pc PrintContext) error {
	text := escpos.DecodeText(data)

	if err := os.MkdirAll(a.cfg.SpoolDir, 0o755); err != nil {
		return fmt.Errorf("%w: create spool dir: %v", ErrSend, err)
	}
	name := fmt.Sprintf("voucher-%d.txt", time.Now().UnixNano())
	path := filepath.Join(a.cfg.SpoolDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%w: write spool file: %v", ErrSend, err)
	}

	out := path
	if len(a.cfg.Command) > 0 {
		args := append(append([]string{}, a.cfg.Command[1:]...), path)
		cmd := exec.CommandContext(ctx, a.cfg.Command[0], args...)
		if err := cmd.Run(); err != nil {
			a.logger.Warn("spooler command failed, keeping spool file",
				"command", a.cfg.Command[0], "path", path, "error", err)
		} else {
			out = a.cfg.Command[0]
		}
	}

	a.mu.Lock()
	a.printed++
	a.lastOut = out
	a.mu.Unlock()
	a.logger.Debug("document fallback printed", "output", out, "bytes", len(data))
	return nil
}
