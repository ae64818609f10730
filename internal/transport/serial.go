package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// knownPrinterVendors are USB vendor IDs of common thermal printers
// and the serial bridge chips they ship with, matched against
// enumerated ports during auto-detection.
var knownPrinterVendors = []string{
	"04B8", // Epson
	"0519", // Star Micronics
	"0416", // Winbond (generic 58mm boards)
	"0FE6", // ICS Advent clones
	"1A86", // QinHeng CH340 bridge
	"067B", // Prolific PL2303 bridge
	"10C4", // Silicon Labs CP210x bridge
}

// SerialConfig configures the direct serial channel.
type SerialConfig struct {
	// Port is an explicit device path such as /dev/ttyUSB0. Empty
	// means auto-detect by vendor ID.
	Port string
	// BaudRate defaults to 9600, the common thermal printer rate.
	BaudRate int
	// ExtraVendors appends vendor IDs (4 hex digits) to the
	// auto-detection list.
	ExtraVendors []string
}

// SerialAdapter drives a printer over a serial device node, the
// direct hardware channel on desktops.
type SerialAdapter struct {
	cfg    SerialConfig
	logger *slog.Logger

	mu   sync.Mutex
	port serial.Port
	path string
}

func NewSerialAdapter(cfg SerialConfig, logger *slog.Logger) *SerialAdapter {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialAdapter{cfg: cfg, logger: logger}
}

func (a *SerialAdapter) Type() Type   { return TypeSerial }
func (a *SerialAdapter) Name() string { return "Serial printer" }

func (a *SerialAdapter) Capabilities() Capabilities {
	return Capabilities{Cut: true, Drawer: true, Raster: true, NativeQR: true}
}

func (a *SerialAdapter) Available(ctx context.Context) bool {
	path, err := a.findPort()
	return err == nil && path != ""
}

// findPort resolves the configured port or scans for one whose USB
// vendor ID looks like a printer.
func (a *SerialAdapter) findPort() (string, error) {
	if a.cfg.Port != "" {
		return a.cfg.Port, nil
	}
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerate serial ports: %w", err)
	}
	vendors := append(append([]string{}, knownPrinterVendors...), a.cfg.ExtraVendors...)
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		for _, vid := range vendors {
			if strings.EqualFold(p.VID, vid) {
				return p.Name, nil
			}
		}
	}
	return "", nil
}

func (a *SerialAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port != nil {
		return nil
	}
	path, err := a.findPort()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	if path == "" {
		return fmt.Errorf("%w: no serial printer found", ErrAdapterUnavailable)
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: a.cfg.BaudRate})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrSend, path, err)
	}
	a.port = port
	a.path = path
	a.logger.Info("serial printer connected", "port", path, "baud", a.cfg.BaudRate)
	return nil
}

func (a *SerialAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	a.path = ""
	return err
}

func (a *SerialAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port == nil {
		return Status{Connected: false}
	}
	return Status{Connected: true, Detail: a.path}
}

func (a *SerialAdapter) Print(ctx context.Context, data []byte, pc PrintContext) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port == nil {
		return ErrNotConnected
	}
	for written := 0; written < len(data); {
		n, err := a.port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("%w: serial write after %d bytes: %v", ErrSend, written, err)
		}
		written += n
	}
	a.logger.Debug("serial print done", "port", a.path, "bytes", len(data))
	return nil
}
