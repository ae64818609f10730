package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// NetworkConfig configures the raw TCP channel most networked ESC/POS
// printers expose on port 9100.
type NetworkConfig struct {
	Host string
	// Port defaults to 9100.
	Port int
	// DialTimeout defaults to 3 seconds.
	DialTimeout time.Duration
	// WriteTimeout bounds one print's writes; zero means no deadline.
	WriteTimeout time.Duration
}

// NetworkAdapter streams bytes to a printer's JetDirect port.
type NetworkAdapter struct {
	cfg    NetworkConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

func NewNetworkAdapter(cfg NetworkConfig, logger *slog.Logger) *NetworkAdapter {
	if cfg.Port == 0 {
		cfg.Port = 9100
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkAdapter{cfg: cfg, logger: logger}
}

func (a *NetworkAdapter) Type() Type   { return TypeNetwork }
func (a *NetworkAdapter) Name() string { return "Network printer" }

func (a *NetworkAdapter) Capabilities() Capabilities {
	return Capabilities{Cut: true, Drawer: true, Raster: true, NativeQR: true}
}

func (a *NetworkAdapter) addr() string {
	return net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))
}

// Available dials and immediately closes. A printer that accepts the
// connection is considered reachable.
func (a *NetworkAdapter) Available(ctx context.Context) bool {
	if a.cfg.Host == "" {
		return false
	}
	d := net.Dialer{Timeout: a.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", a.addr())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (a *NetworkAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return nil
	}
	if a.cfg.Host == "" {
		return fmt.Errorf("%w: no printer host configured", ErrAdapterUnavailable)
	}
	d := net.Dialer{Timeout: a.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", a.addr())
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrSend, a.addr(), err)
	}
	a.conn = conn
	a.logger.Info("network printer connected", "addr", a.addr())
	return nil
}

func (a *NetworkAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

func (a *NetworkAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return Status{Connected: false}
	}
	return Status{Connected: true, Detail: a.addr()}
}

func (a *NetworkAdapter) Print(ctx context.Context, data []byte, pc PrintContext) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return ErrNotConnected
	}
	if a.cfg.WriteTimeout > 0 {
		a.conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
		defer a.conn.SetWriteDeadline(time.Time{})
	}
	for written := 0; written < len(data); {
		n, err := a.conn.Write(data[written:])
		if err != nil {
			// drop the dead connection so the retry dials fresh
			a.conn.Close()
			a.conn = nil
			return fmt.Errorf("%w: tcp write after %d bytes: %v", ErrSend, written, err)
		}
		written += n
	}
	a.logger.Debug("network print done", "addr", a.addr(), "bytes", len(data))
	return nil
}
