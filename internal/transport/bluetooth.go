package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// BluetoothConfig configures the BLE channel used by battery powered
// pocket printers.
type BluetoothConfig struct {
	// DeviceName is the advertised local name to scan for. Empty
	// disables the adapter.
	DeviceName string
	// ServiceUUID and WriteUUID identify the write path. Defaults
	// cover the FF00/FF02 serial-over-BLE profile common on thermal
	// printers.
	ServiceUUID uint16
	WriteUUID   uint16
	// ChunkSize bounds one BLE write; defaults to 128 bytes.
	ChunkSize int
	// ScanTimeout bounds device discovery; defaults to 10 seconds.
	ScanTimeout time.Duration
}

// BluetoothAdapter drives a printer over BLE, chunking writes to the
// link's MTU.
type BluetoothAdapter struct {
	cfg    BluetoothConfig
	ble    *bluetooth.Adapter
	logger *slog.Logger

	enableOnce sync.Once
	enableErr  error

	mu     sync.Mutex
	device *bluetooth.Device
	writer *bluetooth.DeviceCharacteristic
}

func NewBluetoothAdapter(cfg BluetoothConfig, logger *slog.Logger) *BluetoothAdapter {
	if cfg.ServiceUUID == 0 {
		cfg.ServiceUUID = 0xFF00
	}
	if cfg.WriteUUID == 0 {
		cfg.WriteUUID = 0xFF02
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 128
	}
	if cfg.ScanTimeout == 0 {
		cfg.ScanTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BluetoothAdapter{cfg: cfg, ble: bluetooth.DefaultAdapter, logger: logger}
}

func (a *BluetoothAdapter) Type() Type   { return TypeBluetooth }
func (a *BluetoothAdapter) Name() string { return "Bluetooth printer" }

func (a *BluetoothAdapter) Capabilities() Capabilities {
	return Capabilities{Cut: false, Drawer: false, Raster: true, NativeQR: false}
}

func (a *BluetoothAdapter) enable() error {
	a.enableOnce.Do(func() {
		a.enableErr = a.ble.Enable()
	})
	return a.enableErr
}

func (a *BluetoothAdapter) Available(ctx context.Context) bool {
	return a.cfg.DeviceName != "" && a.enable() == nil
}

// scan looks for the configured device name until the timeout.
func (a *BluetoothAdapter) scan(ctx context.Context) (bluetooth.Address, error) {
	var zero bluetooth.Address
	found := make(chan bluetooth.Address, 1)
	scanErr := make(chan error, 1)

	go func() {
		err := a.ble.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() == a.cfg.DeviceName {
				adapter.StopScan()
				select {
				case found <- result.Address:
				default:
				}
			}
		})
		if err != nil {
			scanErr <- err
		}
	}()

	select {
	case addr := <-found:
		return addr, nil
	case err := <-scanErr:
		return zero, err
	case <-time.After(a.cfg.ScanTimeout):
		a.ble.StopScan()
		return zero, fmt.Errorf("printer %q not seen while scanning", a.cfg.DeviceName)
	case <-ctx.Done():
		a.ble.StopScan()
		return zero, ctx.Err()
	}
}

func (a *BluetoothAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writer != nil {
		return nil
	}
	if a.cfg.DeviceName == "" {
		return fmt.Errorf("%w: no bluetooth printer configured", ErrAdapterUnavailable)
	}
	if err := a.enable(); err != nil {
		return fmt.Errorf("%w: enable bluetooth: %v", ErrAdapterUnavailable, err)
	}

	addr, err := a.scan(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}

	device, err := a.ble.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("%w: ble connect: %v", ErrSend, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{bluetooth.New16BitUUID(a.cfg.ServiceUUID)})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return fmt.Errorf("%w: print service not found: %v", ErrSend, err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{bluetooth.New16BitUUID(a.cfg.WriteUUID)})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return fmt.Errorf("%w: write characteristic not found: %v", ErrSend, err)
	}

	a.device = &device
	a.writer = &chars[0]
	a.logger.Info("bluetooth printer connected", "name", a.cfg.DeviceName)
	return nil
}

func (a *BluetoothAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == nil {
		return nil
	}
	err := a.device.Disconnect()
	a.device = nil
	a.writer = nil
	return err
}

func (a *BluetoothAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writer == nil {
		return Status{Connected: false}
	}
	return Status{Connected: true, Detail: a.cfg.DeviceName}
}

func (a *BluetoothAdapter) Print(ctx context.Context, data []byte, pc PrintContext) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writer == nil {
		return ErrNotConnected
	}
	for off := 0; off < len(data); off += a.cfg.ChunkSize {
		end := off + a.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := a.writer.WriteWithoutResponse(data[off:end]); err != nil {
			return fmt.Errorf("%w: ble write after %d bytes: %v", ErrSend, off, err)
		}
	}
	a.logger.Debug("bluetooth print done", "bytes", len(data))
	return nil
}
