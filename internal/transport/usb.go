package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/gousb"
)

// USBConfig configures the direct USB channel.
type USBConfig struct {
	// VendorID and ProductID pin one device. Zero values mean
	// auto-discover the first printer-class device.
	VendorID  uint16
	ProductID uint16
}

// USBAdapter writes to a USB printer's bulk OUT endpoint. Discovery
// matches the USB printer interface class, so unbranded 58mm printers
// work without configuration.
type USBAdapter struct {
	cfg    USBConfig
	logger *slog.Logger

	mu     sync.Mutex
	usbCtx *gousb.Context
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()
	out    *gousb.OutEndpoint
}

func NewUSBAdapter(cfg USBConfig, logger *slog.Logger) *USBAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &USBAdapter{cfg: cfg, logger: logger}
}

func (a *USBAdapter) Type() Type   { return TypeUSB }
func (a *USBAdapter) Name() string { return "USB printer" }

func (a *USBAdapter) Capabilities() Capabilities {
	return Capabilities{Cut: true, Drawer: true, Raster: true, NativeQR: true}
}

// matches reports whether a device descriptor looks like our printer:
// either the configured IDs, or any interface of the printer class.
func (a *USBAdapter) matches(desc *gousb.DeviceDesc) bool {
	if a.cfg.VendorID != 0 {
		return desc.Vendor == gousb.ID(a.cfg.VendorID) &&
			(a.cfg.ProductID == 0 || desc.Product == gousb.ID(a.cfg.ProductID))
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, setting := range intf.AltSettings {
				if setting.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

func (a *USBAdapter) Available(ctx context.Context) bool {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	found := false
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if a.matches(desc) {
			found = true
		}
		return false // only counting, never open
	})
	for _, d := range devs {
		d.Close()
	}
	return err == nil && found
}

func (a *USBAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out != nil {
		return nil
	}

	usbCtx := gousb.NewContext()
	devs, err := usbCtx.OpenDevices(a.matches)
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		usbCtx.Close()
		return fmt.Errorf("%w: usb scan: %v", ErrAdapterUnavailable, err)
	}
	if len(devs) == 0 {
		usbCtx.Close()
		return fmt.Errorf("%w: no usb printer found", ErrAdapterUnavailable)
	}

	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}
	dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		usbCtx.Close()
		return fmt.Errorf("%w: claim usb interface: %v", ErrSend, err)
	}

	var out *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut {
			out, err = intf.OutEndpoint(ep.Number)
			break
		}
	}
	if err != nil || out == nil {
		done()
		dev.Close()
		usbCtx.Close()
		return fmt.Errorf("%w: no bulk out endpoint", ErrSend)
	}

	a.usbCtx = usbCtx
	a.dev = dev
	a.intf = intf
	a.done = done
	a.out = out
	a.logger.Info("usb printer connected",
		"vendor", dev.Desc.Vendor.String(), "product", dev.Desc.Product.String())
	return nil
}

func (a *USBAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out == nil {
		return nil
	}
	a.done()
	err := a.dev.Close()
	a.usbCtx.Close()
	a.usbCtx, a.dev, a.intf, a.done, a.out = nil, nil, nil, nil, nil
	return err
}

func (a *USBAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out == nil {
		return Status{Connected: false}
	}
	return Status{Connected: true, Detail: a.dev.Desc.Vendor.String() + ":" + a.dev.Desc.Product.String()}
}

func (a *USBAdapter) Print(ctx context.Context, data []byte, pc PrintContext) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out == nil {
		return ErrNotConnected
	}
	for written := 0; written < len(data); {
		n, err := a.out.WriteContext(ctx, data[written:])
		if err != nil {
			return fmt.Errorf("%w: usb write after %d bytes: %v", ErrSend, written, err)
		}
		written += n
	}
	a.logger.Debug("usb print done", "bytes", len(data))
	return nil
}
