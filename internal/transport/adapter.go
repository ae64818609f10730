// Package transport delivers encoded receipt bytes to printers over
// physically distinct channels. Every channel implements the Adapter
// interface; the Manager probes, ranks and selects among them.
package transport

import (
	"context"
	"errors"

	"github.com/pretyflaco/voucherprint/internal/voucher"
)

var (
	// ErrAdapterUnavailable marks a requested adapter that is unknown
	// or not currently usable. Never retried.
	ErrAdapterUnavailable = errors.New("print adapter unavailable")
	// ErrNotConnected is returned by operations that need an open
	// channel before Connect succeeded.
	ErrNotConnected = errors.New("print adapter not connected")
	// ErrSend wraps transport failures during connect or print. The
	// orchestrator retries these when the job allows it.
	ErrSend = errors.New("print send failed")
)

// Type identifies one transport strategy.
type Type string

const (
	TypeDeepLink  Type = "deeplink"
	TypeSerial    Type = "serial"
	TypeUSB       Type = "usb"
	TypeNetwork   Type = "network"
	TypeBluetooth Type = "bluetooth"
	TypeDocument  Type = "document"
)

// Capabilities advertises what a transport's far end can do, so the
// orchestrator and presentation layers can adapt the receipt.
type Capabilities struct {
	Cut      bool `json:"cut"`
	Drawer   bool `json:"drawer"`
	Raster   bool `json:"raster"`
	NativeQR bool `json:"nativeQr"`
}

// Status is a point-in-time snapshot of an adapter's channel.
type Status struct {
	Connected bool   `json:"connected"`
	Detail    string `json:"detail,omitempty"`
}

// PrintContext carries job metadata alongside the raw bytes, for
// adapters that need more than the stream (deep links, spool file
// naming).
type PrintContext struct {
	Voucher    voucher.Voucher
	PaperWidth int
	QRMode     string
}

// Adapter is one way of reaching a printer. Implementations must be
// safe for concurrent use; Print may connect lazily.
type Adapter interface {
	Type() Type
	Name() string
	Capabilities() Capabilities
	// Available probes whether the channel could work right now. It
	// must not require a prior Connect.
	Available(ctx context.Context) bool
	Connect(ctx context.Context) error
	Disconnect() error
	Status() Status
	Print(ctx context.Context, data []byte, pc PrintContext) error
}

// Info describes an adapter for presentation layers.
type Info struct {
	Type         Type         `json:"type"`
	Name         string       `json:"name"`
	Available    bool         `json:"available"`
	Recommended  bool         `json:"recommended"`
	Capabilities Capabilities `json:"capabilities"`
}
