package receipt

import "time"

// Type selects one of the receipt layouts.
type Type string

const (
	TypeStandard Type = "standard"
	TypeMinimal  Type = "minimal"
	TypeReissue  Type = "reissue"
)

// Default texts for the header and footer when the caller supplies
// none.
const (
	DefaultHeaderText = "LIGHTNING VOUCHER"
	DefaultFooterText = "Scan with any Lightning wallet"
)

// Options configures a single print. The zero value prints a standard
// receipt on 80mm paper with an adaptive QR size and a trailing feed.
type Options struct {
	// PaperWidth is the roll width in millimetres, 58 or 80. Other
	// values fall back to 80.
	PaperWidth int
	// QRSize fixes the QR module size in dots (1..16). Zero picks a
	// size from the paper width and payload length.
	QRSize int
	// QRErrorCorrection is L, M, Q or H. Empty and unknown values
	// mean M.
	QRErrorCorrection string
	// UseNativeQR lets the printer render the QR symbol itself
	// instead of sending a raster image.
	UseNativeQR bool
	// ShowLogo prints the preloaded logo in the header when one is
	// available.
	ShowLogo bool
	// AutoCut ends the receipt with a cut instead of a plain feed.
	AutoCut bool
	// PartialCut makes AutoCut leave a paper bridge.
	PartialCut bool
	// FeedLinesAfter is the trailing feed when AutoCut is off. Zero
	// means 4.
	FeedLinesAfter int
	// Type picks the layout; empty means standard.
	Type Type

	// HeaderText and FooterText override the default receipt
	// wording.
	HeaderText string
	FooterText string

	// LogoThreshold and LogoInvert tune logo conversion and key the
	// logo cache. Zero threshold means 128.
	LogoThreshold uint8
	LogoInvert    bool

	// RetryOnFail and MaxRetries drive the orchestrator's retry
	// policy, not the layout.
	RetryOnFail bool
	MaxRetries  int

	// Timeout is passed along to adapters that enforce their own
	// deadline. The orchestrator itself does not enforce it.
	Timeout time.Duration
}

// withDefaults normalizes an Options value without mutating the
// caller's copy.
func (o Options) withDefaults() Options {
	if o.PaperWidth != 58 {
		o.PaperWidth = 80
	}
	if o.QRErrorCorrection == "" {
		o.QRErrorCorrection = "M"
	}
	if o.FeedLinesAfter == 0 {
		o.FeedLinesAfter = 4
	}
	if o.Type == "" {
		o.Type = TypeStandard
	}
	if o.HeaderText == "" {
		o.HeaderText = DefaultHeaderText
	}
	if o.FooterText == "" {
		o.FooterText = DefaultFooterText
	}
	return o
}
