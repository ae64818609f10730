// Package escpos builds ESC/POS command streams for thermal receipt
// printers. An Encoder accumulates raw bytes in memory; nothing touches
// a device until the finished buffer is handed to a transport. Invalid
// parameters are clamped to the nearest legal value rather than
// reported, so callers can feed user-supplied settings straight in.
package escpos

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Alignment selects horizontal placement for subsequent text and images.
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// Font selects one of the printer's built-in character fonts.
type Font byte

const (
	FontA Font = 0
	FontB Font = 1
	FontC Font = 2
)

// RasterMode controls hardware scaling of raster images.
type RasterMode byte

const (
	RasterNormal       RasterMode = 0
	RasterDoubleWidth  RasterMode = 1
	RasterDoubleHeight RasterMode = 2
	RasterQuadruple    RasterMode = 3
)

// Encoder accumulates an ESC/POS byte stream. Methods append commands
// and return the receiver so calls chain. An Encoder is not safe for
// concurrent use.
type Encoder struct {
	buf     []byte
	profile PaperProfile

	// current style, tracked so CenterLine can restore it
	align   Alignment
	bold    bool
	widthM  int
	heightM int
}

// NewEncoder returns an encoder for the given paper profile with an
// ESC @ initialize sequence already emitted.
func NewEncoder(profile PaperProfile) *Encoder {
	e := &Encoder{
		profile: profile,
		align:   AlignLeft,
		widthM:  1,
		heightM: 1,
	}
	return e.Initialize()
}

// Profile returns the paper profile the encoder was built with.
func (e *Encoder) Profile() PaperProfile {
	return e.profile
}

func (e *Encoder) raw(b ...byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Raw appends bytes verbatim, for commands the encoder has no method for.
func (e *Encoder) Raw(b ...byte) *Encoder {
	return e.raw(b...)
}

// Initialize resets the printer to its power-on state and resets the
// encoder's tracked style.
func (e *Encoder) Initialize() *Encoder {
	e.align = AlignLeft
	e.bold = false
	e.widthM, e.heightM = 1, 1
	return e.raw(esc, '@')
}

// Align sets horizontal alignment for following text and images.
func (e *Encoder) Align(a Alignment) *Encoder {
	if a > AlignRight {
		a = AlignLeft
	}
	e.align = a
	return e.raw(esc, 'a', byte(a))
}

// Bold switches emphasized printing on or off.
func (e *Encoder) Bold(on bool) *Encoder {
	e.bold = on
	return e.raw(esc, 'E', boolByte(on))
}

// Underline sets underline thickness in dots, clamped to 0..2.
func (e *Encoder) Underline(dots int) *Encoder {
	return e.raw(esc, '-', byte(clamp(dots, 0, 2)))
}

// TextSize sets character width and height multipliers. Both are
// clamped to 1..8 as the hardware supports no more.
func (e *Encoder) TextSize(width, height int) *Encoder {
	e.widthM = clamp(width, 1, 8)
	e.heightM = clamp(height, 1, 8)
	n := byte((e.widthM-1)<<4 | (e.heightM - 1))
	return e.raw(gs, '!', n)
}

// Invert switches white-on-black printing on or off.
func (e *Encoder) Invert(on bool) *Encoder {
	return e.raw(gs, 'B', boolByte(on))
}

// SelectFont picks one of the printer's built-in fonts.
func (e *Encoder) SelectFont(f Font) *Encoder {
	if f > FontC {
		f = FontA
	}
	return e.raw(esc, 'M', byte(f))
}

// Text appends a string as raw UTF-8 bytes with no trailing newline.
func (e *Encoder) Text(s string) *Encoder {
	e.buf = append(e.buf, s...)
	return e
}

// Line appends a string followed by a line feed.
func (e *Encoder) Line(s string) *Encoder {
	e.buf = append(e.buf, s...)
	return e.raw(lf)
}

// CenterLine prints one centered line with optional bold and size, then
// restores the alignment and style that were in effect before the call.
func (e *Encoder) CenterLine(s string, bold bool, size int) *Encoder {
	prevAlign, prevBold := e.align, e.bold
	prevW, prevH := e.widthM, e.heightM

	e.Align(AlignCenter)
	if bold != prevBold {
		e.Bold(bold)
	}
	if size > 0 {
		e.TextSize(size, size)
	}
	e.Line(s)

	if e.widthM != prevW || e.heightM != prevH {
		e.TextSize(prevW, prevH)
	}
	if e.bold != prevBold {
		e.Bold(prevBold)
	}
	e.Align(prevAlign)
	return e
}

// Separator prints a full-width line of the given character. A zero
// byte means '-'.
func (e *Encoder) Separator(ch byte) *Encoder {
	if ch == 0 {
		ch = '-'
	}
	return e.Line(strings.Repeat(string(ch), e.profile.CharsPerLine))
}

// LabelValue prints a label padded to labelWidth followed by a value,
// truncating both to keep the line within the paper width. The value
// can be emphasized independently of the surrounding style.
func (e *Encoder) LabelValue(label, value string, labelWidth int, valueBold bool) *Encoder {
	width := e.profile.CharsPerLine
	labelWidth = clamp(labelWidth, 1, width-1)
	label = padRight(truncate(label, labelWidth), labelWidth)
	value = truncate(value, width-labelWidth)

	e.Text(label)
	if valueBold {
		prev := e.bold
		e.Bold(true)
		e.Text(value)
		e.Bold(prev)
	} else {
		e.Text(value)
	}
	return e.raw(lf)
}

// TwoColumn prints left- and right-aligned text on one line. When the
// two sides do not fit, the left side is truncated so the right value
// survives intact.
func (e *Encoder) TwoColumn(left, right string) *Encoder {
	width := e.profile.CharsPerLine
	right = truncate(right, width)
	rlen := utf8.RuneCountInString(right)

	avail := width - rlen
	if utf8.RuneCountInString(left) > avail {
		if avail <= 1 {
			left = ""
		} else {
			left = truncate(left, avail-1)
		}
	}
	gap := width - utf8.RuneCountInString(left) - rlen
	if gap < 0 {
		gap = 0
	}
	return e.Line(left + strings.Repeat(" ", gap) + right)
}

// QRCode emits the printer's native QR sequence: model selection,
// module size, error correction, data store, print. Module size is
// clamped to 1..16. Unknown error correction levels fall back to M.
func (e *Encoder) QRCode(data string, size int, level string) *Encoder {
	size = clamp(size, 1, 16)

	e.raw(gs, '(', 'k', 4, 0, 49, 65, 50, 0)          // model 2
	e.raw(gs, '(', 'k', 3, 0, 49, 67, byte(size))     // module size
	e.raw(gs, '(', 'k', 3, 0, 49, 69, qrLevelByte(level)) // EC level

	n := len(data) + 3
	e.raw(gs, '(', 'k', byte(n&0xFF), byte(n>>8), 49, 80, 48)
	e.buf = append(e.buf, data...)

	return e.raw(gs, '(', 'k', 3, 0, 49, 81, 48) // print
}

// QRCodeAuto prints a native QR with a module size chosen from the
// payload length, so long vouchers still fit the paper.
func (e *Encoder) QRCodeAuto(data string) *Encoder {
	return e.QRCode(data, autoQRSize(len(data)), "M")
}

func autoQRSize(payloadLen int) int {
	switch {
	case payloadLen > 500:
		return 3
	case payloadLen > 300:
		return 4
	case payloadLen > 150:
		return 5
	default:
		return 6
	}
}

func qrLevelByte(level string) byte {
	switch strings.ToUpper(level) {
	case "L":
		return 48
	case "M":
		return 49
	case "Q":
		return 50
	case "H":
		return 51
	default:
		return 49
	}
}

// RasterImage emits a GS v 0 raster block. The bitmap must be 1-bit
// packed, MSB first, width rounded up to whole bytes per row. Width
// and height are in pixels.
func (e *Encoder) RasterImage(bitmap []byte, width, height int, mode RasterMode) *Encoder {
	if width <= 0 || height <= 0 || len(bitmap) == 0 {
		return e
	}
	if mode > RasterQuadruple {
		mode = RasterNormal
	}
	wb := (width + 7) / 8
	e.raw(gs, 'v', '0', byte(mode),
		byte(wb&0xFF), byte(wb>>8),
		byte(height&0xFF), byte(height>>8))
	e.buf = append(e.buf, bitmap...)
	return e
}

// Barcode prints a one-dimensional barcode using the GS k function-B
// form. Height defaults to 80 dots, module width to 2, and the
// human-readable text position to none.
func (e *Encoder) Barcode(data string, typ BarcodeType, opts BarcodeOptions) *Encoder {
	if data == "" {
		return e
	}
	code, ok := barcodeCodes[typ]
	if !ok {
		code = barcodeCodes[BarcodeCode128]
	}
	height := opts.Height
	if height == 0 {
		height = 80
	}
	width := clamp(int(opts.Width), 2, 6)
	if opts.Width == 0 {
		width = 2
	}

	e.raw(gs, 'h', height)
	e.raw(gs, 'w', byte(width))
	e.raw(gs, 'H', byte(clamp(int(opts.TextPosition), 0, 3)))
	e.raw(gs, 'k', code, byte(len(data)))
	e.buf = append(e.buf, data...)
	return e
}

// Feed advances the paper by whole lines, clamped to 0..255.
func (e *Encoder) Feed(lines int) *Encoder {
	return e.raw(esc, 'd', byte(clamp(lines, 0, 255)))
}

// FeedDots advances the paper by individual dots, clamped to 0..255.
func (e *Encoder) FeedDots(dots int) *Encoder {
	return e.raw(esc, 'J', byte(clamp(dots, 0, 255)))
}

// Cut feeds three lines and performs a full cut.
func (e *Encoder) Cut() *Encoder {
	return e.CutWithFeed(3, false)
}

// PartialCut feeds three lines and performs a partial cut.
func (e *Encoder) PartialCut() *Encoder {
	return e.CutWithFeed(3, true)
}

// CutWithFeed feeds the given number of lines, then cuts. Partial
// leaves a paper bridge so the receipt stays attached.
func (e *Encoder) CutWithFeed(lines int, partial bool) *Encoder {
	e.Feed(lines)
	m := byte(0)
	if partial {
		m = 1
	}
	return e.raw(gs, 'V', m)
}

// OpenDrawer pulses a cash drawer kick connector. Pin 2 and pin 5 are
// the two standard connectors; anything else maps to pin 2. Pulse
// times are in units of 2ms.
func (e *Encoder) OpenDrawer(pin int, onTime, offTime byte) *Encoder {
	m := byte(0)
	if pin == 5 {
		m = 1
	}
	if onTime == 0 {
		onTime = 25
	}
	if offTime == 0 {
		offTime = 25
	}
	return e.raw(esc, 'p', m, onTime, offTime)
}

// Build returns the accumulated command stream. The returned slice is
// a copy; the encoder remains usable.
func (e *Encoder) Build() []byte {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out
}

// Len reports the current size of the command stream in bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Clone returns an independent copy of the encoder, buffer included.
func (e *Encoder) Clone() *Encoder {
	c := *e
	c.buf = make([]byte, len(e.buf))
	copy(c.buf, e.buf)
	return &c
}

// Append copies another encoder's buffer onto this one. The other
// encoder is left untouched.
func (e *Encoder) Append(other *Encoder) *Encoder {
	if other != nil {
		e.buf = append(e.buf, other.buf...)
	}
	return e
}

// Base64 returns the command stream encoded as standard base64.
func (e *Encoder) Base64() string {
	return base64.StdEncoding.EncodeToString(e.buf)
}

// Hex returns the command stream as lowercase hex.
func (e *Encoder) Hex() string {
	return hex.EncodeToString(e.buf)
}

// DecodeBase64 decodes a base64 command stream produced by Base64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// DecodeHex decodes a hex command stream produced by Hex.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func padRight(s string, width int) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	return s + strings.Repeat(" ", n)
}
