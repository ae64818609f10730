// Package receipt assembles complete voucher receipts as ESC/POS byte
// streams. A Composer owns the logo asset and its bitmap cache and
// exposes three layouts: standard, minimal and reissue.
package receipt

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pretyflaco/voucherprint/internal/escpos"
	"github.com/pretyflaco/voucherprint/internal/qr"
	"github.com/pretyflaco/voucherprint/internal/raster"
	"github.com/pretyflaco/voucherprint/internal/voucher"
)

// ErrAssetLoad marks a logo that could not be read or decoded. Builds
// degrade to the text header instead of failing.
var ErrAssetLoad = errors.New("logo load failed")

const (
	infoLabelWidth = 12
	// maxRasterRows bounds one raster command; taller bitmaps go out
	// in bands so small printer buffers keep up.
	maxRasterRows = 256
)

// Composer builds receipt buffers. It is safe for concurrent use once
// constructed; PreloadLogo may run from any goroutine but must finish
// before a build that should include the logo.
type Composer struct {
	logger *slog.Logger
	cache  *raster.LogoCache

	mu      sync.RWMutex
	logo    image.Image
	logoSrc string
}

func NewComposer(logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{logger: logger, cache: raster.NewLogoCache()}
}

// PreloadLogo reads and decodes the logo image at path. On failure the
// composer keeps its previous logo (usually none) and later builds
// fall back to the text header.
func (c *Composer) PreloadLogo(path string) error {
	f, err := os.Open(path)
	if err != nil {
		c.logger.Warn("logo preload failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrAssetLoad, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		c.logger.Warn("logo decode failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrAssetLoad, err)
	}

	c.mu.Lock()
	c.logo = img
	c.logoSrc = path
	c.mu.Unlock()

	c.logger.Debug("logo preloaded", "path", path, "format", format)
	return nil
}

// HasLogo reports whether a logo has been preloaded.
func (c *Composer) HasLogo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logo != nil
}

// LogoRenders reports how many logo conversions the cache has done.
func (c *Composer) LogoRenders() int64 {
	return c.cache.Renders()
}

// Compose builds the receipt for a voucher and returns the encoder
// holding the finished command stream.
func (c *Composer) Compose(v voucher.Voucher, opts Options) (*escpos.Encoder, error) {
	opts = opts.withDefaults()
	enc := escpos.NewEncoder(escpos.ProfileForWidth(opts.PaperWidth))

	var err error
	switch opts.Type {
	case TypeMinimal:
		err = c.minimal(enc, v, opts)
	case TypeReissue:
		err = c.reissue(enc, v, opts)
	default:
		err = c.standard(enc, v, opts)
	}
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// Bytes builds the receipt and returns the raw command stream.
func (c *Composer) Bytes(v voucher.Voucher, opts Options) ([]byte, error) {
	enc, err := c.Compose(v, opts)
	if err != nil {
		return nil, err
	}
	return enc.Build(), nil
}

// Base64 builds the receipt and returns the stream base64-encoded,
// ready for deep-link embedding.
func (c *Composer) Base64(v voucher.Voucher, opts Options) (string, error) {
	enc, err := c.Compose(v, opts)
	if err != nil {
		return "", err
	}
	return enc.Base64(), nil
}

func (c *Composer) standard(enc *escpos.Encoder, v voucher.Voucher, opts Options) error {
	c.header(enc, opts)
	enc.Line("")
	c.infoBlock(enc, v)
	enc.Line("")
	if err := c.qrBlock(enc, v.LNURL, opts); err != nil {
		return err
	}
	c.secretBlock(enc, v.VoucherSecret)
	enc.CenterLine(opts.FooterText, false, 1)
	c.finish(enc, opts)
	return nil
}

func (c *Composer) minimal(enc *escpos.Encoder, v voucher.Voucher, opts Options) error {
	enc.CenterLine(opts.HeaderText, true, 1)
	enc.CenterLine(voucher.FormatSats(v.SatsAmount)+" sats", true, 2)
	enc.Separator('-')
	if err := c.qrBlock(enc, v.LNURL, opts); err != nil {
		return err
	}
	if v.VoucherSecret != "" {
		enc.CenterLine(voucher.FormatSecret(v.VoucherSecret), true, 1)
	}
	if v.IdentifierCode != "" {
		enc.SelectFont(escpos.FontB)
		enc.CenterLine(strings.ToUpper(v.IdentifierCode), false, 1)
		enc.SelectFont(escpos.FontA)
	}
	enc.Separator('-')
	enc.CenterLine(opts.FooterText, false, 1)
	enc.Feed(opts.FeedLinesAfter)
	return nil
}

func (c *Composer) reissue(enc *escpos.Encoder, v voucher.Voucher, opts Options) error {
	c.header(enc, opts)
	enc.Line("")

	enc.Align(escpos.AlignCenter)
	enc.Invert(true).Bold(true)
	enc.Line(" REISSUED ")
	enc.Bold(false).Invert(false)
	enc.Align(escpos.AlignLeft)
	enc.Line("")

	c.infoBlock(enc, v)
	enc.Line("")
	if err := c.qrBlock(enc, v.LNURL, opts); err != nil {
		return err
	}
	c.secretBlock(enc, v.VoucherSecret)
	if opts.PaperWidth == 80 {
		c.lnurlBlock(enc, v.LNURL)
	}
	enc.CenterLine(opts.FooterText, false, 1)
	c.finish(enc, opts)
	return nil
}

// header prints the logo when preloaded and wanted, else the bold
// double-size text fallback.
func (c *Composer) header(enc *escpos.Encoder, opts Options) {
	if opts.ShowLogo {
		if bm := c.logoBitmap(opts); bm != nil && bm.Height() > 0 {
			enc.Align(escpos.AlignCenter)
			for _, chunk := range bm.Chunks(maxRasterRows) {
				enc.RasterImage(chunk.Data(), chunk.Width(), chunk.Height(), escpos.RasterNormal)
			}
			enc.Align(escpos.AlignLeft)
			return
		}
	}
	enc.CenterLine(opts.HeaderText, true, 2)
}

func (c *Composer) logoBitmap(opts Options) *raster.Bitmap {
	c.mu.RLock()
	img, src := c.logo, c.logoSrc
	c.mu.RUnlock()
	if img == nil {
		return nil
	}
	return c.cache.Render(img, src, opts.PaperWidth, opts.LogoThreshold, opts.LogoInvert)
}

// infoBlock prints one label/value line per populated voucher field.
func (c *Composer) infoBlock(enc *escpos.Encoder, v voucher.Voucher) {
	enc.Align(escpos.AlignLeft)
	if v.HasPrice() {
		enc.LabelValue("Price:", voucher.FormatPrice(v.DisplayAmount, v.DisplayCurrency), infoLabelWidth, false)
	}
	enc.LabelValue("Value:", voucher.FormatSats(v.SatsAmount)+" sats", infoLabelWidth, true)
	if v.IdentifierCode != "" {
		enc.LabelValue("Identifier:", strings.ToUpper(v.IdentifierCode), infoLabelWidth, false)
	}
	if v.CommissionPercent > 0 {
		enc.LabelValue("Commission:", voucher.FormatCommission(v.CommissionPercent), infoLabelWidth, false)
	}
	if !v.ExpiresAt.IsZero() {
		enc.LabelValue("Expires:", voucher.FormatExpiry(v.ExpiresAt), infoLabelWidth, false)
	}
	if v.IssuedBy != "" {
		enc.LabelValue("Issued by:", v.IssuedBy, infoLabelWidth, false)
	}
}

// qrBlock prints the LNURL as a centered QR symbol, native or raster.
func (c *Composer) qrBlock(enc *escpos.Encoder, lnurl string, opts Options) error {
	size := opts.QRSize
	if size == 0 {
		size = adaptiveQRSize(opts.PaperWidth, len(lnurl))
	}

	enc.Align(escpos.AlignCenter)
	if opts.UseNativeQR {
		enc.QRCode(lnurl, size, opts.QRErrorCorrection)
	} else {
		matrix, err := qr.Matrix(lnurl, opts.QRErrorCorrection)
		if err != nil {
			return fmt.Errorf("build qr block: %w", err)
		}
		bm, err := raster.RenderMatrixForPaper(matrix, size, raster.DefaultQRMargin, enc.Profile().DotsPerLine)
		if err != nil {
			return fmt.Errorf("render qr block: %w", err)
		}
		for _, chunk := range bm.Chunks(maxRasterRows) {
			enc.RasterImage(chunk.Data(), chunk.Width(), chunk.Height(), escpos.RasterNormal)
		}
	}
	enc.Align(escpos.AlignLeft)
	enc.Line("")
	return nil
}

// adaptiveQRSize picks a module size from the paper width, then caps
// it as the payload grows so long LNURLs still fit the roll.
func adaptiveQRSize(paperWidth, payloadLen int) int {
	size := 8
	if paperWidth == 58 {
		size = 6
	}
	switch {
	case payloadLen > 300:
		if size > 4 {
			size = 4
		}
	case payloadLen > 150:
		if size > 5 {
			size = 5
		}
	}
	return size
}

func (c *Composer) secretBlock(enc *escpos.Encoder, secret string) {
	if secret == "" {
		return
	}
	enc.CenterLine("Voucher Code", false, 1)
	enc.CenterLine(voucher.FormatSecret(secret), true, 2)
	enc.Line("")
}

// lnurlBlock prints the raw LNURL in fixed-width chunks for manual
// entry when the QR cannot be scanned.
func (c *Composer) lnurlBlock(enc *escpos.Encoder, lnurl string) {
	enc.Align(escpos.AlignLeft)
	width := enc.Profile().CharsPerLine - 2
	for i := 0; i < len(lnurl); i += width {
		end := i + width
		if end > len(lnurl) {
			end = len(lnurl)
		}
		enc.Line(lnurl[i:end])
	}
	enc.Line("")
}

func (c *Composer) finish(enc *escpos.Encoder, opts Options) {
	if opts.AutoCut {
		enc.CutWithFeed(3, opts.PartialCut)
	} else {
		enc.Feed(opts.FeedLinesAfter)
	}
}
