// Package handlers implements the REST surface: printing, receipt
// preview, transport discovery, history, settings and the webhook
// registry.
package handlers

import (
	"github.com/pretyflaco/voucherprint/internal/receipt"
	"github.com/pretyflaco/voucherprint/internal/voucher"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// OptionsRequest is the wire form of print options. Fields mirror
// receipt.Options; pointers distinguish "absent" from zero values
// where the default is not the zero value.
type OptionsRequest struct {
	PaperWidth        int    `json:"paperWidth"`
	QRSize            int    `json:"qrSize"`
	QRErrorCorrection string `json:"qrErrorCorrection"`
	UseNativeQR       bool   `json:"useNativeQr"`
	ShowLogo          *bool  `json:"showLogo"`
	AutoCut           bool   `json:"autoCut"`
	PartialCut        bool   `json:"partialCut"`
	FeedLinesAfter    int    `json:"feedLinesAfter"`
	ReceiptType       string `json:"receiptType"`
	RetryOnFail       bool   `json:"retryOnFail"`
	MaxRetries        int    `json:"maxRetries"`
}

// PrintDefaults carries the configured fallbacks applied when a
// request leaves an option out.
type PrintDefaults struct {
	PaperWidth int
	HeaderText string
	FooterText string
	ShowLogo   bool
}

func (r OptionsRequest) toOptions(d PrintDefaults) receipt.Options {
	opts := receipt.Options{
		PaperWidth:        r.PaperWidth,
		QRSize:            r.QRSize,
		QRErrorCorrection: r.QRErrorCorrection,
		UseNativeQR:       r.UseNativeQR,
		ShowLogo:          d.ShowLogo,
		AutoCut:           r.AutoCut,
		PartialCut:        r.PartialCut,
		FeedLinesAfter:    r.FeedLinesAfter,
		Type:              receipt.Type(r.ReceiptType),
		HeaderText:        d.HeaderText,
		FooterText:        d.FooterText,
		RetryOnFail:       r.RetryOnFail,
		MaxRetries:        r.MaxRetries,
	}
	if opts.PaperWidth == 0 {
		opts.PaperWidth = d.PaperWidth
	}
	if r.ShowLogo != nil {
		opts.ShowLogo = *r.ShowLogo
	}
	return opts
}

// PrintRequest is the body of the print and preview endpoints.
type PrintRequest struct {
	Voucher voucher.Voucher `json:"voucher" binding:"required"`
	Options OptionsRequest  `json:"options"`
}

// BatchPrintRequest is the body of the batch endpoint.
type BatchPrintRequest struct {
	Vouchers []voucher.Voucher `json:"vouchers" binding:"required"`
	Options  OptionsRequest    `json:"options"`
}
