// Package voucher defines the redeemable Lightning voucher record the
// printing pipeline consumes, plus the formatting helpers receipts
// use. Vouchers are produced by an external store and are read-only
// here.
package voucher

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingLNURL marks a voucher with no LNURL payload. Such a
	// voucher cannot be redeemed and is never sent to a printer.
	ErrMissingLNURL = errors.New("voucher has no LNURL")
	// ErrNegativeAmount marks a voucher whose sats amount is below
	// zero. Zero is a valid amount.
	ErrNegativeAmount = errors.New("voucher sats amount is negative")
)

// Voucher is one redeemable claim. LNURL and SatsAmount are mandatory;
// every other field independently gates a line on the printed receipt.
type Voucher struct {
	LNURL             string    `json:"lnurl"`
	SatsAmount        int64     `json:"satsAmount"`
	DisplayAmount     float64   `json:"displayAmount,omitempty"`
	DisplayCurrency   string    `json:"displayCurrency,omitempty"`
	VoucherSecret     string    `json:"voucherSecret,omitempty"`
	IdentifierCode    string    `json:"identifierCode,omitempty"`
	CommissionPercent float64   `json:"commissionPercent,omitempty"`
	ExpiresAt         time.Time `json:"expiresAt,omitempty"`
	IssuedBy          string    `json:"issuedBy,omitempty"`
}

// Validate checks the mandatory fields. It is the only gate between a
// caller-supplied voucher and the print pipeline.
func (v Voucher) Validate() error {
	if v.LNURL == "" {
		return ErrMissingLNURL
	}
	if v.SatsAmount < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, v.SatsAmount)
	}
	return nil
}

// HasPrice reports whether the voucher carries a fiat display price.
func (v Voucher) HasPrice() bool {
	return v.DisplayAmount > 0 && v.DisplayCurrency != ""
}
