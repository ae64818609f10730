package voucher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		v       Voucher
		wantErr error
	}{
		{"valid", Voucher{LNURL: "lnurl1abc", SatsAmount: 1000}, nil},
		{"zero sats is valid", Voucher{LNURL: "lnurl1abc", SatsAmount: 0}, nil},
		{"missing lnurl", Voucher{SatsAmount: 1000}, ErrMissingLNURL},
		{"empty voucher", Voucher{}, ErrMissingLNURL},
		{"negative sats", Voucher{LNURL: "lnurl1abc", SatsAmount: -1}, ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateErrorMentionsLNURL(t *testing.T) {
	err := Voucher{}.Validate()
	assert.Contains(t, err.Error(), "LNURL")
}

func TestHasPrice(t *testing.T) {
	assert.True(t, Voucher{DisplayAmount: 10, DisplayCurrency: "USD"}.HasPrice())
	assert.False(t, Voucher{DisplayAmount: 10}.HasPrice())
	assert.False(t, Voucher{DisplayCurrency: "USD"}.HasPrice())
	assert.False(t, Voucher{}.HasPrice())
}

func TestFormatSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"q6pvY79EftnZ", "q6pv Y79E ftnZ"},
		{"q6pvY79EftnZXX", "q6pv Y79E ftnZ"}, // beyond 12 chars truncates
		{"abcdefghij", "abcd efgh ij"},
		{"abcd", "abcd"},
		{"ab", "ab"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSecret(tt.in), "input %q", tt.in)
	}
}

func TestFormatSats(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{5000, "5,000"},
		{21000000, "21,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSats(tt.in))
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "10.00 USD", FormatPrice(10, "USD"))
	assert.Equal(t, "4.50 EUR", FormatPrice(4.5, "EUR"))
}

func TestFormatCommission(t *testing.T) {
	assert.Equal(t, "2%", FormatCommission(2))
	assert.Equal(t, "1.5%", FormatCommission(1.5))
	assert.Equal(t, "0.25%", FormatCommission(0.25))
}

func TestFormatExpiry(t *testing.T) {
	ts := time.Date(2026, time.March, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "07 Mar 2026", FormatExpiry(ts))
}
