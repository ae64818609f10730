package voucher

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatSats renders a sats amount with thousands separators, so
// 5000 prints as "5,000".
func FormatSats(sats int64) string {
	return numberPrinter.Sprintf("%d", sats)
}

// FormatSecret groups a voucher secret into four-character blocks for
// manual entry, capped at three blocks. Characters beyond the twelfth
// are dropped.
func FormatSecret(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) > 12 {
		runes = runes[:12]
	}
	var groups []string
	for i := 0; i < len(runes); i += 4 {
		end := i + 4
		if end > len(runes) {
			end = len(runes)
		}
		groups = append(groups, string(runes[i:end]))
	}
	return strings.Join(groups, " ")
}

// FormatPrice renders the fiat display amount, e.g. "10.00 USD".
func FormatPrice(amount float64, currency string) string {
	return strconv.FormatFloat(amount, 'f', 2, 64) + " " + currency
}

// FormatCommission renders a commission percentage without trailing
// zeros, e.g. "2%" or "1.5%".
func FormatCommission(percent float64) string {
	s := strconv.FormatFloat(percent, 'f', -1, 64)
	return s + "%"
}

// FormatExpiry renders an expiry as a short date, e.g. "02 Jan 2026".
func FormatExpiry(t time.Time) string {
	return t.Format("02 Jan 2006")
}
