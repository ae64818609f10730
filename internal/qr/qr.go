// Package qr turns payload strings into bare QR module matrices. The
// matrices carry no quiet zone; renderers add their own margin so the
// border width stays a layout decision, not an encoding one.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Matrix encodes data at the given error correction level (L, M, Q or
// H, case-insensitive, unknown values treated as M) and returns the
// module matrix, row-major, true for dark modules.
func Matrix(data, level string) ([][]bool, error) {
	q, err := qrcode.New(data, toRecoveryLevel(level))
	if err != nil {
		return nil, fmt.Errorf("encode qr payload: %w", err)
	}
	q.DisableBorder = true
	return q.Bitmap(), nil
}

// Size returns the matrix dimension the payload would encode to, or an
// error when the payload cannot be encoded at all.
func Size(data, level string) (int, error) {
	m, err := Matrix(data, level)
	if err != nil {
		return 0, err
	}
	return len(m), nil
}

func toRecoveryLevel(level string) qrcode.RecoveryLevel {
	switch strings.ToUpper(level) {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}
