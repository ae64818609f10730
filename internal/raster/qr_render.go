package raster

import "errors"

// ErrEmptyMatrix is returned when a QR render is asked for a matrix
// with no modules.
var ErrEmptyMatrix = errors.New("raster: empty qr matrix")

// DefaultQRMargin is the standard QR quiet zone, in modules.
const DefaultQRMargin = 4

// RenderMatrix draws a QR module matrix at a fixed module size with a
// quiet zone of margin modules on every side. When the resulting
// square would exceed maxDots the module size steps down until it
// fits, stopping at a floor of 2 dots per module; a symbol that still
// does not fit at the floor renders anyway and the printer clips it.
// A maxDots of zero disables the fit check.
func RenderMatrix(matrix [][]bool, moduleSize, margin, maxDots int) (*Bitmap, error) {
	n := len(matrix)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	if margin < 0 {
		margin = 0
	}
	if moduleSize < 2 {
		moduleSize = 2
	}
	if maxDots > 0 {
		for moduleSize > 2 && (n+2*margin)*moduleSize > maxDots {
			moduleSize--
		}
	}

	total := (n + 2*margin) * moduleSize
	bm := NewBitmap(total, total)
	for y, row := range matrix {
		for x, dark := range row {
			if !dark {
				continue
			}
			px := (margin + x) * moduleSize
			py := (margin + y) * moduleSize
			for dy := 0; dy < moduleSize; dy++ {
				for dx := 0; dx < moduleSize; dx++ {
					bm.Set(px+dx, py+dy, true)
				}
			}
		}
	}
	return bm, nil
}

// RenderMatrixForPaper clamps the requested module size to 2..8 and
// fits the result within the paper's printable dot width.
func RenderMatrixForPaper(matrix [][]bool, requested, margin, paperDots int) (*Bitmap, error) {
	if requested > 8 {
		requested = 8
	}
	if requested < 2 {
		requested = 2
	}
	return RenderMatrix(matrix, requested, margin, paperDots)
}
