// Package raster converts images and QR matrices into the 1-bit packed
// bitmaps thermal printers consume. Pixels pack MSB first, row-major,
// and every bitmap's width is aligned up to a whole byte with the
// padding dots left white, which is exactly the layout the GS v 0
// raster command expects.
package raster

// Bitmap is a 1-bit monochrome image. A set bit is a dark (printed)
// dot. Width is always a multiple of 8; constructors align the
// requested width up and leave the extra columns white.
type Bitmap struct {
	data   []byte
	width  int
	height int
}

// NewBitmap returns an all-white bitmap. The width is aligned up to
// the next multiple of 8. Non-positive dimensions yield an empty
// bitmap.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	width = (width + 7) &^ 7
	return &Bitmap{
		data:   make([]byte, width/8*height),
		width:  width,
		height: height,
	}
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }

// BytesPerRow returns the packed row length, always Width/8.
func (b *Bitmap) BytesPerRow() int { return b.width / 8 }

// Data returns the packed pixel data. The slice is shared with the
// bitmap, not copied.
func (b *Bitmap) Data() []byte { return b.data }

// Set marks the dot at (x, y) dark or white. Out-of-range coordinates
// are ignored.
func (b *Bitmap) Set(x, y int, dark bool) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	idx := y*b.BytesPerRow() + x/8
	mask := byte(0x80) >> uint(x%8)
	if dark {
		b.data[idx] |= mask
	} else {
		b.data[idx] &^= mask
	}
}

// Get reports whether the dot at (x, y) is dark. Out-of-range
// coordinates read as white.
func (b *Bitmap) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return false
	}
	return b.data[y*b.BytesPerRow()+x/8]&(byte(0x80)>>uint(x%8)) != 0
}

// Chunks splits the bitmap into horizontal bands of at most maxRows
// rows each. Printer buffers choke on tall raster blocks, so callers
// print one band at a time. The bands share no memory with the
// original.
func (b *Bitmap) Chunks(maxRows int) []*Bitmap {
	if maxRows <= 0 || b.height <= maxRows {
		c := NewBitmap(b.width, b.height)
		copy(c.data, b.data)
		return []*Bitmap{c}
	}
	bpr := b.BytesPerRow()
	var out []*Bitmap
	for y := 0; y < b.height; y += maxRows {
		rows := maxRows
		if y+rows > b.height {
			rows = b.height - y
		}
		c := NewBitmap(b.width, rows)
		copy(c.data, b.data[y*bpr:(y+rows)*bpr])
		out = append(out, c)
	}
	return out
}
