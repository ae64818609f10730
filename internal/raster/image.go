package raster

import (
	"image"
	"image/color"

	"github.com/makeworld-the-better-one/dither/v2"
	xdraw "golang.org/x/image/draw"
)

// DefaultThreshold is the luma cutoff separating dark from white dots
// when dithering is off.
const DefaultThreshold = 128

// ConvertOptions controls image to bitmap conversion. The zero value
// means: keep the source width, threshold at 128, no dithering, black
// prints black.
type ConvertOptions struct {
	// MaxWidth scales the image down (never up) when the source is
	// wider. Zero disables scaling.
	MaxWidth int
	// Threshold is the luma cutoff in 0..255; zero means
	// DefaultThreshold. Ignored when Dither is set.
	Threshold uint8
	// Dither applies serpentine Floyd-Steinberg error diffusion
	// instead of a hard threshold. Photographs want this, logos and
	// QR codes do not.
	Dither bool
	// Invert flips dark and white per source pixel. Alignment padding
	// stays white either way.
	Invert bool
}

// FromImage converts any image to a packed monochrome bitmap.
// Transparent pixels (alpha below 128) become white regardless of
// their color.
func FromImage(img image.Image, opts ConvertOptions) *Bitmap {
	if img == nil {
		return NewBitmap(0, 0)
	}
	img = scaleToWidth(img, opts.MaxWidth)
	gray := toGray(img)

	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewBitmap(w, h)

	if opts.Dither {
		d := dither.NewDitherer([]color.Color{color.Black, color.White})
		d.Matrix = dither.FloydSteinberg
		d.Serpentine = true
		pal := d.DitherPaletted(gray)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dark := isBlack(pal.At(bounds.Min.X+x, bounds.Min.Y+y))
				out.Set(x, y, dark != opts.Invert)
			}
		}
		return out
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dark := gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y < threshold
			out.Set(x, y, dark != opts.Invert)
		}
	}
	return out
}

// scaleToWidth shrinks img to maxWidth preserving aspect ratio. Images
// at or below the limit pass through untouched.
func scaleToWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		return img
	}
	h := bounds.Dy() * maxWidth / bounds.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// toGray flattens color and alpha into an 8-bit grayscale image using
// the Rec. 601 luma weights. Mostly transparent pixels read as white.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.SetGray(x, y, color.Gray{Y: lumaOf(img.At(x, y))})
		}
	}
	return gray
}

func lumaOf(c color.Color) uint8 {
	r, g, b, a := c.RGBA()
	if a>>8 < 128 {
		return 255
	}
	if a != 0 && a != 0xFFFF {
		// un-premultiply so translucent dark pixels keep their shade
		r = r * 0xFFFF / a
		g = g * 0xFFFF / a
		b = b * 0xFFFF / a
	}
	luma := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
	if luma > 255 {
		luma = 255
	}
	return uint8(luma)
}

func isBlack(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0 && g == 0 && b == 0
}
