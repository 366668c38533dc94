// Package vision samples webcam frames of the boiler front panel.
//
// Colors use OpenCV's 8-bit HSV convention (H in [0,180), S and V in
// [0,255]) so bounds tuned against OpenCV captures carry over unchanged.
package vision

import (
	"fmt"
	"image"
	"math"
)

// HSV is a pixel in OpenCV's 8-bit HSV space.
type HSV struct {
	H, S, V uint8
}

// ToHSV converts an 8-bit RGB triple.
func ToHSV(r, g, b uint8) HSV {
	maxc := max(r, g, b)
	minc := min(r, g, b)
	if maxc == 0 {
		return HSV{}
	}

	diff := float64(maxc) - float64(minc)
	s := uint8(math.Round(255 * diff / float64(maxc)))
	if diff == 0 {
		return HSV{S: s, V: maxc}
	}

	rf, gf, bf := float64(r), float64(g), float64(b)
	var h float64
	switch maxc {
	case r:
		h = 60 * (gf - bf) / diff
	case g:
		h = 120 + 60*(bf-rf)/diff
	default:
		h = 240 + 60*(rf-gf)/diff
	}
	if h < 0 {
		h += 360
	}
	hv := int(math.Round(h / 2))
	if hv >= 180 {
		hv -= 180
	}
	return HSV{H: uint8(hv), S: s, V: maxc}
}

// ColorBounds is an inclusive HSV range used to classify lit pixels.
type ColorBounds struct {
	Lower HSV
	Upper HSV
}

// Contains reports whether p lies within the bounds on every channel.
func (b ColorBounds) Contains(p HSV) bool {
	return p.H >= b.Lower.H && p.H <= b.Upper.H &&
		p.S >= b.Lower.S && p.S <= b.Upper.S &&
		p.V >= b.Lower.V && p.V <= b.Upper.V
}

// Validate rejects inverted ranges and hues outside [0,180].
func (b ColorBounds) Validate() error {
	if b.Upper.H > 180 {
		return fmt.Errorf("upper hue %d exceeds 180", b.Upper.H)
	}
	if b.Lower.H > b.Upper.H || b.Lower.S > b.Upper.S || b.Lower.V > b.Upper.V {
		return fmt.Errorf("lower bound %v exceeds upper bound %v", b.Lower, b.Upper)
	}
	return nil
}

// rgbAt returns the 8-bit color of the pixel at (x, y).
func rgbAt(img image.Image, x, y int) (r, g, b uint8) {
	if rgba, ok := img.(*image.RGBA); ok {
		i := rgba.PixOffset(x, y)
		p := rgba.Pix[i : i+3 : i+3]
		return p[0], p[1], p[2]
	}
	cr, cg, cb, _ := img.At(x, y).RGBA()
	return uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)
}

// luma is the BT.601 grayscale value OpenCV uses for BGR2GRAY.
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
