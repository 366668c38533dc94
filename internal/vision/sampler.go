package vision

import (
	"fmt"
	"image"

	"github.com/sweeney/boiler-vision/internal/logic"
)

// Region is the fixed rectangle covering one indicator light.
type Region struct {
	Light int
	Rect  image.Rectangle
}

// LightObservation is one light's state in one frame.
type LightObservation struct {
	Light  int
	Lit    bool
	Pixels int // pixels within the color bounds
	Area   int // pixels in the region
}

// Sampler classifies each light region of a frame as lit or unlit.
// It holds no state between calls.
type Sampler struct {
	regions        [logic.NumLights]image.Rectangle
	minLitFraction float64
}

// NewSampler validates the regions: exactly one non-empty rectangle per
// light, no two overlapping. A region is lit when more than minLitFraction
// of its pixels fall within the color bounds.
func NewSampler(regions []Region, minLitFraction float64) (*Sampler, error) {
	if len(regions) != logic.NumLights {
		return nil, fmt.Errorf("expected %d light regions, got %d", logic.NumLights, len(regions))
	}
	if minLitFraction <= 0 || minLitFraction >= 1 {
		return nil, fmt.Errorf("min lit fraction %v must lie strictly between 0 and 1", minLitFraction)
	}

	s := &Sampler{minLitFraction: minLitFraction}
	var seen [logic.NumLights]bool
	for _, r := range regions {
		if r.Light < 0 || r.Light >= logic.NumLights {
			return nil, fmt.Errorf("light index %d out of range", r.Light)
		}
		if seen[r.Light] {
			return nil, fmt.Errorf("duplicate region for light %d", r.Light)
		}
		if r.Rect.Empty() {
			return nil, fmt.Errorf("empty region for light %d", r.Light)
		}
		seen[r.Light] = true
		s.regions[r.Light] = r.Rect.Canon()
	}
	for i := range s.regions {
		for j := i + 1; j < len(s.regions); j++ {
			if s.regions[i].Overlaps(s.regions[j]) {
				return nil, fmt.Errorf("regions for lights %d and %d overlap", i, j)
			}
		}
	}
	return s, nil
}

// Regions returns the calibrated rectangles indexed by light.
func (s *Sampler) Regions() [logic.NumLights]image.Rectangle {
	return s.regions
}

// Sample observes every light in img under bounds b.
func (s *Sampler) Sample(img image.Image, b ColorBounds) ([logic.NumLights]LightObservation, error) {
	var out [logic.NumLights]LightObservation
	for i, r := range s.regions {
		n, err := CountInBounds(img, r, b)
		if err != nil {
			return out, fmt.Errorf("light %d: %w", i, err)
		}
		area := r.Dx() * r.Dy()
		out[i] = LightObservation{
			Light:  i,
			Lit:    float64(n) > float64(area)*s.minLitFraction,
			Pixels: n,
			Area:   area,
		}
	}
	return out, nil
}

// CountInBounds counts the pixels of img inside r whose color lies within b.
func CountInBounds(img image.Image, r image.Rectangle, b ColorBounds) (int, error) {
	if !r.In(img.Bounds()) {
		return 0, fmt.Errorf("%w: %v not in %v", ErrRegionOutOfFrame, r, img.Bounds())
	}
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if b.Contains(ToHSV(rgbAt(img, x, y))) {
				n++
			}
		}
	}
	return n, nil
}

// LitPattern extracts the lit flags from a frame's observations.
func LitPattern(obs [logic.NumLights]LightObservation) [logic.NumLights]bool {
	var lit [logic.NumLights]bool
	for i, o := range obs {
		lit[i] = o.Lit
	}
	return lit
}
