package vision

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// ErrRegionOutOfFrame is returned when a calibrated rectangle does not fit
// inside the frame handed to the sampler.
var ErrRegionOutOfFrame = errors.New("region outside frame")

// AmbientCondition describes lighting that shifts how lit LEDs look.
// Valid for one detection cycle only.
type AmbientCondition struct {
	RoomLight     bool
	ButtonPressed bool

	RoomBrightness   float64
	ButtonBrightness float64
}

// AmbientConfig holds the reference regions and brightness thresholds
// (0-255 luma) used by DetectAmbient.
type AmbientConfig struct {
	RoomRegion      image.Rectangle
	RoomThreshold   float64
	ButtonRegion    image.Rectangle
	ButtonThreshold float64
}

// DetectAmbient decides whether the room light is on and whether the boiler
// button was just pressed. A press makes the LEDs saturate, so the light
// array region reads much brighter than with normal steady lights.
func DetectAmbient(img image.Image, cfg AmbientConfig) (AmbientCondition, error) {
	room, err := MeanBrightness(img, cfg.RoomRegion)
	if err != nil {
		return AmbientCondition{}, fmt.Errorf("room region: %w", err)
	}
	button, err := MeanBrightness(img, cfg.ButtonRegion)
	if err != nil {
		return AmbientCondition{}, fmt.Errorf("button region: %w", err)
	}
	return AmbientCondition{
		RoomLight:        room > cfg.RoomThreshold,
		ButtonPressed:    button > cfg.ButtonThreshold,
		RoomBrightness:   room,
		ButtonBrightness: button,
	}, nil
}

// MeanBrightness returns the mean luma of the pixels inside r.
func MeanBrightness(img image.Image, r image.Rectangle) (float64, error) {
	if r.Empty() || !r.In(img.Bounds()) {
		return 0, fmt.Errorf("%w: %v not in %v", ErrRegionOutOfFrame, r, img.Bounds())
	}
	values := make([]float64, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			values = append(values, luma(rgbAt(img, x, y)))
		}
	}
	return stat.Mean(values, nil), nil
}
