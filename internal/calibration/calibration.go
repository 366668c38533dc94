// Package calibration loads the offline-tuned constants the detector
// depends on: light regions, ambient reference regions and thresholds,
// the four color bound presets, and the sampling window.
//
// Everything is validated at load time. A Calibration that loads is
// complete; nothing is looked up lazily during detection.
package calibration

import (
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/boiler-vision/internal/logic"
	"github.com/sweeney/boiler-vision/internal/vision"
)

// ErrCalibrationMissing is returned when the calibration is absent or
// invalid. The daemon must not start without one.
var ErrCalibrationMissing = errors.New("calibration missing or invalid")

// Window defaults.
const (
	DefaultSamples        = 30
	DefaultSampleInterval = 200 * time.Millisecond
	DefaultMinLitFraction = 0.5
)

// Preset names in the [bounds] table, one per (room light, button) pair.
const (
	PresetDark        = "dark"
	PresetLit         = "lit"
	PresetDarkPressed = "dark_pressed"
	PresetLitPressed  = "lit_pressed"
)

var presetNames = []struct {
	name    string
	room    bool
	pressed bool
}{
	{PresetDark, false, false},
	{PresetLit, true, false},
	{PresetDarkPressed, false, true},
	{PresetLitPressed, true, true},
}

// Window controls the multi-frame sampling of one detection cycle.
type Window struct {
	Samples    int
	Interval   time.Duration
	Thresholds logic.Thresholds
}

// Calibration is the validated, immutable calibration.
type Calibration struct {
	FrameWidth  int
	FrameHeight int
	Regions     []vision.Region
	Ambient     vision.AmbientConfig
	Window      Window

	Sampler *vision.Sampler
	Bounds  *vision.BoundsTable
}

type fileFormat struct {
	Frame struct {
		Width  int `toml:"width"`
		Height int `toml:"height"`
	} `toml:"frame"`
	Ambient struct {
		RoomLightRect      []int   `toml:"room_light_rect"`
		RoomLightThreshold float64 `toml:"room_light_threshold"`
		ButtonRect         []int   `toml:"button_rect"`
		ButtonThreshold    float64 `toml:"button_threshold"`
	} `toml:"ambient"`
	Window struct {
		Samples        int     `toml:"samples"`
		IntervalMs     int     `toml:"interval_ms"`
		OffBelow       float64 `toml:"off_below"`
		OnAbove        float64 `toml:"on_above"`
		MinLitFraction float64 `toml:"min_lit_fraction"`
	} `toml:"window"`
	Lights []struct {
		Index int   `toml:"index"`
		Rect  []int `toml:"rect"`
	} `toml:"lights"`
	Bounds map[string]struct {
		Lower []int `toml:"lower"`
		Upper []int `toml:"upper"`
	} `toml:"bounds"`
}

// Load reads and validates the calibration file at path.
func Load(path string) (*Calibration, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no calibration file configured", ErrCalibrationMissing)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalibrationMissing, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a TOML calibration document.
func Parse(data []byte) (*Calibration, error) {
	var f fileFormat
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrCalibrationMissing, err)
	}
	c, err := build(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalibrationMissing, err)
	}
	return c, nil
}

func build(f fileFormat) (*Calibration, error) {
	c := &Calibration{
		FrameWidth:  f.Frame.Width,
		FrameHeight: f.Frame.Height,
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return nil, fmt.Errorf("frame size %dx%d must be positive", c.FrameWidth, c.FrameHeight)
	}
	frame := image.Rect(0, 0, c.FrameWidth, c.FrameHeight)

	inFrame := func(what string, v []int) (image.Rectangle, error) {
		r, err := rect(v)
		if err != nil {
			return r, fmt.Errorf("%s: %w", what, err)
		}
		if !r.In(frame) {
			return r, fmt.Errorf("%s: %v outside frame %v", what, r, frame)
		}
		return r, nil
	}

	var err error
	if c.Ambient.RoomRegion, err = inFrame("ambient.room_light_rect", f.Ambient.RoomLightRect); err != nil {
		return nil, err
	}
	if c.Ambient.ButtonRegion, err = inFrame("ambient.button_rect", f.Ambient.ButtonRect); err != nil {
		return nil, err
	}
	c.Ambient.RoomThreshold = f.Ambient.RoomLightThreshold
	c.Ambient.ButtonThreshold = f.Ambient.ButtonThreshold
	if c.Ambient.RoomThreshold <= 0 || c.Ambient.ButtonThreshold <= 0 {
		return nil, errors.New("ambient brightness thresholds must be positive")
	}

	for _, l := range f.Lights {
		r, err := inFrame(fmt.Sprintf("lights[%d].rect", l.Index), l.Rect)
		if err != nil {
			return nil, err
		}
		c.Regions = append(c.Regions, vision.Region{Light: l.Index, Rect: r})
	}

	c.Window = Window{
		Samples:  f.Window.Samples,
		Interval: time.Duration(f.Window.IntervalMs) * time.Millisecond,
		Thresholds: logic.Thresholds{
			OffBelow: f.Window.OffBelow,
			OnAbove:  f.Window.OnAbove,
		},
	}
	if c.Window.Samples == 0 {
		c.Window.Samples = DefaultSamples
	}
	if f.Window.IntervalMs == 0 {
		c.Window.Interval = DefaultSampleInterval
	}
	if c.Window.Thresholds == (logic.Thresholds{}) {
		c.Window.Thresholds = logic.DefaultThresholds()
	}
	if c.Window.Samples < 2 || c.Window.Interval < 0 {
		return nil, fmt.Errorf("window needs at least 2 samples and a non-negative interval")
	}
	if err := c.Window.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	minLit := f.Window.MinLitFraction
	if minLit == 0 {
		minLit = DefaultMinLitFraction
	}
	if c.Sampler, err = vision.NewSampler(c.Regions, minLit); err != nil {
		return nil, err
	}

	presets := make([]vision.Preset, 0, len(presetNames))
	for _, p := range presetNames {
		b, ok := f.Bounds[p.name]
		if !ok {
			return nil, fmt.Errorf("bounds.%s: missing", p.name)
		}
		lower, err := hsv(b.Lower)
		if err != nil {
			return nil, fmt.Errorf("bounds.%s.lower: %w", p.name, err)
		}
		upper, err := hsv(b.Upper)
		if err != nil {
			return nil, fmt.Errorf("bounds.%s.upper: %w", p.name, err)
		}
		presets = append(presets, vision.Preset{
			RoomLight:     p.room,
			ButtonPressed: p.pressed,
			Bounds:        vision.ColorBounds{Lower: lower, Upper: upper},
		})
	}
	for name := range f.Bounds {
		if !knownPreset(name) {
			return nil, fmt.Errorf("bounds.%s: unknown preset", name)
		}
	}
	if c.Bounds, err = vision.NewBoundsTable(presets); err != nil {
		return nil, err
	}

	return c, nil
}

func knownPreset(name string) bool {
	for _, p := range presetNames {
		if p.name == name {
			return true
		}
	}
	return false
}

// rect converts [x1, y1, x2, y2] to a rectangle.
func rect(v []int) (image.Rectangle, error) {
	if len(v) != 4 {
		return image.Rectangle{}, fmt.Errorf("expected [x1, y1, x2, y2], got %v", v)
	}
	r := image.Rect(v[0], v[1], v[2], v[3])
	if r.Empty() {
		return r, fmt.Errorf("empty rectangle %v", v)
	}
	return r, nil
}

// hsv converts [h, s, v] to a pixel value.
func hsv(v []int) (vision.HSV, error) {
	if len(v) != 3 {
		return vision.HSV{}, fmt.Errorf("expected [h, s, v], got %v", v)
	}
	for _, c := range v {
		if c < 0 || c > 255 {
			return vision.HSV{}, fmt.Errorf("channel %d out of range in %v", c, v)
		}
	}
	return vision.HSV{H: uint8(v[0]), S: uint8(v[1]), V: uint8(v[2])}, nil
}
