package vision

import (
	"fmt"
	"strings"
)

// Preset is the color bounds calibrated for one ambient combination.
type Preset struct {
	RoomLight     bool
	ButtonPressed bool
	Bounds        ColorBounds
}

type presetKey struct {
	room    bool
	pressed bool
}

func (k presetKey) String() string {
	var b strings.Builder
	if k.room {
		b.WriteString("room lit")
	} else {
		b.WriteString("room dark")
	}
	if k.pressed {
		b.WriteString(", button pressed")
	}
	return b.String()
}

// allPresetKeys enumerates every (room light, button pressed) combination.
var allPresetKeys = []presetKey{
	{room: false, pressed: false},
	{room: true, pressed: false},
	{room: false, pressed: true},
	{room: true, pressed: true},
}

// BoundsTable maps every ambient combination to its color bounds.
// It is total: NewBoundsTable refuses tables with a missing combination,
// so Select never fails.
type BoundsTable struct {
	presets map[presetKey]ColorBounds
}

// NewBoundsTable builds a table from exactly one preset per combination.
func NewBoundsTable(presets []Preset) (*BoundsTable, error) {
	m := make(map[presetKey]ColorBounds, len(allPresetKeys))
	for _, p := range presets {
		k := presetKey{room: p.RoomLight, pressed: p.ButtonPressed}
		if _, dup := m[k]; dup {
			return nil, fmt.Errorf("duplicate color bounds for %s", k)
		}
		if err := p.Bounds.Validate(); err != nil {
			return nil, fmt.Errorf("color bounds for %s: %w", k, err)
		}
		m[k] = p.Bounds
	}
	for _, k := range allPresetKeys {
		if _, ok := m[k]; !ok {
			return nil, fmt.Errorf("no color bounds for %s", k)
		}
	}
	return &BoundsTable{presets: m}, nil
}

// Select returns the bounds for the given ambient condition.
func (t *BoundsTable) Select(a AmbientCondition) ColorBounds {
	return t.presets[presetKey{room: a.RoomLight, pressed: a.ButtonPressed}]
}
