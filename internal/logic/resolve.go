package logic

import (
	"errors"
	"fmt"
)

// ErrAmbiguousBlinkState is returned by Resolve when more than one light
// blinked in the same window.
var ErrAmbiguousBlinkState = errors.New("ambiguous blink state")

// Resolve maps four light determinations to a boiler state.
//
// When more than one light is blinking the returned state is still usable:
// Heating is true, Percentage counts steady lights only, BlinkingLight is -1
// and Ambiguous is set. The error wraps ErrAmbiguousBlinkState.
func Resolve(lights [NumLights]Determination) (BoilerState, error) {
	state := BoilerState{BlinkingLight: -1, Lights: lights}

	var blinking []int
	for i, d := range lights {
		switch d {
		case LightSteadyOn:
			state.Percentage += PercentPerLight
		case LightBlinking:
			blinking = append(blinking, i)
		}
	}

	switch len(blinking) {
	case 0:
		return state, nil
	case 1:
		state.Heating = true
		state.BlinkingLight = blinking[0]
		return state, nil
	default:
		state.Heating = true
		state.Ambiguous = true
		return state, fmt.Errorf("%w: lights %v blinking", ErrAmbiguousBlinkState, blinking)
	}
}

// SteadyCount returns the number of steady lights in the state.
func (s BoilerState) SteadyCount() int {
	n := 0
	for _, d := range s.Lights {
		if d == LightSteadyOn {
			n++
		}
	}
	return n
}
