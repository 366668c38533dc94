// Package logic contains the pure decision logic that turns per-frame light
// observations into a boiler state.
// This package has NO external dependencies (no camera, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"time"
)

// NumLights is the number of status lights on the boiler front panel.
const NumLights = 4

// PercentPerLight is the share of the boiler each steady light represents.
const PercentPerLight = 100 / NumLights

// Determination is the stable state of one light over a sampling window.
type Determination string

const (
	LightOff      Determination = "OFF"
	LightSteadyOn Determination = "ON"
	LightBlinking Determination = "BLINKING"
)

// BoilerState is the resolved state of the boiler for one detection cycle.
type BoilerState struct {
	// Percentage is PercentPerLight times the number of steady lights.
	Percentage int
	// Heating is true when at least one light is blinking.
	Heating bool
	// BlinkingLight is the index of the light being heated toward, or -1
	// when no light, or more than one light, is blinking.
	BlinkingLight int
	// Ambiguous is set when more than one light blinked in the same window.
	Ambiguous bool
	Lights    [NumLights]Determination
}

// Thresholds are the lit-fraction cut-offs used to classify a window.
type Thresholds struct {
	OffBelow float64 // fraction of lit samples below which a light is off
	OnAbove  float64 // fraction of lit samples above which a light is steady
}

// DefaultThresholds tolerates several capture-timing artifacts in a
// 30-sample window before a steady light is reported as blinking.
func DefaultThresholds() Thresholds {
	return Thresholds{OffBelow: 0.15, OnAbove: 0.85}
}

// Validate checks 0 < OffBelow <= OnAbove < 1.
func (t Thresholds) Validate() error {
	if t.OffBelow <= 0 || t.OnAbove >= 1 {
		return fmt.Errorf("thresholds must lie strictly between 0 and 1 (off_below=%v on_above=%v)", t.OffBelow, t.OnAbove)
	}
	if t.OffBelow > t.OnAbove {
		return errors.New("off_below must not exceed on_above")
	}
	return nil
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
