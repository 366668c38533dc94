package logic

// LightTally is the running count for one light across a sampling window.
type LightTally struct {
	Samples int
	Lit     int
	Toggles int
	last    bool
}

// Fraction returns the share of samples in which the light was lit.
func (t LightTally) Fraction() float64 {
	if t.Samples == 0 {
		return 0
	}
	return float64(t.Lit) / float64(t.Samples)
}

// Accumulator reduces per-frame lit patterns into per-light tallies.
// It is a value type: Add returns the next accumulator and leaves the
// receiver untouched.
type Accumulator struct {
	Lights [NumLights]LightTally
}

// Add folds one frame's lit pattern into the window.
func (a Accumulator) Add(lit [NumLights]bool) Accumulator {
	for i := range a.Lights {
		t := &a.Lights[i]
		if t.Samples > 0 && lit[i] != t.last {
			t.Toggles++
		}
		if lit[i] {
			t.Lit++
		}
		t.last = lit[i]
		t.Samples++
	}
	return a
}

// Samples returns the number of frames folded in so far.
func (a Accumulator) Samples() int {
	return a.Lights[0].Samples
}

// Determinations classifies every light in the window.
func (a Accumulator) Determinations(th Thresholds) [NumLights]Determination {
	var out [NumLights]Determination
	for i, t := range a.Lights {
		out[i] = Classify(t, th)
	}
	return out
}

// Classify maps one light's tally to off, steady-on, or blinking.
//
// A fraction below th.OffBelow is off and above th.OnAbove is steady,
// regardless of toggles. Anything in between is blinking, provided the
// light toggled at least once.
func Classify(t LightTally, th Thresholds) Determination {
	if t.Samples == 0 {
		return LightOff
	}
	f := t.Fraction()
	switch {
	case f < th.OffBelow:
		return LightOff
	case f > th.OnAbove:
		return LightSteadyOn
	case t.Toggles > 0:
		return LightBlinking
	}
	// No toggles means the fraction is exactly 0 or 1, which only lands
	// here with degenerate thresholds.
	if t.Lit == t.Samples {
		return LightSteadyOn
	}
	return LightOff
}
