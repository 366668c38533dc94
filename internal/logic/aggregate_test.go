package logic

import (
	"testing"
)

// window folds a per-light lit sequence into an accumulator. Every light in
// the window sees seq[light][i] on frame i.
func window(seqs [NumLights][]bool) Accumulator {
	var acc Accumulator
	n := len(seqs[0])
	for i := 0; i < n; i++ {
		var lit [NumLights]bool
		for l := range seqs {
			lit[l] = seqs[l][i]
		}
		acc = acc.Add(lit)
	}
	return acc
}

// steady returns n copies of v.
func steady(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// alternating returns n samples that toggle every period frames, starting lit.
func alternating(n, period int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = (i/period)%2 == 0
	}
	return out
}

func TestAccumulatorAddDoesNotMutateReceiver(t *testing.T) {
	var acc Accumulator
	next := acc.Add([NumLights]bool{true, false, true, false})

	if acc.Samples() != 0 {
		t.Errorf("receiver mutated: samples=%d", acc.Samples())
	}
	if next.Samples() != 1 {
		t.Errorf("expected 1 sample, got %d", next.Samples())
	}
	if next.Lights[0].Lit != 1 || next.Lights[1].Lit != 0 {
		t.Errorf("unexpected lit counts: %+v", next.Lights)
	}
}

func TestAccumulatorCountsToggles(t *testing.T) {
	acc := window([NumLights][]bool{
		{true, false, true, false},
		{true, true, true, true},
		{false, false, false, true},
		{false, true, true, false},
	})

	want := []int{3, 0, 1, 2}
	for i, w := range want {
		if acc.Lights[i].Toggles != w {
			t.Errorf("light %d: expected %d toggles, got %d", i, w, acc.Lights[i].Toggles)
		}
	}
}

func TestLightTallyFraction(t *testing.T) {
	if f := (LightTally{}).Fraction(); f != 0 {
		t.Errorf("empty tally: expected 0, got %v", f)
	}
	if f := (LightTally{Samples: 30, Lit: 15}).Fraction(); f != 0.5 {
		t.Errorf("expected 0.5, got %v", f)
	}
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name  string
		tally LightTally
		want  Determination
	}{
		{"empty window", LightTally{}, LightOff},
		{"never lit", LightTally{Samples: 30}, LightOff},
		{"always lit", LightTally{Samples: 30, Lit: 30}, LightSteadyOn},
		{"one dropped frame", LightTally{Samples: 30, Lit: 29, Toggles: 1}, LightSteadyOn},
		{"dropped frame mid window", LightTally{Samples: 30, Lit: 29, Toggles: 2}, LightSteadyOn},
		{"one spurious lit frame", LightTally{Samples: 30, Lit: 1, Toggles: 1}, LightOff},
		{"half lit", LightTally{Samples: 30, Lit: 15, Toggles: 5}, LightBlinking},
		{"mostly lit but blinking", LightTally{Samples: 30, Lit: 24, Toggles: 4}, LightBlinking},
		{"exactly at off threshold", LightTally{Samples: 20, Lit: 3, Toggles: 2}, LightBlinking},
		{"exactly at on threshold", LightTally{Samples: 20, Lit: 17, Toggles: 2}, LightBlinking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.tally, th); got != tt.want {
				t.Errorf("Classify(%+v) = %s, want %s", tt.tally, got, tt.want)
			}
		})
	}
}

func TestClassifyMonotonicInFraction(t *testing.T) {
	th := DefaultThresholds()
	const n = 100
	for lit := 0; lit <= n; lit++ {
		tally := LightTally{Samples: n, Lit: lit, Toggles: 1}
		if lit == 0 || lit == n {
			tally.Toggles = 0
		}
		got := Classify(tally, th)
		f := tally.Fraction()
		var want Determination
		switch {
		case f < th.OffBelow:
			want = LightOff
		case f > th.OnAbove:
			want = LightSteadyOn
		default:
			want = LightBlinking
		}
		if got != want {
			t.Errorf("fraction %.2f: got %s, want %s", f, got, want)
		}
	}
}

func TestClassifyWithoutTogglesIsNeverBlinking(t *testing.T) {
	// Degenerate thresholds put 0 and 1 inside the blinking band.
	th := Thresholds{OffBelow: 0, OnAbove: 1}
	if got := Classify(LightTally{Samples: 10, Lit: 10}, th); got != LightSteadyOn {
		t.Errorf("all lit: got %s", got)
	}
	if got := Classify(LightTally{Samples: 10}, th); got != LightOff {
		t.Errorf("none lit: got %s", got)
	}
}

func TestDeterminationsWindow(t *testing.T) {
	acc := window([NumLights][]bool{
		steady(true, 30),
		steady(true, 30),
		alternating(30, 3),
		steady(false, 30),
	})

	got := acc.Determinations(DefaultThresholds())
	want := [NumLights]Determination{LightSteadyOn, LightSteadyOn, LightBlinking, LightOff}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeterminationsToggleAtWindowBoundary(t *testing.T) {
	// A light switching on during the very last sample must not read as blinking.
	late := steady(false, 30)
	late[29] = true
	// A steady light whose first capture came back dark.
	early := steady(true, 30)
	early[0] = false

	acc := window([NumLights][]bool{early, late, steady(false, 30), steady(false, 30)})
	got := acc.Determinations(DefaultThresholds())

	if got[0] != LightSteadyOn {
		t.Errorf("light 0: got %s, want ON", got[0])
	}
	if got[1] != LightOff {
		t.Errorf("light 1: got %s, want OFF", got[1])
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"defaults", DefaultThresholds(), false},
		{"equal", Thresholds{OffBelow: 0.5, OnAbove: 0.5}, false},
		{"zero off", Thresholds{OffBelow: 0, OnAbove: 0.85}, true},
		{"on at one", Thresholds{OffBelow: 0.15, OnAbove: 1}, true},
		{"inverted", Thresholds{OffBelow: 0.9, OnAbove: 0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
