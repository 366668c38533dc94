// Package monitor runs one detection cycle: ambient detection, bounds
// selection, a window of samples, and resolution into a BoilerState.
//
// Cycles share nothing but the calibration, so a failed cycle never
// affects the next one.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/boiler-vision/internal/camera"
	"github.com/sweeney/boiler-vision/internal/logic"
	"github.com/sweeney/boiler-vision/internal/vision"
)

// MaxPatternFrames caps the pattern frames held for diagnostics in one
// cycle. Two blinking lights produce at most four patterns.
const MaxPatternFrames = 8

// Config holds the per-cycle parameters.
type Config struct {
	Samples        int
	SampleInterval time.Duration
	Thresholds     logic.Thresholds
	Ambient        vision.AmbientConfig
}

// Result is everything one cycle observed.
type Result struct {
	CycleID  string
	Started  time.Time
	Duration time.Duration

	Ambient vision.AmbientCondition
	Bounds  vision.ColorBounds

	Tallies        [logic.NumLights]logic.LightTally
	Determinations [logic.NumLights]logic.Determination
	State          logic.BoilerState

	// Reference is the frame ambient detection ran on.
	Reference camera.Frame
	// Frames holds the first frame of every distinct lit pattern seen
	// during the window, in the order they were seen, up to
	// MaxPatternFrames. It is emptied when the cycle resolves cleanly.
	// After a region error it holds the offending frame.
	Frames []camera.Frame
}

// DiagnosticFrames returns the frames worth keeping when the cycle is
// reported as an error.
func (r Result) DiagnosticFrames() []camera.Frame {
	var out []camera.Frame
	if r.Reference.Image != nil {
		out = append(out, r.Reference)
	}
	return append(out, r.Frames...)
}

// Monitor owns the frame source for the process lifetime.
type Monitor struct {
	source  camera.Source
	sampler *vision.Sampler
	bounds  *vision.BoundsTable
	cfg     Config
	log     *slog.Logger

	// Wait sleeps between samples. Tests replace it to run without delay.
	Wait func(ctx context.Context, d time.Duration) error
	// NewID generates cycle IDs.
	NewID func() string
	// Now is the clock.
	Now func() time.Time
}

// New creates a Monitor. The sampler and bounds table come from a
// validated calibration.
func New(source camera.Source, sampler *vision.Sampler, bounds *vision.BoundsTable, cfg Config, log *slog.Logger) (*Monitor, error) {
	if source == nil || sampler == nil || bounds == nil {
		return nil, errors.New("monitor: source, sampler and bounds are required")
	}
	if cfg.Samples < 1 {
		return nil, fmt.Errorf("monitor: samples must be positive, got %d", cfg.Samples)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		source:  source,
		sampler: sampler,
		bounds:  bounds,
		cfg:     cfg,
		log:     log,
		Wait:    sleep,
		NewID:   uuid.NewString,
		Now:     time.Now,
	}, nil
}

// RunCycle performs one detection cycle.
//
// A capture failure aborts the cycle and returns an error wrapping
// camera.ErrCaptureUnavailable together with a partial Result that carries
// no State. An ambiguous blink pattern returns a complete Result and an
// error wrapping logic.ErrAmbiguousBlinkState; the state is still meant to
// be published.
func (m *Monitor) RunCycle(ctx context.Context) (res Result, err error) {
	res = Result{CycleID: m.NewID(), Started: m.Now()}
	log := m.log.With("cycle", res.CycleID)
	defer func() { res.Duration = m.Now().Sub(res.Started) }()

	var ref camera.Frame
	ref, err = m.acquire()
	if err != nil {
		return res, err
	}
	res.Reference = ref

	res.Ambient, err = vision.DetectAmbient(ref.Image, m.cfg.Ambient)
	if err != nil {
		res.Frames = []camera.Frame{ref}
		return res, fmt.Errorf("ambient detection: %w", err)
	}
	res.Bounds = m.bounds.Select(res.Ambient)
	log.Debug("ambient detected",
		"room_light", res.Ambient.RoomLight,
		"button_pressed", res.Ambient.ButtonPressed,
		"room_brightness", res.Ambient.RoomBrightness,
		"button_brightness", res.Ambient.ButtonBrightness)

	var acc logic.Accumulator
	seen := make(map[[logic.NumLights]bool]bool)
	for i := 0; i < m.cfg.Samples; i++ {
		if i > 0 {
			if err := m.Wait(ctx, m.cfg.SampleInterval); err != nil {
				return res, err
			}
		}
		frame, err := m.acquire()
		if err != nil {
			res.Frames = nil
			return res, fmt.Errorf("sample %d of %d: %w", i+1, m.cfg.Samples, err)
		}
		obs, err := m.sampler.Sample(frame.Image, res.Bounds)
		if err != nil {
			res.Frames = append(res.Frames[:0], frame)
			return res, fmt.Errorf("sample %d of %d: %w", i+1, m.cfg.Samples, err)
		}
		pattern := vision.LitPattern(obs)
		if !seen[pattern] && len(res.Frames) < MaxPatternFrames {
			seen[pattern] = true
			res.Frames = append(res.Frames, frame)
		}
		acc = acc.Add(pattern)
	}

	res.Tallies = acc.Lights
	res.Determinations = acc.Determinations(m.cfg.Thresholds)
	res.State, err = logic.Resolve(res.Determinations)
	if err == nil {
		// Pattern frames are only dumped for ambiguous cycles.
		res.Frames = nil
	}
	log.Debug("window classified",
		"lights", res.Determinations,
		"percentage", res.State.Percentage,
		"heating", res.State.Heating)
	return res, err
}

func (m *Monitor) acquire() (camera.Frame, error) {
	frame, err := m.source.Acquire()
	if err != nil {
		if errors.Is(err, camera.ErrCaptureUnavailable) {
			return frame, err
		}
		return frame, fmt.Errorf("%w: %v", camera.ErrCaptureUnavailable, err)
	}
	if frame.Image == nil {
		return frame, fmt.Errorf("%w: empty frame", camera.ErrCaptureUnavailable)
	}
	return frame, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
