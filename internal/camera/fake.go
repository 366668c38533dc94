package camera

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// FakeSource is a test double that returns scripted frames.
type FakeSource struct {
	// Images contains scripted frames. Each call to Acquire consumes the
	// next image; once exhausted the last image is returned repeatedly.
	Images []image.Image

	// FailOn lists the zero-based Acquire calls that fail with
	// ErrCaptureUnavailable.
	FailOn map[int]bool

	// AcquireError, if set, is returned by every Acquire call.
	AcquireError error

	// Now stamps frames; defaults to time.Now.
	Now func() time.Time

	// Calls counts Acquire invocations.
	Calls int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeSource creates a FakeSource with the given images.
func NewFakeSource(images ...image.Image) *FakeSource {
	return &FakeSource{Images: images}
}

// Acquire returns the next scripted frame.
func (f *FakeSource) Acquire() (Frame, error) {
	call := f.Calls
	f.Calls++

	if f.AcquireError != nil {
		return Frame{}, f.AcquireError
	}
	if f.FailOn[call] {
		return Frame{}, fmt.Errorf("%w: scripted failure on call %d", ErrCaptureUnavailable, call)
	}
	if len(f.Images) == 0 {
		return Frame{}, errors.New("no images configured")
	}

	img := f.Images[f.index]
	if f.index < len(f.Images)-1 {
		f.index++
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return Frame{Image: img, Captured: now()}, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the source to the first image.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Calls = 0
	f.Closed = false
}
