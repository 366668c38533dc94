// Package camera acquires still frames from the webcam pointed at the boiler.
// The real implementation uses OpenCV through gocv.
// The fake implementation allows testing without hardware.
package camera

import (
	"errors"
	"image"
	"time"
)

// ErrCaptureUnavailable is returned when the device is disconnected or
// yields no data.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Default capture geometry, matching the calibrated camera framing.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Frame is one still image from the camera.
type Frame struct {
	Image    image.Image
	Captured time.Time
}

// Source yields frames on demand. The device handle is held from
// construction until Close; Acquire does not reopen it.
type Source interface {
	// Acquire returns the next frame or an error wrapping
	// ErrCaptureUnavailable.
	Acquire() (Frame, error)

	// Close releases the device.
	Close() error
}
