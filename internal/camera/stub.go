//go:build !opencv

package camera

import (
	"fmt"
	"time"
)

// RealSource is not available without OpenCV.
type RealSource struct{}

// NewRealSource returns an error when built without the opencv tag.
func NewRealSource(device, width, height int, warmup time.Duration) (*RealSource, error) {
	return nil, fmt.Errorf("%w: camera support not compiled in (build with -tags opencv)", ErrCaptureUnavailable)
}

// Acquire is not implemented without OpenCV.
func (s *RealSource) Acquire() (Frame, error) {
	return Frame{}, fmt.Errorf("%w: camera support not compiled in", ErrCaptureUnavailable)
}

// Close is not implemented without OpenCV.
func (s *RealSource) Close() error {
	return nil
}
