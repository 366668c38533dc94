//go:build opencv

package camera

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// RealSource reads frames from a V4L2 webcam through OpenCV.
type RealSource struct {
	device  int
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// NewRealSource opens the video device, lets it settle exposure for
// warmup, and checks that a first frame can be read.
func NewRealSource(device, width, height int, warmup time.Duration) (*RealSource, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: open video device %d: %v", ErrCaptureUnavailable, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: video device %d not opened", ErrCaptureUnavailable, device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	// Keep the driver queue short so a read after the inter-cycle sleep
	// returns a current frame, not one buffered a minute ago.
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	s := &RealSource{
		device:  device,
		capture: capture,
		mat:     gocv.NewMat(),
	}

	time.Sleep(warmup)
	if _, err := s.Acquire(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Acquire reads one frame and converts it to an RGBA image.
func (s *RealSource) Acquire() (Frame, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return Frame{}, fmt.Errorf("%w: read from video device %d", ErrCaptureUnavailable, s.device)
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: convert frame: %v", ErrCaptureUnavailable, err)
	}
	return Frame{Image: img, Captured: time.Now()}, nil
}

// Close releases the frame buffer and the device.
func (s *RealSource) Close() error {
	var errs []error
	if err := s.mat.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close frame buffer: %w", err))
	}
	if err := s.capture.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close video device: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
