//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIndicator drives an LED on actual hardware using the Linux GPIO
// character device.
type RealIndicator struct {
	line *gpiocdev.Line
	pin  int
}

// NewRealIndicator requests pin (BCM numbering) as an output, initially low.
func NewRealIndicator(pin int) (*RealIndicator, error) {
	line, err := gpiocdev.RequestLine(Chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}
	return &RealIndicator{line: line, pin: pin}, nil
}

// Set drives the line.
func (r *RealIndicator) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set LED pin %d: %w", r.pin, err)
	}
	return nil
}

// Close turns the LED off and releases the line.
func (r *RealIndicator) Close() error {
	r.line.SetValue(0)
	return r.line.Close()
}
