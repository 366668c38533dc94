// Package gpio drives the optional error indicator LED.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Indicator is a single output line.
type Indicator interface {
	// Set drives the line high (on) or low.
	Set(on bool) error

	// Close releases GPIO resources. The line is left low.
	Close() error
}

// Chip is the GPIO chip the LED line is requested from.
const Chip = "gpiochip0"

// Noop is an Indicator that does nothing. Used when no LED pin is
// configured.
type Noop struct{}

// Set does nothing.
func (Noop) Set(bool) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }
