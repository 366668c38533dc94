package gpio

// FakeIndicator is a test double that records every value written.
type FakeIndicator struct {
	// Values holds each Set call in order.
	Values []bool

	// SetError, if set, is returned by Set. The value is still recorded.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the value.
func (f *FakeIndicator) Set(on bool) error {
	f.Values = append(f.Values, on)
	return f.SetError
}

// On reports the last value written, false if none.
func (f *FakeIndicator) On() bool {
	if len(f.Values) == 0 {
		return false
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded values.
func (f *FakeIndicator) Reset() {
	f.Values = nil
	f.Closed = false
}
