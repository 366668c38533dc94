package mqtt

import "time"

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// States contains all state updates that were published.
	States []StateUpdate

	// Messages contains every message that was published, in order.
	Messages []Message

	// Errors contains the values passed to PublishError.
	Errors []bool

	// ForceChecks contains the values passed to PublishForceCheck.
	ForceChecks []time.Time

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishErr, if set, is returned by PublishState, PublishError and
	// PublishForceCheck.
	PublishErr error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a connected FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// PublishState records the update and its messages.
func (f *FakePublisher) PublishState(update StateUpdate) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	msgs, err := StateMessages(update)
	if err != nil {
		return err
	}
	f.States = append(f.States, update)
	f.Messages = append(f.Messages, msgs...)
	return nil
}

// PublishError records the error entity value.
func (f *FakePublisher) PublishError(failed bool) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Errors = append(f.Errors, failed)
	f.Messages = append(f.Messages, ErrorMessage(failed))
	return nil
}

// PublishForceCheck records the force check time.
func (f *FakePublisher) PublishForceCheck(at time.Time) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.ForceChecks = append(f.ForceChecks, at)
	f.Messages = append(f.Messages, ForceCheckMessage(at))
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	m, err := SystemMessage(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, m.Payload)
	f.Messages = append(f.Messages, m)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Topics returns the topic of every recorded message.
func (f *FakePublisher) Topics() []string {
	out := make([]string, len(f.Messages))
	for i, m := range f.Messages {
		out[i] = m.Topic
	}
	return out
}

// Reset clears recorded messages and restores the connected state.
func (f *FakePublisher) Reset() {
	f.States = nil
	f.Messages = nil
	f.Errors = nil
	f.ForceChecks = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishErr = nil
	f.PublishSystemError = nil
	f.Connected = true
}
