// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sweeney/boiler-vision/internal/logic"
)

// TopicState is the MQTT topic for the full JSON state of every cycle.
const TopicState = "energy/boiler/vision/state"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/boiler/vision/system"

// DiscoveryPrefix is the Home Assistant discovery prefix.
const DiscoveryPrefix = "homeassistant"

// Home Assistant entity topics.
const (
	TopicHeating        = DiscoveryPrefix + "/binary_sensor/boiler/heating/state"
	TopicPercentage     = DiscoveryPrefix + "/sensor/boiler/percentage/state"
	TopicRoomLight      = DiscoveryPrefix + "/binary_sensor/storage_room/light/state"
	TopicError          = DiscoveryPrefix + "/binary_sensor/boiler/error/state"
	TopicLastForceCheck = DiscoveryPrefix + "/sensor/boiler/last_force_check/state"
	TopicForceCheck     = DiscoveryPrefix + "/button/boiler/force_check/command"

	TopicBoilerAvailability = DiscoveryPrefix + "/device/boiler/availability"
	TopicLightAvailability  = DiscoveryPrefix + "/device/storage_room_light/availability"
)

// Entity payloads.
const (
	PayloadOn      = "ON"
	PayloadOff     = "OFF"
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Publisher publishes detection results to MQTT.
type Publisher interface {
	// PublishState sends the result of a resolved cycle. Returns error if
	// publishing fails (should not crash the process).
	PublishState(update StateUpdate) error

	// PublishError sets the error entity, ON after a failed cycle.
	PublishError(failed bool) error

	// PublishForceCheck records when a forced check completed.
	PublishForceCheck(at time.Time) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StateUpdate is one resolved detection cycle.
type StateUpdate struct {
	Timestamp     time.Time
	CycleID       string
	State         logic.BoilerState
	RoomLight     bool
	ButtonPressed bool
}

// Message is a single MQTT publish.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the JSON state document.
type Payload struct {
	Boiler BoilerPayload `json:"boiler"`
}

// BoilerPayload contains the state of one cycle.
type BoilerPayload struct {
	Timestamp     string   `json:"timestamp"`
	Cycle         string   `json:"cycle,omitempty"`
	Percentage    int      `json:"percentage"`
	Heating       bool     `json:"heating"`
	BlinkingLight *int     `json:"blinking_light,omitempty"`
	Ambiguous     bool     `json:"ambiguous"`
	RoomLight     bool     `json:"room_light"`
	ButtonPressed bool     `json:"button_pressed"`
	Lights        []string `json:"lights"`
}

// FormatPayload creates the JSON payload for a state update.
func FormatPayload(update StateUpdate) ([]byte, error) {
	lights := make([]string, 0, logic.NumLights)
	for _, d := range update.State.Lights {
		if d == "" {
			d = logic.LightOff
		}
		lights = append(lights, string(d))
	}
	p := BoilerPayload{
		Timestamp:     update.Timestamp.UTC().Format(time.RFC3339),
		Cycle:         update.CycleID,
		Percentage:    update.State.Percentage,
		Heating:       update.State.Heating,
		Ambiguous:     update.State.Ambiguous,
		RoomLight:     update.RoomLight,
		ButtonPressed: update.ButtonPressed,
		Lights:        lights,
	}
	if update.State.BlinkingLight >= 0 && !update.State.Ambiguous && update.State.Heating {
		n := update.State.BlinkingLight
		p.BlinkingLight = &n
	}
	return json.Marshal(Payload{Boiler: p})
}

// OnOff formats a boolean for a binary_sensor entity.
func OnOff(b bool) string {
	if b {
		return PayloadOn
	}
	return PayloadOff
}

// StateMessages returns every message a state update publishes, in order:
// entity states first, then the JSON document. The error entity mirrors
// the ambiguity flag.
func StateMessages(update StateUpdate) ([]Message, error) {
	doc, err := FormatPayload(update)
	if err != nil {
		return nil, err
	}
	return []Message{
		{Topic: TopicHeating, Payload: []byte(OnOff(update.State.Heating))},
		{Topic: TopicRoomLight, Payload: []byte(OnOff(update.RoomLight))},
		{Topic: TopicPercentage, Payload: []byte(strconv.Itoa(update.State.Percentage))},
		ErrorMessage(update.State.Ambiguous),
		{Topic: TopicState, Payload: doc},
	}, nil
}

// ErrorMessage returns the error entity update.
func ErrorMessage(failed bool) Message {
	return Message{Topic: TopicError, Payload: []byte(OnOff(failed))}
}

// ForceCheckMessage returns the last-force-check entity update.
func ForceCheckMessage(at time.Time) Message {
	return Message{Topic: TopicLastForceCheck, Payload: []byte(at.Format(time.RFC3339))}
}

// SystemMessage returns the message for a system event. Lifecycle events
// are sent at QoS 1.
func SystemMessage(event SystemEvent) (Message, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: TopicSystem, Payload: payload, QoS: 1, Retained: event.Retained}, nil
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
